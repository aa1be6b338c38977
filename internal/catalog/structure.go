package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/usestring/flowschema/internal/flow"
)

// Structure is the service -> endpoint -> records tree.
//
// Records are placed in the order of a stable sort on service+endpoint. A
// service is listed where its first endpoint falls in that order and later
// endpoints of the same service are appended to it, so the order is not a
// per-level sort.
type Structure struct {
	Services []*Service
}

// Service lists the endpoints of one service.
type Service struct {
	Name      string
	Endpoints []*Endpoint
}

// Endpoint holds the records observed for one endpoint. After reduction it
// holds exactly one record.
type Endpoint struct {
	Name    string
	Records []*flow.Record
}

// Build arranges records into a Structure. The input slice is not modified.
func Build(records []*flow.Record) *Structure {
	sorted := make([]*flow.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Key() < sorted[j].Key()
	})

	s := &Structure{}
	services := make(map[string]*Service)
	endpoints := make(map[GroupKey]*Endpoint)

	for _, rec := range sorted {
		svc, ok := services[rec.Service]
		if !ok {
			svc = &Service{Name: rec.Service}
			services[rec.Service] = svc
			s.Services = append(s.Services, svc)
		}

		key := GroupKey{Service: rec.Service, Endpoint: rec.Endpoint}
		ep, ok := endpoints[key]
		if !ok {
			ep = &Endpoint{Name: rec.Endpoint}
			endpoints[key] = ep
			svc.Endpoints = append(svc.Endpoints, ep)
		}
		ep.Records = append(ep.Records, rec)
	}
	return s
}

// ServiceCount returns the number of services.
func (s *Structure) ServiceCount() int {
	return len(s.Services)
}

// EndpointCount returns the number of endpoints across all services.
func (s *Structure) EndpointCount() int {
	n := 0
	for _, svc := range s.Services {
		n += len(svc.Endpoints)
	}
	return n
}

// Record returns the first record of an endpoint.
func (s *Structure) Record(service, endpoint string) (*flow.Record, bool) {
	for _, svc := range s.Services {
		if svc.Name != service {
			continue
		}
		for _, ep := range svc.Endpoints {
			if ep.Name == endpoint && len(ep.Records) > 0 {
				return ep.Records[0], true
			}
		}
	}
	return nil, false
}

// Walk calls fn with the first record of every endpoint in output order.
func (s *Structure) Walk(fn func(service, endpoint string, rec *flow.Record) error) error {
	for _, svc := range s.Services {
		for _, ep := range svc.Endpoints {
			if len(ep.Records) == 0 {
				continue
			}
			if err := fn(svc.Name, ep.Name, ep.Records[0]); err != nil {
				return err
			}
		}
	}
	return nil
}

// MarshalJSON writes {service: {endpoint: record}} keeping Structure order.
// Each endpoint is represented by its first record.
func (s *Structure) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, svc := range s.Services {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONKey(&buf, svc.Name); err != nil {
			return nil, err
		}
		buf.WriteByte('{')
		first := true
		for _, ep := range svc.Endpoints {
			if len(ep.Records) == 0 {
				continue
			}
			if !first {
				buf.WriteByte(',')
			}
			first = false
			if err := writeJSONKey(&buf, ep.Name); err != nil {
				return nil, err
			}
			data, err := json.Marshal(ep.Records[0])
			if err != nil {
				return nil, fmt.Errorf("encoding %s/%s: %w", svc.Name, ep.Name, err)
			}
			buf.Write(data)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSONKey(buf *bytes.Buffer, key string) error {
	data, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(data)
	buf.WriteByte(':')
	return nil
}

// MarshalYAML builds an ordered mapping so YAML output keeps Structure order.
func (s *Structure) MarshalYAML() (any, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, svc := range s.Services {
		endpoints := &yaml.Node{Kind: yaml.MappingNode}
		for _, ep := range svc.Endpoints {
			if len(ep.Records) == 0 {
				continue
			}
			value := &yaml.Node{}
			if err := value.Encode(ep.Records[0]); err != nil {
				return nil, fmt.Errorf("encoding %s/%s: %w", svc.Name, ep.Name, err)
			}
			endpoints.Content = append(endpoints.Content, stringNode(ep.Name), value)
		}
		root.Content = append(root.Content, stringNode(svc.Name), endpoints)
	}
	return root, nil
}

func stringNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}
