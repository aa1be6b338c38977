package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/flowschema/internal/catalog"
	"github.com/usestring/flowschema/internal/config"
	"github.com/usestring/flowschema/internal/mcp/tools"
	"github.com/usestring/flowschema/internal/output"
	"github.com/usestring/flowschema/pkg/schema"
)

// Resource URI scheme: flowschema://
// Supported URIs:
//   flowschema://types
//   flowschema://structure/{result_id}
//   flowschema://schema/{result_id}
//   flowschema://openapi/{result_id}

const uriScheme = "flowschema://"

// registerResources registers resource templates and handlers.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(&sdkmcp.Resource{
		URI:         uriScheme + "types",
		Name:        "Type Lattice",
		Description: "Leaf types with their wire tokens and merge precedence. When samples of a field disagree, the higher precedence wins.",
		MIMEType:    tools.MimeJSON,
		Annotations: &sdkmcp.Annotations{
			Audience: []sdkmcp.Role{"assistant"},
			Priority: 0.5,
		},
	}, s.handleResourceTypes)

	s.mcpServer.AddResourceTemplate(&sdkmcp.ResourceTemplate{
		URITemplate: uriScheme + "structure/{result_id}",
		Name:        "Inferred Structure",
		Description: "Structure from an earlier infer_api_schema call, in output order. Same content as the tool result; fetch it for the exact file layout.",
		MIMEType:    tools.MimeJSON,
		Annotations: &sdkmcp.Annotations{
			Audience: []sdkmcp.Role{"assistant"},
			Priority: 0.6,
		},
	}, s.handleResourceStructure)

	s.mcpServer.AddResourceTemplate(&sdkmcp.ResourceTemplate{
		URITemplate: uriScheme + "schema/{result_id}",
		Name:        "Endpoint JSON Schemas",
		Description: "JSON Schema 2020-12 documents for the query parameters, request body, and response body of every endpoint of an earlier infer_api_schema call.",
		MIMEType:    tools.MimeJSON,
		Annotations: &sdkmcp.Annotations{
			Audience: []sdkmcp.Role{"assistant"},
			Priority: 0.4,
		},
	}, s.handleResourceSchema)

	s.mcpServer.AddResourceTemplate(&sdkmcp.ResourceTemplate{
		URITemplate: uriScheme + "openapi/{result_id}",
		Name:        "OpenAPI Document",
		Description: "OpenAPI 3.0 document with one operation per endpoint of an earlier infer_api_schema call. Endpoints with methods OpenAPI cannot express are left out.",
		MIMEType:    tools.MimeJSON,
		Annotations: &sdkmcp.Annotations{
			Audience: []sdkmcp.Role{"assistant", "user"},
			Priority: 0.4,
		},
	}, s.handleResourceOpenAPI)
}

type typeInfo struct {
	Type       string `json:"type"`
	Name       string `json:"name"`
	Precedence int    `json:"precedence"`
}

func (s *Server) handleResourceTypes(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	lattice := []schema.Type{schema.Float, schema.Integer, schema.Boolean, schema.DateTime, schema.String}
	content := make([]typeInfo, 0, len(lattice))
	for _, t := range lattice {
		content = append(content, typeInfo{Type: t.Wire(), Name: t.String(), Precedence: t.Precedence()})
	}

	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serializing resource: %w", err)
	}
	return toResourceResult(req.Params.URI, data), nil
}

func (s *Server) handleResourceStructure(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	return s.readResult(req, func(_ string, structure *catalog.Structure) ([]byte, error) {
		return output.Encode(structure, config.FormatJSON)
	})
}

func (s *Server) handleResourceSchema(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	return s.readResult(req, func(_ string, structure *catalog.Structure) ([]byte, error) {
		return output.EncodeSchemas(structure)
	})
}

func (s *Server) handleResourceOpenAPI(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	return s.readResult(req, func(id string, structure *catalog.Structure) ([]byte, error) {
		return output.EncodeOpenAPI(structure, "flowschema "+id)
	})
}

// readResult resolves the result ID of a resource URI and renders the stored
// structure with encode.
func (s *Server) readResult(req *sdkmcp.ReadResourceRequest, encode func(id string, structure *catalog.Structure) ([]byte, error)) (*sdkmcp.ReadResourceResult, error) {
	params, err := parseResourceURI(req.Params.URI)
	if err != nil {
		return nil, err
	}

	id := params["result_id"]
	structure, ok := s.deps.Results.Get(id)
	if !ok {
		return nil, sdkmcp.ResourceNotFoundError(req.Params.URI)
	}

	data, err := encode(id, structure)
	if err != nil {
		return nil, err
	}
	return toResourceResult(req.Params.URI, data), nil
}

// parseResourceURI extracts parameters from a flowschema:// URI.
func parseResourceURI(uri string) (map[string]string, error) {
	if !strings.HasPrefix(uri, uriScheme) {
		return nil, tools.ErrInvalidInput("invalid URI scheme: expected " + uriScheme)
	}

	parts := strings.Split(strings.TrimPrefix(uri, uriScheme), "/")
	params := make(map[string]string)

	switch parts[0] {
	case "structure", "schema", "openapi":
		if len(parts) < 2 || parts[1] == "" {
			return nil, tools.ErrInvalidInput(parts[0] + " URI requires a result ID")
		}
		params["result_id"] = parts[1]
	default:
		return nil, tools.ErrInvalidInput(fmt.Sprintf("unknown resource type: %s", parts[0]))
	}

	return params, nil
}

func toResourceResult(uri string, data []byte) *sdkmcp.ReadResourceResult {
	return &sdkmcp.ReadResourceResult{
		Contents: []*sdkmcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: tools.MimeJSON,
				Text:     string(data),
			},
		},
	}
}
