// Package output persists inferred structures next to their capture file.
package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/usestring/flowschema/internal/catalog"
	"github.com/usestring/flowschema/internal/config"
	"github.com/usestring/flowschema/internal/flow"
	"github.com/usestring/flowschema/internal/openapi"
	"github.com/usestring/flowschema/pkg/jsonschema"
)

// ErrSameAsInput is returned when the derived output path would overwrite
// the capture file.
var ErrSameAsInput = errors.New("output path equals input path")

// Writer writes a structure in the configured format.
type Writer struct {
	Format         string // config.FormatJSON or config.FormatYAML
	EmitJSONSchema bool
	EmitOpenAPI    bool
}

// FromConfig returns the Writer described by cfg.
func FromConfig(cfg *config.Config) Writer {
	return Writer{
		Format:         cfg.OutputFormat,
		EmitJSONSchema: cfg.EmitJSONSchema,
		EmitOpenAPI:    cfg.EmitOpenAPI,
	}
}

// Path replaces the extension of input with the one of format.
func Path(input, format string) string {
	ext := ".json"
	if format == config.FormatYAML {
		ext = ".yaml"
	}
	return trimExt(input) + ext
}

// SchemaPath returns the JSON Schema export path for input.
func SchemaPath(input string) string {
	return trimExt(input) + ".schema.json"
}

// OpenAPIPath returns the OpenAPI document path for input.
func OpenAPIPath(input string) string {
	return trimExt(input) + ".openapi.json"
}

// Title is the document title used for the capture at input: its base name
// without extension.
func Title(input string) string {
	return trimExt(filepath.Base(input))
}

func trimExt(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// Encode renders the structure. JSON output is indented and ends with a
// newline.
func Encode(s *catalog.Structure, format string) ([]byte, error) {
	if format == config.FormatYAML {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return nil, fmt.Errorf("encoding YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encoding YAML: %w", err)
		}
		return buf.Bytes(), nil
	}
	return encodeJSON(s)
}

func encodeJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// EncodeSchemas renders {service: {endpoint: schemas}} in structure order.
func EncodeSchemas(s *catalog.Structure) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, svc := range s.Services {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, svc.Name); err != nil {
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
			if err := writeKey(&buf, ep.Name); err != nil {
				return nil, err
			}
			data, err := json.Marshal(endpointSchemas(ep.Records[0]))
			if err != nil {
				return nil, fmt.Errorf("encoding schema of %s/%s: %w", svc.Name, ep.Name, err)
			}
			buf.Write(data)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("encoding JSON Schema: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// EncodeOpenAPI renders s as an indented OpenAPI 3 document.
func EncodeOpenAPI(s *catalog.Structure, title string) ([]byte, error) {
	return encodeJSON(openapi.Document(s, title))
}

func endpointSchemas(rec *flow.Record) *jsonschema.Endpoint {
	return jsonschema.ForEndpoint(rec.QueryParameters, rec.ContentStructure, rec.ResponseStructure)
}

func writeKey(buf *bytes.Buffer, key string) error {
	data, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(data)
	buf.WriteByte(':')
	return nil
}

// Write stores s next to the capture at input and returns the written paths.
// Nothing is written when a derived path equals input.
func (w Writer) Write(input string, s *catalog.Structure) ([]string, error) {
	type target struct {
		path   string
		encode func() ([]byte, error)
	}
	targets := []target{{Path(input, w.Format), func() ([]byte, error) { return Encode(s, w.Format) }}}
	if w.EmitJSONSchema {
		targets = append(targets, target{SchemaPath(input), func() ([]byte, error) { return EncodeSchemas(s) }})
	}
	if w.EmitOpenAPI {
		targets = append(targets, target{OpenAPIPath(input), func() ([]byte, error) { return EncodeOpenAPI(s, Title(input)) }})
	}
	for _, t := range targets {
		if samePath(input, t.path) {
			return nil, fmt.Errorf("%w: %s", ErrSameAsInput, t.path)
		}
	}

	written := make([]string, 0, len(targets))
	for _, t := range targets {
		data, err := t.encode()
		if err != nil {
			return nil, err
		}
		if err := WriteFile(t.path, data); err != nil {
			return nil, err
		}
		written = append(written, t.path)
	}
	return written, nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// WriteFile writes data to a temporary file in the target directory and
// renames it into place, so readers never observe a partial file.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
