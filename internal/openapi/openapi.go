// Package openapi describes an inferred structure as an OpenAPI 3 document.
package openapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/usestring/flowschema/internal/catalog"
	"github.com/usestring/flowschema/internal/flow"
	"github.com/usestring/flowschema/pkg/contenttype"
	"github.com/usestring/flowschema/pkg/schema"
)

// Version is the OpenAPI version of generated documents.
const Version = "3.0.3"

const dateTimePattern = `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d{1,6})?$`

var methods = map[string]bool{
	http.MethodConnect: true,
	http.MethodDelete:  true,
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
	http.MethodPatch:   true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodTrace:   true,
}

// Document builds one operation per endpoint at /service/endpoint. Query keys
// become optional query parameters, the content structure becomes the request
// body, and the response structure the body of a 200 response.
//
// Endpoints whose method OpenAPI cannot express are left out and logged.
func Document(s *catalog.Structure, title string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: Version,
		Info: &openapi3.Info{
			Title:       title,
			Version:     "1.0.0",
			Description: "Inferred from captured traffic.",
		},
		Paths: openapi3.NewPaths(),
	}

	_ = s.Walk(func(service, endpoint string, rec *flow.Record) error {
		method := strings.ToUpper(rec.Method)
		if !methods[method] {
			slog.Warn("endpoint left out of OpenAPI document",
				slog.String("service", service),
				slog.String("endpoint", endpoint),
				slog.String("method", rec.Method),
			)
			return nil
		}

		item := &openapi3.PathItem{}
		item.SetOperation(method, operation(service, endpoint, rec))
		doc.Paths.Set(fmt.Sprintf("/%s/%s", service, endpoint), item)
		return nil
	})

	return doc
}

func operation(service, endpoint string, rec *flow.Record) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = service + "_" + endpoint
	op.Tags = []string{service}

	for _, name := range rec.QueryParameters.Keys() {
		value, _ := rec.QueryParameters.Field(name)
		op.AddParameter(openapi3.NewQueryParameter(name).WithSchema(Schema(value)))
	}

	if mime := mimeType(rec.ContentType); mime != "" && rec.ContentStructure.Len() > 0 {
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().
				WithContent(openapi3.NewContentWithSchema(Schema(rec.ContentStructure), []string{mime})),
		}
	}

	resp := openapi3.NewResponse().WithDescription("Observed response")
	if rec.ResponseStructure.Len() > 0 {
		resp = resp.WithContent(openapi3.NewContentWithSchema(Schema(rec.ResponseStructure), []string{"application/xml"}))
	}
	op.Responses = &openapi3.Responses{}
	op.Responses.Set("200", &openapi3.ResponseRef{Value: resp})

	return op
}

func mimeType(enc contenttype.Encoding) string {
	switch enc {
	case contenttype.XML:
		return "application/xml"
	case contenttype.JSON:
		return "application/json"
	default:
		return ""
	}
}

// Schema converts a schema tree into an OpenAPI schema. The no-type marker
// becomes an empty schema.
func Schema(n *schema.Node) *openapi3.Schema {
	if n == nil {
		return &openapi3.Schema{}
	}
	if n.IsObject() {
		s := openapi3.NewObjectSchema()
		for _, name := range n.Keys() {
			child, _ := n.Field(name)
			s.WithProperty(name, Schema(child))
		}
		return s
	}

	switch n.Type() {
	case schema.Float:
		return openapi3.NewFloat64Schema()
	case schema.Integer:
		return openapi3.NewIntegerSchema()
	case schema.Boolean:
		return openapi3.NewBoolSchema()
	case schema.DateTime:
		return openapi3.NewStringSchema().WithPattern(dateTimePattern)
	default:
		return openapi3.NewStringSchema()
	}
}
