// Package query provides jq-based selection of captured exchanges.
package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"
)

// Input is the document a filter expression sees for one exchange.
type Input struct {
	Method string
	Host   string
	Path   string
	Status int
}

func (in Input) value() map[string]any {
	return map[string]any{
		"method": in.Method,
		"host":   in.Host,
		"path":   in.Path,
		"status": in.Status,
	}
}

// Filter is a compiled jq predicate. A nil *Filter keeps everything.
// Compiled code is safe for concurrent use.
type Filter struct {
	expression string
	code       *gojq.Code
}

// NewFilter compiles expression. An empty or blank expression yields a nil
// filter.
func NewFilter(expression string) (*Filter, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, nil
	}

	query, err := gojq.Parse(expression)
	if err != nil {
		var parseErr *gojq.ParseError
		if errors.As(err, &parseErr) {
			return nil, fmt.Errorf("invalid jq expression at position %d: %w", parseErr.Offset, err)
		}
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}

	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq expression: %w", err)
	}

	return &Filter{expression: expression, code: code}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.expression
}

// Match reports whether the exchange described by in is kept. Only the
// first output counts: false, null or no output drop the exchange, any other
// value keeps it.
func (f *Filter) Match(in Input) (bool, error) {
	if f == nil {
		return true, nil
	}

	iter := f.code.Run(in.value())
	v, ok := iter.Next()
	if !ok {
		return false, nil
	}
	if err, isErr := v.(error); isErr {
		return false, errors.New(formatJQError(in.Method+" "+in.Path, err))
	}

	switch val := v.(type) {
	case nil:
		return false, nil
	case bool:
		return val, nil
	default:
		return true, nil
	}
}

// formatJQError creates a readable message for jq runtime errors.
//
// Runtime errors from gojq are plain errors without typed wrappers, so the
// hints rely on string matching. They decorate the message only.
func formatJQError(label string, err error) string {
	var haltErr *gojq.HaltError
	if errors.As(err, &haltErr) {
		if haltErr.Value() == nil {
			return fmt.Sprintf("%s: filter halted", label)
		}
		return fmt.Sprintf("%s: filter halted with: %v", label, haltErr.Value())
	}

	errStr := err.Error()

	var hint string
	switch {
	case strings.Contains(errStr, "cannot iterate over"):
		hint = " (exchange fields are scalars)"
	case strings.Contains(errStr, "cannot index") && strings.Contains(errStr, "with"):
		hint = " (available fields: method, host, path, status)"
	}

	return fmt.Sprintf("%s: %s%s", label, errStr, hint)
}
