package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/usestring/flowschema/internal/capture"
	"github.com/usestring/flowschema/internal/flow"
	"github.com/usestring/flowschema/internal/output"
)

// Error codes for MCP tool responses.
const (
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeInvalidCapture = "INVALID_CAPTURE"
	ErrCodeMalformedPath  = "MALFORMED_PATH"
	ErrCodeTimeout        = "TIMEOUT"
	ErrCodeInternal       = "INTERNAL"
)

// CodedError is an error with an associated error code.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CodedError) Unwrap() error {
	return e.Cause
}

// WrapPipelineError converts a pipeline, capture, or output error to a coded
// error. Coded errors pass through unchanged.
func WrapPipelineError(err error) error {
	if err == nil {
		return nil
	}

	var coded *CodedError
	if errors.As(err, &coded) {
		return coded
	}

	switch {
	case errors.Is(err, capture.ErrNotFound):
		coded = &CodedError{Code: ErrCodeNotFound, Message: "capture file not found", Cause: err}
	case errors.Is(err, capture.ErrInvalidFormat):
		coded = &CodedError{Code: ErrCodeInvalidCapture, Message: "capture file could not be read", Cause: err}
	case errors.Is(err, flow.ErrMalformedPath):
		coded = &CodedError{Code: ErrCodeMalformedPath, Message: "request path is not /service/endpoint", Cause: err}
	case errors.Is(err, output.ErrSameAsInput):
		coded = &CodedError{Code: ErrCodeInvalidInput, Message: "output would overwrite the capture", Cause: err}
	case errors.Is(err, context.DeadlineExceeded):
		coded = &CodedError{Code: ErrCodeTimeout, Message: "inference timed out", Cause: err}
	default:
		coded = &CodedError{Code: ErrCodeInternal, Message: "inference failed", Cause: err}
	}

	slog.Warn("tool error",
		slog.String("code", coded.Code),
		slog.String("error", err.Error()),
	)

	return coded
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) error {
	return &CodedError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// ErrInvalidInput creates an invalid input error.
func ErrInvalidInput(message string) error {
	return &CodedError{
		Code:    ErrCodeInvalidInput,
		Message: message,
	}
}
