package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures
type ErrorKind string

const (
	KindOCRTimeout       ErrorKind = "ocr_timeout"
	KindOCRProvider      ErrorKind = "ocr_provider_error"
	KindScoringTimeout   ErrorKind = "scoring_timeout"
	KindScoringProvider  ErrorKind = "scoring_provider_error"
	KindSchemaValidation ErrorKind = "schema_validation_failure"
	KindInvalidInput     ErrorKind = "invalid_input"
)

var (
	// ErrTimeout is matched by every timeout-shaped pipeline error
	ErrTimeout = errors.New("operation timed out")

	// ErrSchemaValidation is returned when a model response does not match its schema
	ErrSchemaValidation = errors.New("response does not match schema")

	// ErrEmptyImage is returned when a request carries no image bytes
	ErrEmptyImage = errors.New("image is empty")

	// ErrEmptyResponse is returned when a provider answers without content
	ErrEmptyResponse = errors.New("empty response from model")
)

// PipelineError wraps a failure with the stage it happened in
type PipelineError struct {
	Kind  ErrorKind
	Stage string
	Err   error
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
}

// Unwrap returns the underlying error
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Is matches ErrTimeout for timeout kinds in addition to the wrapped chain
func (e *PipelineError) Is(target error) bool {
	if target == ErrTimeout {
		return e.Kind == KindOCRTimeout || e.Kind == KindScoringTimeout
	}
	return false
}

// NewPipelineError creates a PipelineError
func NewPipelineError(kind ErrorKind, stage string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Stage: stage, Err: err}
}

// KindOf returns the kind of the first PipelineError in err's chain
func KindOf(err error) (ErrorKind, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return "", false
}

// IsTimeout reports whether err is a stage timeout
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
