// Package errors defines the error taxonomy shared by the shot pipeline.
// Every failure is one of three kinds: malformed input data, a configuration
// the user can change, or a model that failed to fit.
package errors

import (
	"fmt"
)

// Kind classifies a PipelineError.
type Kind int

const (
	KindInput Kind = iota + 1
	KindConfiguration
	KindModelFit
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindConfiguration:
		return "configuration"
	case KindModelFit:
		return "model fit"
	default:
		return "unknown"
	}
}

// PipelineError carries the failing operation, an optional column and the cause.
type PipelineError struct {
	Kind    Kind
	Op      string // Operation name (e.g., "Clean", "Split", "Fit")
	Column  string // Column name if applicable
	Message string
	Cause   error
}

func (e *PipelineError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Column != "" {
		return fmt.Sprintf("%s error in %s on column '%s': %s", e.Kind, e.Op, e.Column, msg)
	}
	return fmt.Sprintf("%s error in %s: %s", e.Kind, e.Op, msg)
}

// Unwrap returns the underlying cause for error wrapping support.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Is matches sentinels by kind and other PipelineErrors by kind, op and message.
func (e *PipelineError) Is(target error) bool {
	t, ok := target.(*PipelineError)
	if !ok {
		return false
	}
	if t.Op == "" && t.Message == "" {
		return e.Kind == t.Kind
	}
	return e.Kind == t.Kind && e.Op == t.Op && e.Message == t.Message
}

// Sentinels for errors.Is checks against a kind.
var (
	ErrInput         = &PipelineError{Kind: KindInput}
	ErrConfiguration = &PipelineError{Kind: KindConfiguration}
	ErrModelFit      = &PipelineError{Kind: KindModelFit}
)

// NewInputError reports malformed or missing source data.
func NewInputError(op, column, message string) *PipelineError {
	return &PipelineError{Kind: KindInput, Op: op, Column: column, Message: message}
}

// NewColumnNotFoundError reports a required column absent from the dataset.
func NewColumnNotFoundError(op, column string) *PipelineError {
	return NewInputError(op, column, "required column does not exist")
}

// NewConfigError reports a selection or setting the caller can fix.
func NewConfigError(op, message string) *PipelineError {
	return &PipelineError{Kind: KindConfiguration, Op: op, Message: message}
}

// NewModelFitError wraps a classifier failure.
func NewModelFitError(op string, cause error) *PipelineError {
	return &PipelineError{Kind: KindModelFit, Op: op, Message: "model fit failed", Cause: cause}
}

// WrapInput wraps a lower-level cause as an input error.
func WrapInput(op, message string, cause error) *PipelineError {
	return &PipelineError{Kind: KindInput, Op: op, Message: message, Cause: cause}
}
