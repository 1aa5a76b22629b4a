package chat

import (
	"errors"
	"fmt"
)

// ErrorKind classifies chat failures for routing decisions.
type ErrorKind string

const (
	ErrKindDatasetUnavailable   ErrorKind = "dataset_unavailable"
	ErrKindSQLGeneration        ErrorKind = "sql_generation"
	ErrKindSQLExecution         ErrorKind = "sql_execution"
	ErrKindAmbiguousColumn      ErrorKind = "ambiguous_column"
	ErrKindGroundingUnavailable ErrorKind = "grounding_unavailable"
)

// Error is a structured chat failure. The Router inspects Kind to pick the
// fallback path instead of surfacing the raw cause to the user.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the ErrorKind from an error chain, or "" when the error is
// not a chat error.
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}
