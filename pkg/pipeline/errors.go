package pipeline

import "fmt"

// ErrorKind categorizes pipeline errors
type ErrorKind string

const (
	ErrKindAlreadyRunning ErrorKind = "already_running"
	ErrKindStepFailure    ErrorKind = "step_failure"
	ErrKindStopped        ErrorKind = "stopped"
	ErrKindNetwork        ErrorKind = "network"
	ErrKindRateLimited    ErrorKind = "rate_limited"
	ErrKindBadData        ErrorKind = "bad_data"
)

// Error is a structured pipeline error
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *Error) Unwrap() error {
	return e.Cause
}

// UserMessage returns a user-friendly error message
func (e *Error) UserMessage() string {
	switch e.Kind {
	case ErrKindAlreadyRunning:
		return "Scraping is already running"
	case ErrKindStepFailure:
		return fmt.Sprintf("Pipeline step failed: %s", e.Message)
	case ErrKindNetwork:
		return "A data source could not be reached. Please try again later."
	case ErrKindRateLimited:
		return "A data source is rate limiting requests. Please try again later."
	case ErrKindBadData:
		return fmt.Sprintf("A data source returned unusable data: %s", e.Message)
	default:
		return e.Message
	}
}

// ErrAlreadyRunning is returned by Start while a run holds the job slot.
var ErrAlreadyRunning = &Error{Kind: ErrKindAlreadyRunning, Message: "a pipeline run is already active"}

func newStepError(step string, cause error) *Error {
	return &Error{
		Kind:    ErrKindStepFailure,
		Message: step,
		Cause:   cause,
	}
}

func newNetworkError(message string, cause error) *Error {
	return &Error{
		Kind:    ErrKindNetwork,
		Message: message,
		Cause:   cause,
	}
}

func newBadDataError(message string) *Error {
	return &Error{
		Kind:    ErrKindBadData,
		Message: message,
	}
}
