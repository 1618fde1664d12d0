package agentloops

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownAction is returned when the model names an action that is not registered.
	ErrUnknownAction = errors.New("unknown action")

	// ErrDuplicateAction is returned when two actions with the same name are registered.
	ErrDuplicateAction = errors.New("duplicate action")

	// ErrMalformedOutput is returned when a structured payload in model output is missing or
	// does not match the expected shape.
	ErrMalformedOutput = errors.New("malformed model output")

	// ErrMissingCredential is returned by constructors when a required API key or secret is
	// not configured.
	ErrMissingCredential = errors.New("missing credential")
)

// TransportError wraps a failure of an external provider (model or search API).
type TransportError struct {
	// Provider identifies the backend, e.g. "openai", "bedrock", "tavily".
	Provider string

	// Op is the operation that failed, e.g. "generate", "search".
	Op string

	// StatusCode is the HTTP status when known, zero otherwise.
	StatusCode int

	Err error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Provider, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err is or wraps a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
