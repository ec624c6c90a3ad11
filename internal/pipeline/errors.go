package pipeline

import "fmt"

// RequestError is returned when a generation request is malformed
type RequestError struct {
	Field   string
	Message string
	Cause   error
}

func (e *RequestError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid request: %s", e.Message)
}

func (e *RequestError) Unwrap() error {
	return e.Cause
}
