package seed

import "fmt"

// BundleError is returned when a seed bundle cannot be read or applied
type BundleError struct {
	Entry   string
	Message string
	Cause   error
}

func (e *BundleError) Error() string {
	msg := "seed bundle"
	if e.Entry != "" {
		msg += " " + e.Entry
	}
	msg += ": " + e.Message
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *BundleError) Unwrap() error {
	return e.Cause
}
