package llm

import "fmt"

// FailureReason classifies a GenerationFailure
type FailureReason string

// Failure reasons
const (
	ReasonTransport   FailureReason = "transport"
	ReasonTimeout     FailureReason = "timeout"
	ReasonProvider    FailureReason = "provider"
	ReasonEmpty       FailureReason = "empty"
	ReasonUnparseable FailureReason = "unparseable"
	ReasonCanceled    FailureReason = "canceled"
)

// GenerationFailure is returned when the backend could not produce a usable response
type GenerationFailure struct {
	Reason FailureReason
	// Transient failures are eligible for the single retry
	Transient bool
	Attempts  int
	Cause     error
}

func (e *GenerationFailure) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("generation failed (%s) after %d attempt(s): %v", e.Reason, e.Attempts, e.Cause)
	}
	return fmt.Sprintf("generation failed (%s) after %d attempt(s)", e.Reason, e.Attempts)
}

func (e *GenerationFailure) Unwrap() error {
	return e.Cause
}
