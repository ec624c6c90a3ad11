package materialize

import (
	"fmt"

	"github.com/google/uuid"
)

// Materialization failure reasons
const (
	ReasonRaceNotFound = "race not found"
	ReasonRaceLookup   = "race lookup failed"
	ReasonEmptyPlan    = "plan has no weeks"
	ReasonPersist      = "persistence failed"
)

// MaterializationError is returned when a validated plan cannot become a persisted plan
type MaterializationError struct {
	Reason string
	RaceID uuid.UUID
	Cause  error
}

func (e *MaterializationError) Error() string {
	msg := "materialization failed: " + e.Reason
	if e.RaceID != uuid.Nil {
		msg += fmt.Sprintf(" (race %s)", e.RaceID)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *MaterializationError) Unwrap() error {
	return e.Cause
}
