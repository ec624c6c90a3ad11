package validation

import (
	"fmt"

	"github.com/jonathan/training-planner/internal/schemas"
)

// Invariant names a domain rule checked by the semantic stage
type Invariant string

// Invariants in evaluation order
const (
	InvariantPhaseOrder        Invariant = "phase-order"
	InvariantRunTypeVocabulary Invariant = "run-type-vocabulary"
	InvariantMustHavePresent   Invariant = "must-have-present"
	InvariantRaceDistance      Invariant = "race-distance"
)

// SchemaPath is reported when the return format schema itself cannot be compiled
const SchemaPath = "(schema)"

// SchemaMismatch is returned when output does not parse or does not conform to the
// return format schema
type SchemaMismatch struct {
	Path    string
	Message string
	Errors  []schemas.FieldError
	Cause   error
}

func (e *SchemaMismatch) Error() string {
	if len(e.Errors) > 1 {
		return fmt.Sprintf("schema mismatch at %s: %s (and %d more)", e.Path, e.Message, len(e.Errors)-1)
	}
	return fmt.Sprintf("schema mismatch at %s: %s", e.Path, e.Message)
}

func (e *SchemaMismatch) Unwrap() error {
	return e.Cause
}

// DomainInvariantViolation is returned when structurally valid output breaks a domain rule
type DomainInvariantViolation struct {
	Invariant Invariant
	Path      string
	Value     any
	Message   string
	Cause     error
}

func (e *DomainInvariantViolation) Error() string {
	return fmt.Sprintf("invariant %s violated at %s: %s (value %v)", e.Invariant, e.Path, e.Message, e.Value)
}

func (e *DomainInvariantViolation) Unwrap() error {
	return e.Cause
}

// PathSyntaxError is returned when a required field path cannot be parsed
type PathSyntaxError struct {
	Path    string
	Message string
}

func (e *PathSyntaxError) Error() string {
	return fmt.Sprintf("invalid field path %q: %s", e.Path, e.Message)
}
