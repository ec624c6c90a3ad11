package registry

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/training-planner/internal/types"
)

// NotFoundError indicates an artifact id does not exist for its kind
type NotFoundError struct {
	Kind types.ArtifactKind
	ID   uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// FieldError is one rejected field of an artifact payload
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError indicates an artifact payload was rejected
type ValidationError struct {
	Kind   types.ArtifactKind
	Fields []FieldError
	Cause  error
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Kind, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}
