package prompts

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/training-planner/internal/types"
)

// MissingArtifactError is returned when a referenced configuration artifact does not resolve
type MissingArtifactError struct {
	Kind types.ArtifactKind
	ID   uuid.UUID
}

func (e *MissingArtifactError) Error() string {
	if e.ID == uuid.Nil {
		return fmt.Sprintf("missing %s artifact", e.Kind)
	}
	return fmt.Sprintf("missing %s artifact %s", e.Kind, e.ID)
}

// AssemblyError represents a failure building the prompt from resolved inputs
type AssemblyError struct {
	Message string
	Cause   error
}

func (e *AssemblyError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("prompt assembly failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("prompt assembly failed: %s", e.Message)
}

func (e *AssemblyError) Unwrap() error {
	return e.Cause
}
