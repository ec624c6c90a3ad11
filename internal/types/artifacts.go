// Package types provides type definitions for structured data used throughout the training-planner system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ArtifactKind identifies one of the four configuration artifact kinds
type ArtifactKind string

const (
	// KindRole is a persona / system prompt fragment
	KindRole ArtifactKind = "role"
	// KindRuleSet is an ordered list of rules
	KindRuleSet ArtifactKind = "rule_set"
	// KindMustHaves declares field paths that generation output must contain
	KindMustHaves ArtifactKind = "must_haves"
	// KindReturnFormat is the JSON schema of the generation output
	KindReturnFormat ArtifactKind = "return_format"
)

// ArtifactKinds lists every kind in assembly order
var ArtifactKinds = []ArtifactKind{KindRole, KindRuleSet, KindMustHaves, KindReturnFormat}

// Valid reports whether k is one of the four known kinds
func (k ArtifactKind) Valid() bool {
	switch k {
	case KindRole, KindRuleSet, KindMustHaves, KindReturnFormat:
		return true
	}
	return false
}

// Artifact is implemented by exactly the four configuration artifact types.
type Artifact interface {
	Kind() ArtifactKind
	ArtifactID() uuid.UUID
	isArtifact()
}

// Role is a persona definition injected as the system portion of a prompt
type Role struct {
	ID                 uuid.UUID `json:"id"`
	Title              string    `json:"title" validate:"required,max=200"`
	SystemInstructions string    `json:"system_instructions" validate:"required"`
	CreatedAt          time.Time `json:"created_at"`
}

// RuleSet is an ordered list of rules; order is significant in the prompt
type RuleSet struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name" validate:"required,max=200"`
	Description string    `json:"description,omitempty"`
	Rules       []string  `json:"rules" validate:"required,min=1,dive,required"`
	CreatedAt   time.Time `json:"created_at"`
}

// MustHaves declares field paths that must be present and non-null in generation output
type MustHaves struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name" validate:"required,max=200"`
	RequiredPaths []string  `json:"required_paths" validate:"required,min=1,dive,required"`
	CreatedAt     time.Time `json:"created_at"`
}

// ReturnFormat holds the JSON schema that generation output must conform to
type ReturnFormat struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name" validate:"required,max=200"`
	Schema    json.RawMessage `json:"schema" validate:"required"`
	CreatedAt time.Time       `json:"created_at"`
}

// Kind implements Artifact
func (*Role) Kind() ArtifactKind { return KindRole }

// Kind implements Artifact
func (*RuleSet) Kind() ArtifactKind { return KindRuleSet }

// Kind implements Artifact
func (*MustHaves) Kind() ArtifactKind { return KindMustHaves }

// Kind implements Artifact
func (*ReturnFormat) Kind() ArtifactKind { return KindReturnFormat }

// ArtifactID implements Artifact
func (r *Role) ArtifactID() uuid.UUID { return r.ID }

// ArtifactID implements Artifact
func (r *RuleSet) ArtifactID() uuid.UUID { return r.ID }

// ArtifactID implements Artifact
func (m *MustHaves) ArtifactID() uuid.UUID { return m.ID }

// ArtifactID implements Artifact
func (r *ReturnFormat) ArtifactID() uuid.UUID { return r.ID }

func (*Role) isArtifact()         {}
func (*RuleSet) isArtifact()      {}
func (*MustHaves) isArtifact()    {}
func (*ReturnFormat) isArtifact() {}

// NewArtifact returns an empty artifact of the given kind, or nil for an unknown kind.
func NewArtifact(kind ArtifactKind) Artifact {
	switch kind {
	case KindRole:
		return &Role{}
	case KindRuleSet:
		return &RuleSet{}
	case KindMustHaves:
		return &MustHaves{}
	case KindReturnFormat:
		return &ReturnFormat{}
	}
	return nil
}

// SetIdentity assigns the store-owned fields of an artifact
func SetIdentity(a Artifact, id uuid.UUID, createdAt time.Time) {
	switch v := a.(type) {
	case *Role:
		v.ID, v.CreatedAt = id, createdAt
	case *RuleSet:
		v.ID, v.CreatedAt = id, createdAt
	case *MustHaves:
		v.ID, v.CreatedAt = id, createdAt
	case *ReturnFormat:
		v.ID, v.CreatedAt = id, createdAt
	}
}

// ArtifactName returns the display name of an artifact: a role's title, otherwise its name
func ArtifactName(a Artifact) string {
	switch v := a.(type) {
	case *Role:
		return v.Title
	case *RuleSet:
		return v.Name
	case *MustHaves:
		return v.Name
	case *ReturnFormat:
		return v.Name
	}
	return ""
}

// ArtifactRefs identifies the artifacts a plan was generated from
type ArtifactRefs struct {
	RoleID         uuid.UUID `json:"role_id" validate:"required"`
	RuleSetID      uuid.UUID `json:"rule_set_id" validate:"required"`
	MustHavesID    uuid.UUID `json:"must_haves_id" validate:"required"`
	ReturnFormatID uuid.UUID `json:"return_format_id" validate:"required"`
}

// ID returns the reference for a kind
func (r ArtifactRefs) ID(kind ArtifactKind) uuid.UUID {
	switch kind {
	case KindRole:
		return r.RoleID
	case KindRuleSet:
		return r.RuleSetID
	case KindMustHaves:
		return r.MustHavesID
	case KindReturnFormat:
		return r.ReturnFormatID
	}
	return uuid.Nil
}
