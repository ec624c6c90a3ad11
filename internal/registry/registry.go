// Package registry is the read/write contract over configuration artifacts: roles,
// rule sets, must-haves and return formats.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/training-planner/internal/schemas"
	"github.com/jonathan/training-planner/internal/types"
	"github.com/jonathan/training-planner/internal/validation"
)

// List limits
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Store persists artifacts. GetArtifact returns (nil, nil) when the id does not exist
// for the kind. CreateArtifact assigns ID and CreatedAt in place.
type Store interface {
	GetArtifact(ctx context.Context, kind types.ArtifactKind, id uuid.UUID) (types.Artifact, error)
	ListArtifacts(ctx context.Context, kind types.ArtifactKind, limit int) ([]types.Artifact, error)
	CreateArtifact(ctx context.Context, artifact types.Artifact) error
}

// Service validates artifact payloads and delegates storage to a Store
type Service struct {
	store Store
}

// New creates a Service
func New(store Store) *Service {
	return &Service{store: store}
}

// GetArtifact looks up an artifact without treating absence as an error, so the
// service can serve as the source for prompt assembly.
func (s *Service) GetArtifact(ctx context.Context, kind types.ArtifactKind, id uuid.UUID) (types.Artifact, error) {
	if !kind.Valid() {
		return nil, unknownKind(kind)
	}
	return s.store.GetArtifact(ctx, kind, id)
}

// Get returns the artifact or *NotFoundError
func (s *Service) Get(ctx context.Context, kind types.ArtifactKind, id uuid.UUID) (types.Artifact, error) {
	a, err := s.GetArtifact(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, &NotFoundError{Kind: kind, ID: id}
	}
	return a, nil
}

// List returns artifacts of a kind, newest first
func (s *Service) List(ctx context.Context, kind types.ArtifactKind, limit int) ([]types.Artifact, error) {
	if !kind.Valid() {
		return nil, unknownKind(kind)
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return s.store.ListArtifacts(ctx, kind, limit)
}

// Create decodes, validates and stores a new artifact
func (s *Service) Create(ctx context.Context, kind types.ArtifactKind, payload []byte) (types.Artifact, error) {
	artifact, err := Decode(kind, payload)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateArtifact(ctx, artifact); err != nil {
		return nil, fmt.Errorf("failed to store %s: %w", kind, err)
	}
	return artifact, nil
}

// Decode parses and validates an artifact payload without storing it. Client supplied
// ids and timestamps are discarded.
func Decode(kind types.ArtifactKind, payload []byte) (types.Artifact, error) {
	artifact := types.NewArtifact(kind)
	if artifact == nil {
		return nil, unknownKind(kind)
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(artifact); err != nil {
		return nil, &ValidationError{Kind: kind, Fields: []FieldError{{Field: "body", Message: err.Error()}}, Cause: err}
	}
	types.SetIdentity(artifact, uuid.Nil, time.Time{})

	if err := types.ValidateArtifact(artifact); err != nil {
		return nil, fromValidator(kind, err)
	}
	if err := checkContent(artifact); err != nil {
		return nil, err
	}
	return artifact, nil
}

func checkContent(artifact types.Artifact) error {
	switch a := artifact.(type) {
	case *types.RuleSet:
		for i, rule := range a.Rules {
			a.Rules[i] = strings.TrimSpace(rule)
			if a.Rules[i] == "" {
				return &ValidationError{Kind: a.Kind(), Fields: []FieldError{{Field: fmt.Sprintf("rules[%d]", i), Message: "rule is blank"}}}
			}
		}
	case *types.MustHaves:
		var fields []FieldError
		for i, p := range a.RequiredPaths {
			if _, err := validation.ParseFieldPath(p); err != nil {
				fields = append(fields, FieldError{Field: fmt.Sprintf("required_paths[%d]", i), Message: err.Error()})
			}
		}
		if len(fields) > 0 {
			return &ValidationError{Kind: a.Kind(), Fields: fields}
		}
	case *types.ReturnFormat:
		if _, err := schemas.Compile(a.Schema); err != nil {
			return &ValidationError{Kind: a.Kind(), Fields: []FieldError{{Field: "schema", Message: err.Error()}}, Cause: err}
		}
	}
	return nil
}

func fromValidator(kind types.ArtifactKind, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Kind: kind, Fields: []FieldError{{Field: "body", Message: err.Error()}}, Cause: err}
	}
	fields := make([]FieldError, len(verrs))
	for i, fe := range verrs {
		fields[i] = FieldError{Field: fe.Field(), Message: "failed on " + fe.Tag()}
	}
	return &ValidationError{Kind: kind, Fields: fields, Cause: err}
}

func unknownKind(kind types.ArtifactKind) error {
	return &ValidationError{Kind: kind, Fields: []FieldError{{Field: "kind", Message: fmt.Sprintf("unknown artifact kind %q", kind)}}}
}
