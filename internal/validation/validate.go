// Package validation checks generated plans against the return format schema and the
// domain rules before they may be materialized.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jonathan/training-planner/internal/schemas"
	"github.com/jonathan/training-planner/internal/types"
)

// Input carries everything the validator needs besides the raw output
type Input struct {
	// Schema is the return format JSON schema
	Schema []byte
	// RequiredPaths are the must-have field paths
	RequiredPaths []string
	// Race, when set, is checked for distance consistency
	Race *types.Race
}

// Normalization records one rewrite applied to the output
type Normalization struct {
	Path string `json:"path"`
	From any    `json:"from"`
	To   any    `json:"to"`
}

// Result is a validated plan with the normalizations that produced it
type Result struct {
	Plan           *types.ValidatedPlan
	Normalizations []Normalization
}

// Validate runs the structural stage, the normalizations and the semantic stage over raw,
// then decodes the typed plan. Failures are *SchemaMismatch or *DomainInvariantViolation.
func Validate(raw []byte, in Input) (*Result, error) {
	doc, err := decodeDocument(raw)
	if err != nil {
		return nil, err
	}

	if err := checkSchema(in.Schema, raw); err != nil {
		return nil, err
	}

	paths := make([]FieldPath, 0, len(in.RequiredPaths))
	for _, p := range in.RequiredPaths {
		fp, err := ParseFieldPath(p)
		if err != nil {
			return nil, &DomainInvariantViolation{
				Invariant: InvariantMustHavePresent,
				Path:      p,
				Value:     p,
				Message:   "required path cannot be parsed",
				Cause:     err,
			}
		}
		paths = append(paths, fp)
	}

	normalizations := normalize(doc)

	if err := checkSemantics(doc, paths, in.Race); err != nil {
		return nil, err
	}

	plan, err := decodePlan(doc)
	if err != nil {
		return nil, err
	}

	return &Result{Plan: plan, Normalizations: normalizations}, nil
}

func decodeDocument(raw []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, &SchemaMismatch{Path: schemas.RootField, Message: "output is empty"}
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &SchemaMismatch{Path: schemas.RootField, Message: "output is not valid JSON", Cause: err}
	}
	if dec.More() {
		return nil, &SchemaMismatch{Path: schemas.RootField, Message: "output contains more than one JSON value"}
	}

	doc, ok := v.(map[string]any)
	if !ok {
		return nil, &SchemaMismatch{Path: schemas.RootField, Message: fmt.Sprintf("output must be a JSON object, got %s", jsonKind(v))}
	}
	return doc, nil
}

func checkSchema(schema, raw []byte) error {
	err := schemas.ValidateDocument(schema, raw)
	if err == nil {
		return nil
	}

	var loadErr *schemas.SchemaLoadError
	if errors.As(err, &loadErr) {
		return &SchemaMismatch{Path: SchemaPath, Message: "return format schema does not compile", Cause: err}
	}

	var verr *schemas.ValidationError
	if errors.As(err, &verr) {
		first := verr.First()
		return &SchemaMismatch{Path: first.Field, Message: first.Message, Errors: verr.Errors, Cause: err}
	}
	return &SchemaMismatch{Path: schemas.RootField, Message: err.Error(), Cause: err}
}

func decodePlan(doc map[string]any) (*types.ValidatedPlan, error) {
	if err := checkFieldKinds(doc); err != nil {
		return nil, err
	}

	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, &SchemaMismatch{Path: schemas.RootField, Message: "normalized output cannot be encoded", Cause: err}
	}

	var plan types.ValidatedPlan
	if err := json.Unmarshal(normalized, &plan); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			path := typeErr.Field
			if path == "" {
				path = schemas.RootField
			}
			return nil, &SchemaMismatch{
				Path:    path,
				Message: fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value),
				Cause:   err,
			}
		}
		return nil, &SchemaMismatch{Path: schemas.RootField, Message: err.Error(), Cause: err}
	}
	return &plan, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	default:
		return strings.ToLower(fmt.Sprintf("%T", v))
	}
}
