// Package schemas provides JSON Schema validation for documents held in memory.
package schemas

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// RootField is the field name reported for errors that apply to the whole document
const RootField = "(root)"

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema: %s", e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// First returns the first field error, ordered by field path
func (ve *ValidationError) First() FieldError {
	if len(ve.Errors) == 0 {
		return FieldError{Field: RootField}
	}
	return ve.Errors[0]
}

// Compile checks that schema is a loadable JSON Schema document.
func Compile(schema []byte) (*gojsonschema.Schema, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schema))
	if err != nil {
		return nil, &SchemaLoadError{Message: "invalid JSON schema", Cause: err}
	}
	return compiled, nil
}

// ValidateDocument validates JSON document bytes against schema bytes.
// It returns *SchemaLoadError when the schema cannot be compiled and
// *ValidationError when the document does not conform.
func ValidateDocument(schema, document []byte) error {
	compiled, err := Compile(schema)
	if err != nil {
		return err
	}
	return ValidateCompiled(compiled, document)
}

// ValidateCompiled validates document bytes against an already compiled schema.
func ValidateCompiled(compiled *gojsonschema.Schema, document []byte) error {
	result, err := compiled.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return &ValidationError{Errors: []FieldError{{Field: RootField, Message: fmt.Sprintf("document is not valid JSON: %v", err)}}}
	}
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = RootField
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	// gojsonschema walks object properties in map order
	sort.SliceStable(validationErr.Errors, func(i, j int) bool {
		return validationErr.Errors[i].Field < validationErr.Errors[j].Field
	})

	return validationErr
}
