// Package seed loads YAML bundles of configuration artifacts and races into storage.
package seed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/training-planner/internal/types"
)

// Bundle is the decoded content of a seed file
type Bundle struct {
	Roles         []RoleEntry         `yaml:"roles"`
	RuleSets      []RuleSetEntry      `yaml:"rule_sets"`
	MustHaves     []MustHavesEntry    `yaml:"must_haves"`
	ReturnFormats []ReturnFormatEntry `yaml:"return_formats"`
	Races         []types.Race        `yaml:"races"`
}

// RoleEntry seeds a Role
type RoleEntry struct {
	Title              string `yaml:"title" json:"title"`
	SystemInstructions string `yaml:"system_instructions" json:"system_instructions"`
}

// RuleSetEntry seeds a RuleSet
type RuleSetEntry struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description,omitempty"`
	Rules       []string `yaml:"rules" json:"rules"`
}

// MustHavesEntry seeds a MustHaves
type MustHavesEntry struct {
	Name          string   `yaml:"name" json:"name"`
	RequiredPaths []string `yaml:"required_paths" json:"required_paths"`
}

// ReturnFormatEntry seeds a ReturnFormat. The schema is given inline or as a path
// relative to the bundle file.
type ReturnFormatEntry struct {
	Name       string `yaml:"name"`
	Schema     any    `yaml:"schema"`
	SchemaFile string `yaml:"schema_file"`
}

// Item is one artifact of a bundle, ready for the registry
type Item struct {
	Kind    types.ArtifactKind
	Name    string
	Payload []byte
}

// Load reads and parses a bundle file
func Load(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &BundleError{Message: "failed to read " + path, Cause: err}
	}
	bundle, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := bundle.resolveSchemaFiles(filepath.Dir(path)); err != nil {
		return nil, err
	}
	return bundle, nil
}

// Parse decodes bundle YAML. Unknown keys are rejected.
func Parse(data []byte) (*Bundle, error) {
	var bundle Bundle
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&bundle); err != nil {
		if errors.Is(err, io.EOF) {
			return &bundle, nil
		}
		return nil, &BundleError{Message: "invalid YAML", Cause: err}
	}
	return &bundle, nil
}

func (b *Bundle) resolveSchemaFiles(dir string) error {
	for i := range b.ReturnFormats {
		rf := &b.ReturnFormats[i]
		if rf.SchemaFile == "" {
			continue
		}
		if rf.Schema != nil {
			return &BundleError{Entry: rf.Name, Message: "schema and schema_file are mutually exclusive"}
		}
		path := rf.SchemaFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return &BundleError{Entry: rf.Name, Message: "failed to read schema file", Cause: err}
		}
		rf.Schema = json.RawMessage(data)
		rf.SchemaFile = ""
	}
	return nil
}

// Items returns the bundle's artifacts as registry payloads, in kind order
func (b *Bundle) Items() ([]Item, error) {
	var items []Item
	add := func(kind types.ArtifactKind, name string, v any) error {
		payload, err := json.Marshal(v)
		if err != nil {
			return &BundleError{Entry: name, Message: fmt.Sprintf("failed to encode %s", kind), Cause: err}
		}
		items = append(items, Item{Kind: kind, Name: name, Payload: payload})
		return nil
	}

	for _, r := range b.Roles {
		if err := add(types.KindRole, r.Title, r); err != nil {
			return nil, err
		}
	}
	for _, r := range b.RuleSets {
		if err := add(types.KindRuleSet, r.Name, r); err != nil {
			return nil, err
		}
	}
	for _, m := range b.MustHaves {
		if err := add(types.KindMustHaves, m.Name, m); err != nil {
			return nil, err
		}
	}
	for _, rf := range b.ReturnFormats {
		if rf.Schema == nil {
			return nil, &BundleError{Entry: rf.Name, Message: "return format has no schema"}
		}
		schema, err := json.Marshal(rf.Schema)
		if err != nil {
			return nil, &BundleError{Entry: rf.Name, Message: "schema cannot be encoded as JSON", Cause: err}
		}
		payload := map[string]any{"name": rf.Name, "schema": json.RawMessage(schema)}
		if err := add(types.KindReturnFormat, rf.Name, payload); err != nil {
			return nil, err
		}
	}
	return items, nil
}
