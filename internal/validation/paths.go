package validation

import (
	"fmt"
	"strings"
)

// Segment is one key of a field path. Each marks a "[]" suffix: the key holds an
// array and the rest of the path applies to every element.
type Segment struct {
	Key  string
	Each bool
}

// FieldPath addresses values in a decoded JSON document, e.g. "phases[].weeks[].focus"
type FieldPath struct {
	raw      string
	Segments []Segment
}

// ParseFieldPath parses dot-separated keys with optional "[]" suffixes.
func ParseFieldPath(s string) (FieldPath, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return FieldPath{}, &PathSyntaxError{Path: s, Message: "path is empty"}
	}

	parts := strings.Split(raw, ".")
	segments := make([]Segment, 0, len(parts))
	for i, part := range parts {
		seg := Segment{Key: part}
		if strings.HasSuffix(part, "[]") {
			seg.Key = strings.TrimSuffix(part, "[]")
			seg.Each = true
		}
		if seg.Key == "" {
			return FieldPath{}, &PathSyntaxError{Path: s, Message: fmt.Sprintf("segment %d has no key", i+1)}
		}
		if strings.ContainsAny(seg.Key, "[] \t\n") {
			return FieldPath{}, &PathSyntaxError{Path: s, Message: fmt.Sprintf("segment %q contains brackets or whitespace", part)}
		}
		segments = append(segments, seg)
	}

	return FieldPath{raw: raw, Segments: segments}, nil
}

// MustParseFieldPath is ParseFieldPath that panics on error. For constants only.
func MustParseFieldPath(s string) FieldPath {
	p, err := ParseFieldPath(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p FieldPath) String() string {
	return p.raw
}

// Missing reports the first concrete location at which the path is absent or null.
// Arrays named with "[]" must exist; an empty array has no elements to check.
func (p FieldPath) Missing(doc any) (string, bool) {
	return missingFrom(doc, p.Segments, "")
}

func missingFrom(node any, segments []Segment, loc string) (string, bool) {
	if len(segments) == 0 {
		if node == nil {
			return loc, true
		}
		return "", false
	}

	seg := segments[0]
	here := seg.Key
	if loc != "" {
		here = loc + "." + seg.Key
	}

	obj, ok := node.(map[string]any)
	if !ok {
		return here, true
	}
	value, ok := obj[seg.Key]
	if !ok || value == nil {
		return here, true
	}

	if !seg.Each {
		return missingFrom(value, segments[1:], here)
	}

	items, ok := value.([]any)
	if !ok {
		return here, true
	}
	for i, item := range items {
		if at, missing := missingFrom(item, segments[1:], fmt.Sprintf("%s[%d]", here, i)); missing {
			return at, true
		}
	}
	return "", false
}
