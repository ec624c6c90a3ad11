package validation

import (
	"encoding/json"
	"fmt"
	"sort"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindNumber
	kindInteger
	kindBool
	kindArray
	kindObject
)

func (k fieldKind) String() string {
	switch k {
	case kindString:
		return "string"
	case kindNumber:
		return "number"
	case kindInteger:
		return "integer"
	case kindBool:
		return "boolean"
	case kindArray:
		return "array"
	default:
		return "object"
	}
}

var (
	planFields  = map[string]fieldKind{"name": kindString, "phases": kindArray}
	phaseFields = map[string]fieldKind{"name": kindString, "runTypes": kindObject, "weeks": kindArray}
	weekFields  = map[string]fieldKind{"weekNumber": kindInteger, "focus": kindString, "runs": kindArray}
	runFields   = map[string]fieldKind{
		"type":            kindString,
		"day":             kindString,
		"miles":           kindNumber,
		"durationMinutes": kindInteger,
		"description":     kindString,
	}
)

// checkFieldKinds walks the fields the typed plan decodes and reports the first one whose
// JSON kind cannot be decoded, with its indexed path. Null and absent fields are fine.
func checkFieldKinds(doc map[string]any) error {
	if err := checkObjectKinds(doc, planFields, ""); err != nil {
		return err
	}

	phases, _ := doc["phases"].([]any)
	for i, p := range phases {
		loc := fmt.Sprintf("phases[%d]", i)
		phase, err := objectAt(p, loc)
		if err != nil {
			return err
		}
		if phase == nil {
			continue
		}
		if err := checkObjectKinds(phase, phaseFields, loc); err != nil {
			return err
		}
		if flags, ok := phase["runTypes"].(map[string]any); ok {
			for _, key := range sortedKeys(flags) {
				if err := checkKind(flags[key], kindBool, loc+".runTypes."+key); err != nil {
					return err
				}
			}
		}

		weeks, _ := phase["weeks"].([]any)
		for j, w := range weeks {
			weekLoc := fmt.Sprintf("%s.weeks[%d]", loc, j)
			week, err := objectAt(w, weekLoc)
			if err != nil {
				return err
			}
			if week == nil {
				continue
			}
			if err := checkObjectKinds(week, weekFields, weekLoc); err != nil {
				return err
			}

			runs, _ := week["runs"].([]any)
			for k, r := range runs {
				runLoc := fmt.Sprintf("%s.runs[%d]", weekLoc, k)
				run, err := objectAt(r, runLoc)
				if err != nil {
					return err
				}
				if run == nil {
					continue
				}
				if err := checkObjectKinds(run, runFields, runLoc); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func objectAt(v any, loc string) (map[string]any, error) {
	if v == nil {
		return nil, nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, kindMismatch(loc, kindObject, v)
	}
	return obj, nil
}

func checkObjectKinds(obj map[string]any, fields map[string]fieldKind, loc string) error {
	for _, name := range sortedKeys(fields) {
		path := name
		if loc != "" {
			path = loc + "." + name
		}
		if err := checkKind(obj[name], fields[name], path); err != nil {
			return err
		}
	}
	return nil
}

func checkKind(v any, want fieldKind, path string) error {
	if v == nil {
		return nil
	}
	ok := false
	switch want {
	case kindString:
		_, ok = v.(string)
	case kindBool:
		_, ok = v.(bool)
	case kindArray:
		_, ok = v.([]any)
	case kindObject:
		_, ok = v.(map[string]any)
	case kindNumber:
		switch n := v.(type) {
		case json.Number:
			_, err := n.Float64()
			ok = err == nil
		case float64:
			ok = true
		}
	case kindInteger:
		switch n := v.(type) {
		case json.Number:
			_, err := n.Int64()
			ok = err == nil
		case int:
			ok = true
		}
	}
	if !ok {
		return kindMismatch(path, want, v)
	}
	return nil
}

func kindMismatch(path string, want fieldKind, v any) error {
	got := jsonKind(v)
	if n, isNumber := v.(json.Number); isNumber && want == kindInteger {
		got = "number " + n.String()
	}
	return &SchemaMismatch{
		Path:    path,
		Message: fmt.Sprintf("expected %s, got %s", want, got),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
