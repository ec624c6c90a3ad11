package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/training-planner/internal/policy"
	"github.com/jonathan/training-planner/internal/types"
)

// checkSemantics applies the domain rules in fixed order and reports the first violation.
func checkSemantics(doc map[string]any, required []FieldPath, race *types.Race) error {
	if err := checkPhaseOrder(doc); err != nil {
		return err
	}
	if err := checkRunTypes(doc); err != nil {
		return err
	}
	if err := checkMustHaves(doc, required); err != nil {
		return err
	}
	if race != nil {
		return checkRaceDistance(*race)
	}
	return nil
}

func checkPhaseOrder(doc map[string]any) error {
	phases, ok := doc["phases"].([]any)
	if !ok {
		return &DomainInvariantViolation{
			Invariant: InvariantPhaseOrder,
			Path:      "phases",
			Value:     doc["phases"],
			Message:   "plan has no phases array",
		}
	}

	names := make([]string, len(phases))
	for i, p := range phases {
		phase, _ := p.(map[string]any)
		name, ok := phase["name"].(string)
		if !ok {
			return &DomainInvariantViolation{
				Invariant: InvariantPhaseOrder,
				Path:      fmt.Sprintf("phases[%d].name", i),
				Value:     phase["name"],
				Message:   "phase name must be a string",
			}
		}
		names[i] = name
	}

	if policy.PhaseOrderValid(names) {
		return nil
	}

	path := "phases"
	for i, name := range names {
		if _, err := policy.PhaseIndex(name); err != nil {
			path = fmt.Sprintf("phases[%d].name", i)
			break
		}
	}
	return &DomainInvariantViolation{
		Invariant: InvariantPhaseOrder,
		Path:      path,
		Value:     strings.Join(names, ","),
		Message:   "phases must be exactly " + strings.Join(policy.CanonicalPhases(), ", ") + " in that order",
	}
}

func checkRunTypes(doc map[string]any) error {
	phases, _ := doc["phases"].([]any)
	for i, p := range phases {
		phase, _ := p.(map[string]any)

		if flags, ok := phase["runTypes"].(map[string]any); ok {
			keys := make([]string, 0, len(flags))
			for key := range flags {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				if !policy.IsCanonicalRunType(key) {
					return vocabularyViolation(fmt.Sprintf("phases[%d].runTypes.%s", i, key), key)
				}
			}
		}

		weeks, _ := phase["weeks"].([]any)
		for j, w := range weeks {
			week, _ := w.(map[string]any)
			runs, _ := week["runs"].([]any)
			for k, r := range runs {
				run, _ := r.(map[string]any)
				token, ok := run["type"].(string)
				if !ok || !policy.IsCanonicalRunType(token) {
					return vocabularyViolation(fmt.Sprintf("phases[%d].weeks[%d].runs[%d].type", i, j, k), run["type"])
				}
			}
		}
	}
	return nil
}

func vocabularyViolation(path string, value any) error {
	return &DomainInvariantViolation{
		Invariant: InvariantRunTypeVocabulary,
		Path:      path,
		Value:     value,
		Message:   "run type must be one of " + strings.Join(policy.CanonicalRunTypes(), ", "),
	}
}

func checkMustHaves(doc map[string]any, required []FieldPath) error {
	for _, fp := range required {
		if at, missing := fp.Missing(doc); missing {
			return &DomainInvariantViolation{
				Invariant: InvariantMustHavePresent,
				Path:      at,
				Value:     fp.String(),
				Message:   "required field is missing or null",
			}
		}
	}
	return nil
}

func checkRaceDistance(race types.Race) error {
	err := policy.CheckRaceDistance(race)
	if err == nil {
		return nil
	}

	violation := &DomainInvariantViolation{
		Invariant: InvariantRaceDistance,
		Path:      "race.miles",
		Value:     race.Miles,
		Message:   err.Error(),
		Cause:     err,
	}
	var unknown *policy.UnknownRaceTypeError
	if errors.As(err, &unknown) {
		violation.Path = "race.race_type"
		violation.Value = race.RaceType
	}
	return violation
}
