package validation

import (
	"fmt"
	"sort"

	"github.com/jonathan/training-planner/internal/policy"
)

// normalize applies the two permitted rewrites in place: run-type variants become
// canonical tokens, and absent runTypes flags of canonically named phases take the
// phase defaults. Values that cannot be normalized are left for the semantic stage.
func normalize(doc map[string]any) []Normalization {
	var applied []Normalization

	phases, _ := doc["phases"].([]any)
	for i, p := range phases {
		phase, ok := p.(map[string]any)
		if !ok {
			continue
		}
		loc := fmt.Sprintf("phases[%d]", i)

		applied = append(applied, normalizeRunTypeFlags(phase, loc)...)

		weeks, _ := phase["weeks"].([]any)
		for j, w := range weeks {
			week, ok := w.(map[string]any)
			if !ok {
				continue
			}
			runs, _ := week["runs"].([]any)
			for k, r := range runs {
				run, ok := r.(map[string]any)
				if !ok {
					continue
				}
				token, ok := run["type"].(string)
				if !ok {
					continue
				}
				canonical, ok := policy.NormalizeRunType(token)
				if !ok || canonical == token {
					continue
				}
				run["type"] = canonical
				applied = append(applied, Normalization{
					Path: fmt.Sprintf("%s.weeks[%d].runs[%d].type", loc, j, k),
					From: token,
					To:   canonical,
				})
			}
		}
	}

	return applied
}

func normalizeRunTypeFlags(phase map[string]any, loc string) []Normalization {
	var applied []Normalization
	path := loc + ".runTypes"

	var flags map[string]any
	switch v := phase["runTypes"].(type) {
	case map[string]any:
		flags = v
	case nil:
		// absent or null
	default:
		return nil
	}

	// Variant keys take the canonical name when it is free
	keys := make([]string, 0, len(flags))
	for key := range flags {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		canonical, ok := policy.NormalizeRunType(key)
		if !ok || canonical == key {
			continue
		}
		if _, taken := flags[canonical]; taken {
			continue
		}
		flags[canonical] = flags[key]
		delete(flags, key)
		applied = append(applied, Normalization{Path: path + "." + key, From: key, To: canonical})
	}

	name, _ := phase["name"].(string)
	defaults, err := policy.DefaultRunTypesForPhase(name)
	if err != nil {
		return applied
	}

	if flags == nil {
		flags = make(map[string]any, 4)
		phase["runTypes"] = flags
	}

	fill := []struct {
		key   string
		value bool
	}{
		{policy.RunEasy, defaults.Easy},
		{policy.RunTempo, defaults.Tempo},
		{policy.RunIntervals, defaults.Intervals},
		{policy.RunLongRun, defaults.LongRun},
	}
	for _, f := range fill {
		if v, ok := flags[f.key]; ok && v != nil {
			continue
		}
		flags[f.key] = f.value
		applied = append(applied, Normalization{Path: path + "." + f.key, From: nil, To: f.value})
	}

	return applied
}
