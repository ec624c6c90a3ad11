package validation

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jonathan/training-planner/internal/types"
	"github.com/stretchr/testify/require"
)

const planSchema = `{
	"type": "object",
	"required": ["phases"],
	"properties": {
		"name": {"type": "string"},
		"phases": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name", "weeks"],
				"properties": {
					"name": {"type": "string"},
					"weeks": {"type": "array", "items": {"type": "object", "required": ["runs"]}}
				}
			}
		}
	}
}`

func run(runType string, miles float64) map[string]any {
	return map[string]any{"type": runType, "day": "Tue", "miles": miles}
}

func week(number int, runs ...map[string]any) map[string]any {
	items := make([]any, len(runs))
	for i, r := range runs {
		items[i] = r
	}
	return map[string]any{"weekNumber": number, "focus": "aerobic", "runs": items}
}

func phase(name string, weeks ...map[string]any) map[string]any {
	items := make([]any, len(weeks))
	for i, w := range weeks {
		items[i] = w
	}
	return map[string]any{"name": name, "weeks": items}
}

func planDoc(phases ...map[string]any) map[string]any {
	items := make([]any, len(phases))
	for i, p := range phases {
		items[i] = p
	}
	return map[string]any{"name": "Half Plan", "phases": items}
}

func validPlanDoc() map[string]any {
	return planDoc(
		phase("base", week(1, run("easy", 4), run("longRun", 8))),
		phase("build", week(1, run("easy", 5), run("tempo", 5), run("longRun", 10))),
		phase("peak", week(1, run("intervals", 6), run("tempo", 6), run("longRun", 12))),
		phase("taper", week(1, run("easy", 3), run("tempo", 3))),
	)
}

func encode(t *testing.T, doc any) []byte {
	t.Helper()
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	return raw
}

func halfRace() *types.Race {
	return &types.Race{
		Name:     "Riverfront Half",
		RaceType: "half",
		Miles:    13.1,
		Date:     time.Date(2026, 4, 12, 0, 0, 0, 0, time.UTC),
	}
}

func runAt(doc map[string]any, phase, week, run int) map[string]any {
	weeks := doc["phases"].([]any)[phase].(map[string]any)["weeks"].([]any)
	return weeks[week].(map[string]any)["runs"].([]any)[run].(map[string]any)
}

// checkDecode round-trips doc through JSON so numbers arrive as json.Number, then decodes it.
func checkDecode(doc map[string]any) (*types.ValidatedPlan, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	decoded, err := decodeDocument(raw)
	if err != nil {
		return nil, err
	}
	return decodePlan(decoded)
}
