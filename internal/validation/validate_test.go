package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jonathan/training-planner/internal/policy"
	"github.com/jonathan/training-planner/internal/schemas"
	"github.com/jonathan/training-planner/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidPlan(t *testing.T) {
	res, err := Validate(encode(t, validPlanDoc()), Input{
		Schema:        []byte(planSchema),
		RequiredPaths: []string{"name", "phases[].weeks[].runs[].type"},
		Race:          halfRace(),
	})
	require.NoError(t, err)

	plan := res.Plan
	assert.Equal(t, "Half Plan", plan.Name)
	assert.Equal(t, []string{"base", "build", "peak", "taper"}, plan.PhaseNames())
	assert.Equal(t, 4, plan.TotalWeeks())
	assert.Equal(t, "longRun", plan.Phases[0].Weeks[0].Runs[1].Type)
	assert.Equal(t, 8.0, plan.Phases[0].Weeks[0].Runs[1].Miles)
}

func TestValidate_RepositorySchema(t *testing.T) {
	schema, err := os.ReadFile(filepath.Join("..", "..", "schemas", "training_plan.schema.json"))
	require.NoError(t, err)

	_, err = Validate(encode(t, validPlanDoc()), Input{Schema: schema})
	require.NoError(t, err)

	doc := validPlanDoc()
	delete(doc, "name")
	_, err = Validate(encode(t, doc), Input{Schema: schema})
	var mismatch *SchemaMismatch
	require.ErrorAs(t, err, &mismatch)
}

func TestValidate_FillsDefaultRunTypes(t *testing.T) {
	doc := validPlanDoc()
	phases := doc["phases"].([]any)
	phases[1].(map[string]any)["runTypes"] = map[string]any{"intervals": false}
	phases[3].(map[string]any)["runTypes"] = nil

	res, err := Validate(encode(t, doc), Input{Schema: []byte(planSchema)})
	require.NoError(t, err)

	base, _ := policy.DefaultRunTypesForPhase("base")
	taper, _ := policy.DefaultRunTypesForPhase("taper")
	assert.Equal(t, base, res.Plan.Phases[0].RunTypes)
	assert.Equal(t, types.RunTypeSet{Easy: true, Tempo: true, Intervals: false, LongRun: true}, res.Plan.Phases[1].RunTypes)
	assert.Equal(t, taper, res.Plan.Phases[3].RunTypes)
	assert.NotEmpty(t, res.Normalizations)
}

func TestValidate_ExplicitRunTypesNotOverridden(t *testing.T) {
	doc := validPlanDoc()
	doc["phases"].([]any)[0].(map[string]any)["runTypes"] = map[string]any{
		"easy": false, "tempo": true, "intervals": true, "longRun": false,
	}

	res, err := Validate(encode(t, doc), Input{Schema: []byte(planSchema)})
	require.NoError(t, err)
	assert.Equal(t, types.RunTypeSet{Tempo: true, Intervals: true}, res.Plan.Phases[0].RunTypes)
}

func TestValidate_NormalizesRunTypeVariants(t *testing.T) {
	for _, variant := range []string{"Long Run", "long_run", "longrun", "LONG-RUN"} {
		t.Run(variant, func(t *testing.T) {
			doc := validPlanDoc()
			runs := doc["phases"].([]any)[0].(map[string]any)["weeks"].([]any)[0].(map[string]any)["runs"].([]any)
			runs[1].(map[string]any)["type"] = variant

			res, err := Validate(encode(t, doc), Input{Schema: []byte(planSchema)})
			require.NoError(t, err)
			assert.Equal(t, policy.RunLongRun, res.Plan.Phases[0].Weeks[0].Runs[1].Type)
			assert.Contains(t, res.Normalizations, Normalization{
				Path: "phases[0].weeks[0].runs[1].type", From: variant, To: "longRun",
			})
		})
	}
}

func TestValidate_NormalizesRunTypeFlagKeys(t *testing.T) {
	doc := validPlanDoc()
	doc["phases"].([]any)[2].(map[string]any)["runTypes"] = map[string]any{"long_run": false}

	res, err := Validate(encode(t, doc), Input{Schema: []byte(planSchema)})
	require.NoError(t, err)
	assert.False(t, res.Plan.Phases[2].RunTypes.LongRun)
	assert.True(t, res.Plan.Phases[2].RunTypes.Intervals)
}

func TestValidate_UnknownRunTypeRejected(t *testing.T) {
	doc := validPlanDoc()
	runs := doc["phases"].([]any)[2].(map[string]any)["weeks"].([]any)[0].(map[string]any)["runs"].([]any)
	runs[0].(map[string]any)["type"] = "sprint"

	_, err := Validate(encode(t, doc), Input{Schema: []byte(planSchema)})
	var violation *DomainInvariantViolation
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, InvariantRunTypeVocabulary, violation.Invariant)
	assert.Equal(t, "phases[2].weeks[0].runs[0].type", violation.Path)
	assert.Equal(t, "sprint", violation.Value)
}

func TestValidate_UnknownRunTypeFlagRejected(t *testing.T) {
	doc := validPlanDoc()
	doc["phases"].([]any)[0].(map[string]any)["runTypes"] = map[string]any{"fartlek": true}

	_, err := Validate(encode(t, doc), Input{Schema: []byte(planSchema)})
	var violation *DomainInvariantViolation
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, InvariantRunTypeVocabulary, violation.Invariant)
	assert.Equal(t, "phases[0].runTypes.fartlek", violation.Path)
}

func TestValidate_PhaseOrder(t *testing.T) {
	tests := []struct {
		name   string
		phases []string
		path   string
	}{
		{"reordered", []string{"base", "peak", "build", "taper"}, "phases"},
		{"missing taper", []string{"base", "build", "peak"}, "phases"},
		{"duplicate", []string{"base", "build", "build", "peak", "taper"}, "phases"},
		{"unnormalized name", []string{"Base Phase", "build", "peak", "taper"}, "phases[0].name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ps []map[string]any
			for _, name := range tt.phases {
				ps = append(ps, phase(name, week(1, run("easy", 3))))
			}

			_, err := Validate(encode(t, planDoc(ps...)), Input{Schema: []byte(planSchema)})
			var violation *DomainInvariantViolation
			require.ErrorAs(t, err, &violation)
			assert.Equal(t, InvariantPhaseOrder, violation.Invariant)
			assert.Equal(t, tt.path, violation.Path)
		})
	}
}

func TestValidate_PhaseOrderCheckedBeforeVocabulary(t *testing.T) {
	doc := planDoc(
		phase("base", week(1, run("sprint", 3))),
		phase("peak", week(1, run("easy", 3))),
		phase("build", week(1, run("easy", 3))),
		phase("taper", week(1, run("easy", 3))),
	)

	_, err := Validate(encode(t, doc), Input{Schema: []byte(planSchema)})
	var violation *DomainInvariantViolation
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, InvariantPhaseOrder, violation.Invariant)
}

func TestValidate_MustHaveMissing(t *testing.T) {
	doc := validPlanDoc()
	delete(doc["phases"].([]any)[3].(map[string]any)["weeks"].([]any)[0].(map[string]any), "focus")

	_, err := Validate(encode(t, doc), Input{
		Schema:        []byte(planSchema),
		RequiredPaths: []string{"name", "phases[].weeks[].focus"},
	})
	var violation *DomainInvariantViolation
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, InvariantMustHavePresent, violation.Invariant)
	assert.Equal(t, "phases[3].weeks[0].focus", violation.Path)
	assert.Equal(t, "phases[].weeks[].focus", violation.Value)
}

func TestValidate_MustHaveNull(t *testing.T) {
	doc := validPlanDoc()
	doc["name"] = nil

	_, err := Validate(encode(t, doc), Input{Schema: []byte(planSchema), RequiredPaths: []string{"name"}})
	var violation *DomainInvariantViolation
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, "name", violation.Path)
}

func TestValidate_RaceDistanceMismatch(t *testing.T) {
	race := halfRace()
	race.Miles = 26.2

	_, err := Validate(encode(t, validPlanDoc()), Input{Schema: []byte(planSchema), Race: race})
	var violation *DomainInvariantViolation
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, InvariantRaceDistance, violation.Invariant)
	assert.Equal(t, "race.miles", violation.Path)
	assert.Equal(t, 26.2, violation.Value)

	var mismatch *policy.RaceDistanceMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestValidate_UnknownRaceType(t *testing.T) {
	race := halfRace()
	race.RaceType = "ultra"

	_, err := Validate(encode(t, validPlanDoc()), Input{Schema: []byte(planSchema), Race: race})
	var violation *DomainInvariantViolation
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, InvariantRaceDistance, violation.Invariant)
	assert.Equal(t, "race.race_type", violation.Path)
}

func TestValidate_StructuralFailures(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		schema string
		path   string
	}{
		{"empty", "  ", planSchema, schemas.RootField},
		{"not json", "plan: yes", planSchema, schemas.RootField},
		{"array root", `[1, 2]`, planSchema, schemas.RootField},
		{"two values", `{"phases": []} {}`, planSchema, schemas.RootField},
		{"missing required", `{"name": "x"}`, planSchema, schemas.RootField},
		{"wrong type", `{"phases": [{"name": 3, "weeks": []}]}`, planSchema, "phases.0.name"},
		{"bad schema", `{"phases": []}`, `{"type": "nope"}`, SchemaPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate([]byte(tt.raw), Input{Schema: []byte(tt.schema)})
			var mismatch *SchemaMismatch
			require.ErrorAs(t, err, &mismatch)
			assert.Equal(t, tt.path, mismatch.Path)
		})
	}
}

func TestValidate_StructuralBeforeSemantic(t *testing.T) {
	doc := planDoc(
		phase("taper", week(1, run("sprint", 3))),
	)
	doc["phases"].([]any)[0].(map[string]any)["weeks"] = "none"

	_, err := Validate(encode(t, doc), Input{Schema: []byte(planSchema)})
	var mismatch *SchemaMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "phases.0.weeks", mismatch.Path)
}

func TestValidate_TypedDecodeFailure(t *testing.T) {
	doc := validPlanDoc()
	runs := doc["phases"].([]any)[0].(map[string]any)["weeks"].([]any)[0].(map[string]any)["runs"].([]any)
	runs[0].(map[string]any)["miles"] = "four"

	_, err := Validate(encode(t, doc), Input{Schema: []byte(planSchema)})
	var mismatch *SchemaMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "phases[0].weeks[0].runs[0].miles", mismatch.Path)
	assert.Equal(t, "expected number, got string", mismatch.Message)
}

func TestValidate_TypedDecodeFailureIsIndexed(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(doc map[string]any)
		path    string
		message string
	}{
		{
			name: "duration as text",
			mutate: func(doc map[string]any) {
				runAt(doc, 2, 0, 1)["durationMinutes"] = "forty"
			},
			path:    "phases[2].weeks[0].runs[1].durationMinutes",
			message: "expected integer, got string",
		},
		{
			name: "fractional duration",
			mutate: func(doc map[string]any) {
				runAt(doc, 1, 0, 2)["durationMinutes"] = 42.5
			},
			path:    "phases[1].weeks[0].runs[2].durationMinutes",
			message: "expected integer, got number 42.5",
		},
		{
			name: "week number as text",
			mutate: func(doc map[string]any) {
				doc["phases"].([]any)[3].(map[string]any)["weeks"].([]any)[0].(map[string]any)["weekNumber"] = "one"
			},
			path:    "phases[3].weeks[0].weekNumber",
			message: "expected integer, got string",
		},
		{
			name: "run type flag as text",
			mutate: func(doc map[string]any) {
				doc["phases"].([]any)[1].(map[string]any)["runTypes"] = map[string]any{"tempo": "yes"}
			},
			path:    "phases[1].runTypes.tempo",
			message: "expected boolean, got string",
		},
		{
			name: "run is not an object",
			mutate: func(doc map[string]any) {
				doc["phases"].([]any)[0].(map[string]any)["weeks"].([]any)[0].(map[string]any)["runs"].([]any)[1] = "rest"
			},
			path:    "phases[0].weeks[0].runs[1]",
			message: "expected object, got string",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validPlanDoc()
			tt.mutate(doc)

			_, err := checkDecode(doc)
			var mismatch *SchemaMismatch
			require.ErrorAs(t, err, &mismatch)
			assert.Equal(t, tt.path, mismatch.Path)
			assert.Equal(t, tt.message, mismatch.Message)
		})
	}
}

func TestValidate_DurationTextWithPermissiveSchema(t *testing.T) {
	doc := validPlanDoc()
	runAt(doc, 2, 0, 0)["durationMinutes"] = "forty"

	_, err := Validate(encode(t, doc), Input{Schema: []byte(`{}`)})
	var mismatch *SchemaMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "phases[2].weeks[0].runs[0].durationMinutes", mismatch.Path)
}

func TestValidate_InvalidRequiredPath(t *testing.T) {
	_, err := Validate(encode(t, validPlanDoc()), Input{Schema: []byte(planSchema), RequiredPaths: []string{"phases..name"}})
	var violation *DomainInvariantViolation
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, InvariantMustHavePresent, violation.Invariant)
}
