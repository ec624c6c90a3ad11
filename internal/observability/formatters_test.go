package observability

import (
	"bytes"
	"testing"
	"time"

	"github.com/jonathan/training-planner/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestPrintRace(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintRace(&types.Race{
		Name:     "Riverfront Half",
		RaceType: "half",
		Miles:    13.1,
		Date:     time.Date(2026, 4, 12, 0, 0, 0, 0, time.UTC),
		Location: "Portland, OR",
	})
	output := buf.String()

	assert.Contains(t, output, "RACE")
	assert.Contains(t, output, "Riverfront Half")
	assert.Contains(t, output, "half (13.1 mi)")
	assert.Contains(t, output, "2026-04-12")
	assert.Contains(t, output, "Portland, OR")
}

func TestPrintRace_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintRace(nil)
	assert.Empty(t, buf.String())
}

func TestPrintPrompt(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintPrompt([]string{"Role: Coach", "Rules: Safe"}, "0123456789abcdef0123456789abcdef")
	output := buf.String()

	assert.Contains(t, output, "ASSEMBLED PROMPT")
	assert.Contains(t, output, "1. Role: Coach")
	assert.Contains(t, output, "2. Rules: Safe")
	assert.Contains(t, output, "Fingerprint: 0123456789abcdef")
	assert.NotContains(t, output, "0123456789abcdef0")
}

func TestPrintNormalizations(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintNormalizations([]string{"a", "b", "c", "d", "e", "f", "g"})
	output := buf.String()

	assert.Contains(t, output, "NORMALIZATIONS (7)")
	assert.Contains(t, output, "• e")
	assert.NotContains(t, output, "• f")
	assert.Contains(t, output, "... and 2 more")
}

func TestPrintNormalizations_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintNormalizations(nil)
	assert.Contains(t, buf.String(), "NO NORMALIZATIONS NEEDED")
}

func TestPrintTrainingPlan(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	plan := &types.TrainingPlan{
		Name:       "Riverfront Half Training Plan",
		GoalTime:   "1:45:00",
		StartDate:  time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		TotalWeeks: 2,
		Status:     types.PlanStatusDraft,
		Phases: []types.PlanPhase{
			{Name: "base", RunTypes: types.RunTypeSet{Easy: true, LongRun: true}, Weeks: []types.PlanWeek{
				{Runs: []types.PlanRun{{Type: "easy", Miles: 4}, {Type: "longRun", Miles: 8.5}}},
			}},
			{Name: "taper", RunTypes: types.RunTypeSet{Easy: true, Tempo: true, LongRun: true}, Weeks: []types.PlanWeek{
				{Runs: []types.PlanRun{{Type: "easy", Miles: 3}}},
			}},
		},
	}

	p.PrintTrainingPlan(plan)
	output := buf.String()

	assert.Contains(t, output, "TRAINING PLAN")
	assert.Contains(t, output, "Riverfront Half Training Plan")
	assert.Contains(t, output, "2026-01-05")
	assert.Contains(t, output, "draft")
	assert.Contains(t, output, "12.5 mi")
	assert.Contains(t, output, "[easy longRun]")
	assert.Contains(t, output, "[easy tempo longRun]")
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	long := "this line is far longer than the box is wide so it must be cut short somewhere"
	p.printBox("TITLE", long)
	assert.Contains(t, buf.String(), "...")
	assert.NotContains(t, buf.String(), "somewhere")
}
