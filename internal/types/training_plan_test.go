//nolint:revive // types is a standard Go package name pattern
package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanStatus_Transitions(t *testing.T) {
	tests := []struct {
		from PlanStatus
		to   PlanStatus
		want bool
	}{
		{PlanStatusDraft, PlanStatusActive, true},
		{PlanStatusDraft, PlanStatusArchived, true},
		{PlanStatusDraft, PlanStatusCompleted, false},
		{PlanStatusActive, PlanStatusCompleted, true},
		{PlanStatusActive, PlanStatusDraft, false},
		{PlanStatusCompleted, PlanStatusArchived, true},
		{PlanStatusArchived, PlanStatusActive, false},
		{PlanStatusArchived, PlanStatusArchived, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestPlanStatus_Valid(t *testing.T) {
	assert.True(t, PlanStatusActive.Valid())
	assert.False(t, PlanStatus("paused").Valid())
}

func TestValidatedPlan_Summary(t *testing.T) {
	plan := &ValidatedPlan{Phases: []Phase{
		{Name: "base", Weeks: []Week{{}, {}, {}}},
		{Name: "taper", Weeks: []Week{{}}},
	}}

	assert.Equal(t, 4, plan.TotalWeeks())
	assert.Equal(t, []string{"base", "taper"}, plan.PhaseNames())
}
