package types

import (
	"time"

	"github.com/google/uuid"
)

// Race is a canonical race catalog entry
type Race struct {
	ID       uuid.UUID `json:"id" yaml:"-"`
	Name     string    `json:"name" yaml:"name" validate:"required"`
	RaceType string    `json:"race_type" yaml:"race_type" validate:"required"`
	Miles    float64   `json:"miles" yaml:"miles" validate:"gt=0"`
	Date     time.Time `json:"date" yaml:"date"`
	Location string    `json:"location,omitempty" yaml:"location"`
}

// RunTypeSet records which run types a phase enables
type RunTypeSet struct {
	Easy      bool `json:"easy"`
	Tempo     bool `json:"tempo"`
	Intervals bool `json:"intervals"`
	LongRun   bool `json:"longRun"`
}

// ValidatedPlan is a generation output that passed structural and semantic validation
type ValidatedPlan struct {
	Name   string  `json:"name,omitempty"`
	Phases []Phase `json:"phases"`
}

// Phase is one periodization stage of a generated plan
type Phase struct {
	Name     string     `json:"name"`
	RunTypes RunTypeSet `json:"runTypes"`
	Weeks    []Week     `json:"weeks"`
}

// Week groups the runs of one training week
type Week struct {
	WeekNumber int    `json:"weekNumber,omitempty"`
	Focus      string `json:"focus,omitempty"`
	Runs       []Run  `json:"runs"`
}

// Run is a single workout
type Run struct {
	Type            string  `json:"type"`
	Day             string  `json:"day,omitempty"`
	Miles           float64 `json:"miles,omitempty"`
	DurationMinutes int     `json:"durationMinutes,omitempty"`
	Description     string  `json:"description,omitempty"`
}

// TotalWeeks counts the weeks across all phases
func (p *ValidatedPlan) TotalWeeks() int {
	total := 0
	for _, phase := range p.Phases {
		total += len(phase.Weeks)
	}
	return total
}

// PhaseNames returns the phase names in plan order
func (p *ValidatedPlan) PhaseNames() []string {
	names := make([]string, len(p.Phases))
	for i, phase := range p.Phases {
		names[i] = phase.Name
	}
	return names
}

// PlanSkeleton carries optional structural hints for generation
type PlanSkeleton struct {
	TotalWeeks  int            `json:"total_weeks,omitempty" validate:"omitempty,min=1,max=52"`
	PhaseWeeks  map[string]int `json:"phase_weeks,omitempty"`
	RunsPerWeek int            `json:"runs_per_week,omitempty" validate:"omitempty,min=1,max=14"`
}

// GenerationContext is the run-time context of one generation request
type GenerationContext struct {
	Race         Race          `json:"race"`
	GoalTime     string        `json:"goal_time"`
	StartDate    time.Time     `json:"start_date,omitempty"`
	PlanName     string        `json:"plan_name,omitempty"`
	Skeleton     *PlanSkeleton `json:"skeleton,omitempty"`
	ExistingPlan []byte        `json:"existing_plan,omitempty"`
	Notes        string        `json:"notes,omitempty"`
}
