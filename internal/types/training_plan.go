package types

import (
	"time"

	"github.com/google/uuid"
)

// PlanStatus is the lifecycle state of a persisted training plan
type PlanStatus string

// Plan statuses
const (
	PlanStatusDraft     PlanStatus = "draft"
	PlanStatusActive    PlanStatus = "active"
	PlanStatusCompleted PlanStatus = "completed"
	PlanStatusArchived  PlanStatus = "archived"
)

var planTransitions = map[PlanStatus][]PlanStatus{
	PlanStatusDraft:     {PlanStatusActive, PlanStatusArchived},
	PlanStatusActive:    {PlanStatusCompleted, PlanStatusArchived},
	PlanStatusCompleted: {PlanStatusArchived},
}

// Valid reports whether s is a known status
func (s PlanStatus) Valid() bool {
	switch s {
	case PlanStatusDraft, PlanStatusActive, PlanStatusCompleted, PlanStatusArchived:
		return true
	}
	return false
}

// CanTransitionTo reports whether a plan in status s may move to next
func (s PlanStatus) CanTransitionTo(next PlanStatus) bool {
	for _, allowed := range planTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TrainingPlan is the persisted plan header plus its phase/week/run tree
type TrainingPlan struct {
	ID                uuid.UUID    `json:"id"`
	AthleteID         uuid.UUID    `json:"athlete_id"`
	RaceID            uuid.UUID    `json:"race_id"`
	Race              *Race        `json:"race,omitempty"`
	Name              string       `json:"name"`
	GoalTime          string       `json:"goal_time"`
	StartDate         time.Time    `json:"start_date"`
	TotalWeeks        int          `json:"total_weeks"`
	Status            PlanStatus   `json:"status"`
	Artifacts         ArtifactRefs `json:"artifacts"`
	PromptFingerprint string       `json:"prompt_fingerprint,omitempty"`
	Phases            []PlanPhase  `json:"phases"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// PlanPhase is a materialized phase
type PlanPhase struct {
	ID       uuid.UUID  `json:"id"`
	Ordinal  int        `json:"ordinal"`
	Name     string     `json:"name"`
	RunTypes RunTypeSet `json:"run_types"`
	Weeks    []PlanWeek `json:"weeks"`
}

// PlanWeek is a materialized week; WeekNumber counts from 1 across the whole plan
type PlanWeek struct {
	ID         uuid.UUID `json:"id"`
	Ordinal    int       `json:"ordinal"`
	WeekNumber int       `json:"week_number"`
	StartDate  time.Time `json:"start_date"`
	Focus      string    `json:"focus,omitempty"`
	Runs       []PlanRun `json:"runs"`
}

// PlanRun is a materialized run
type PlanRun struct {
	ID              uuid.UUID `json:"id"`
	Ordinal         int       `json:"ordinal"`
	Type            string    `json:"type"`
	Day             string    `json:"day,omitempty"`
	Miles           float64   `json:"miles,omitempty"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	Description     string    `json:"description,omitempty"`
}
