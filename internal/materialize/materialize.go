// Package materialize turns a validated plan into the persisted training plan tree.
package materialize

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/training-planner/internal/types"
)

const daysPerWeek = 7

// RaceLookup finds a race by id. A missing race is (nil, nil).
type RaceLookup interface {
	GetRace(ctx context.Context, id uuid.UUID) (*types.Race, error)
}

// Input carries the request facts that are not part of the generated plan
type Input struct {
	AthleteID         uuid.UUID
	RaceID            uuid.UUID
	GoalTime          string
	StartDate         time.Time
	PlanName          string
	Artifacts         types.ArtifactRefs
	PromptFingerprint string
}

// Materializer maps validated plans onto TrainingPlan values
type Materializer struct {
	races RaceLookup
	now   func() time.Time
}

// New creates a Materializer
func New(races RaceLookup) *Materializer {
	return &Materializer{races: races, now: time.Now}
}

// Materialize links plan to its race and lays out the phase, week and run rows. IDs and
// timestamps are left for the store to assign.
func (m *Materializer) Materialize(ctx context.Context, plan *types.ValidatedPlan, in Input) (*types.TrainingPlan, error) {
	race, err := m.races.GetRace(ctx, in.RaceID)
	if err != nil {
		return nil, &MaterializationError{Reason: ReasonRaceLookup, RaceID: in.RaceID, Cause: err}
	}
	if race == nil {
		return nil, &MaterializationError{Reason: ReasonRaceNotFound, RaceID: in.RaceID}
	}

	totalWeeks := plan.TotalWeeks()
	if totalWeeks == 0 {
		return nil, &MaterializationError{Reason: ReasonEmptyPlan, RaceID: in.RaceID}
	}

	start := in.StartDate
	if start.IsZero() {
		start = defaultStartDate(race.Date, totalWeeks, m.now())
	}
	start = truncateToDay(start)

	tp := &types.TrainingPlan{
		AthleteID:         in.AthleteID,
		RaceID:            race.ID,
		Race:              race,
		Name:              planName(in.PlanName, plan.Name, race.Name),
		GoalTime:          in.GoalTime,
		StartDate:         start,
		TotalWeeks:        totalWeeks,
		Status:            types.PlanStatusDraft,
		Artifacts:         in.Artifacts,
		PromptFingerprint: in.PromptFingerprint,
		Phases:            make([]types.PlanPhase, 0, len(plan.Phases)),
	}

	weekNumber := 0
	for i, phase := range plan.Phases {
		pp := types.PlanPhase{
			Ordinal:  i + 1,
			Name:     phase.Name,
			RunTypes: phase.RunTypes,
			Weeks:    make([]types.PlanWeek, 0, len(phase.Weeks)),
		}
		for j, week := range phase.Weeks {
			weekNumber++
			pw := types.PlanWeek{
				Ordinal:    j + 1,
				WeekNumber: weekNumber,
				StartDate:  start.AddDate(0, 0, daysPerWeek*(weekNumber-1)),
				Focus:      strings.TrimSpace(week.Focus),
				Runs:       make([]types.PlanRun, 0, len(week.Runs)),
			}
			for k, run := range week.Runs {
				pw.Runs = append(pw.Runs, types.PlanRun{
					Ordinal:         k + 1,
					Type:            run.Type,
					Day:             run.Day,
					Miles:           run.Miles,
					DurationMinutes: run.DurationMinutes,
					Description:     strings.TrimSpace(run.Description),
				})
			}
			pp.Weeks = append(pp.Weeks, pw)
		}
		tp.Phases = append(tp.Phases, pp)
	}

	return tp, nil
}

// planName prefers the requested name, then the generated one, then one derived from the race.
func planName(requested, generated, raceName string) string {
	if n := strings.TrimSpace(requested); n != "" {
		return n
	}
	if n := strings.TrimSpace(generated); n != "" {
		return n
	}
	return raceName + " Training Plan"
}

// defaultStartDate backs off whole weeks from race day so the last week ends at the race.
func defaultStartDate(raceDate time.Time, totalWeeks int, now time.Time) time.Time {
	if raceDate.IsZero() {
		return now.UTC()
	}
	return raceDate.AddDate(0, 0, -daysPerWeek*totalWeeks)
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
