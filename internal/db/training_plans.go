package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/training-planner/internal/policy"
	"github.com/jonathan/training-planner/internal/types"
)

// CreateTrainingPlan stores a plan header and its phase, week and run rows in one
// transaction, assigning every ID. Nothing is written if any row fails.
func (db *DB) CreateTrainingPlan(ctx context.Context, plan *types.TrainingPlan) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rErr := tx.Rollback(ctx); rErr != nil && !errors.Is(rErr, pgx.ErrTxClosed) {
			_ = rErr
		}
	}()

	if plan.Status == "" {
		plan.Status = types.PlanStatusDraft
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO training_plans (athlete_id, race_id, name, goal_time, start_date, total_weeks, status,
		                             role_id, rule_set_id, must_haves_id, return_format_id, prompt_fingerprint)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id, created_at, updated_at`,
		plan.AthleteID, plan.RaceID, plan.Name, plan.GoalTime, plan.StartDate, plan.TotalWeeks, plan.Status,
		plan.Artifacts.RoleID, plan.Artifacts.RuleSetID, plan.Artifacts.MustHavesID, plan.Artifacts.ReturnFormatID,
		plan.PromptFingerprint,
	).Scan(&plan.ID, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create training plan: %w", err)
	}

	for i := range plan.Phases {
		phase := &plan.Phases[i]
		runTypes, err := json.Marshal(phase.RunTypes)
		if err != nil {
			return fmt.Errorf("failed to marshal run types: %w", err)
		}
		err = tx.QueryRow(ctx,
			`INSERT INTO plan_phases (plan_id, ordinal, name, run_types)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id`,
			plan.ID, phase.Ordinal, phase.Name, runTypes,
		).Scan(&phase.ID)
		if err != nil {
			return fmt.Errorf("failed to create phase %s: %w", phase.Name, err)
		}

		for j := range phase.Weeks {
			week := &phase.Weeks[j]
			err = tx.QueryRow(ctx,
				`INSERT INTO plan_weeks (phase_id, ordinal, week_number, start_date, focus)
				 VALUES ($1, $2, $3, $4, $5)
				 RETURNING id`,
				phase.ID, week.Ordinal, week.WeekNumber, week.StartDate, week.Focus,
			).Scan(&week.ID)
			if err != nil {
				return fmt.Errorf("failed to create week %d: %w", week.WeekNumber, err)
			}

			for k := range week.Runs {
				run := &week.Runs[k]
				err = tx.QueryRow(ctx,
					`INSERT INTO plan_runs (week_id, ordinal, run_type, day, miles, duration_minutes, description)
					 VALUES ($1, $2, $3, $4, $5, $6, $7)
					 RETURNING id`,
					week.ID, run.Ordinal, run.Type, run.Day, run.Miles, run.DurationMinutes, run.Description,
				).Scan(&run.ID)
				if err != nil {
					return fmt.Errorf("failed to create run %d of week %d: %w", run.Ordinal, week.WeekNumber, err)
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit training plan: %w", err)
	}
	return nil
}

// GetTrainingPlan loads a plan with its race and full tree. Plans belonging to another
// athlete are reported as not found. Returns nil, nil if not found.
func (db *DB) GetTrainingPlan(ctx context.Context, athleteID, planID uuid.UUID) (*types.TrainingPlan, error) {
	var (
		plan types.TrainingPlan
		race types.Race
		date *time.Time
	)
	err := db.pool.QueryRow(ctx,
		`SELECT p.id, p.athlete_id, p.race_id, p.name, p.goal_time, p.start_date, p.total_weeks, p.status,
		        p.role_id, p.rule_set_id, p.must_haves_id, p.return_format_id, p.prompt_fingerprint,
		        p.created_at, p.updated_at,
		        r.id, r.name, r.race_type, r.miles, r.race_date, r.location
		 FROM training_plans p
		 JOIN races r ON r.id = p.race_id
		 WHERE p.id = $1 AND p.athlete_id = $2`,
		planID, athleteID,
	).Scan(&plan.ID, &plan.AthleteID, &plan.RaceID, &plan.Name, &plan.GoalTime, &plan.StartDate,
		&plan.TotalWeeks, &plan.Status,
		&plan.Artifacts.RoleID, &plan.Artifacts.RuleSetID, &plan.Artifacts.MustHavesID, &plan.Artifacts.ReturnFormatID,
		&plan.PromptFingerprint, &plan.CreatedAt, &plan.UpdatedAt,
		&race.ID, &race.Name, &race.RaceType, &race.Miles, &date, &race.Location)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get training plan: %w", err)
	}
	if date != nil {
		race.Date = date.UTC()
	}
	plan.Race = &race
	plan.StartDate = plan.StartDate.UTC()

	phases, err := db.loadPhases(ctx, plan.ID)
	if err != nil {
		return nil, err
	}
	plan.Phases = phases
	return &plan, nil
}

func (db *DB) loadPhases(ctx context.Context, planID uuid.UUID) ([]types.PlanPhase, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, ordinal, name, run_types FROM plan_phases WHERE plan_id = $1 ORDER BY ordinal`,
		planID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load phases: %w", err)
	}
	defer rows.Close()

	var phases []types.PlanPhase
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var (
			phase    types.PlanPhase
			runTypes []byte
		)
		if err := rows.Scan(&phase.ID, &phase.Ordinal, &phase.Name, &runTypes); err != nil {
			return nil, fmt.Errorf("failed to scan phase: %w", err)
		}
		if err := json.Unmarshal(runTypes, &phase.RunTypes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run types of phase %s: %w", phase.Name, err)
		}
		index[phase.ID] = len(phases)
		phases = append(phases, phase)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load phases: %w", err)
	}

	weekRows, err := db.pool.Query(ctx,
		`SELECT w.id, w.phase_id, w.ordinal, w.week_number, w.start_date, w.focus
		 FROM plan_weeks w
		 JOIN plan_phases p ON p.id = w.phase_id
		 WHERE p.plan_id = $1
		 ORDER BY w.week_number`,
		planID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load weeks: %w", err)
	}
	defer weekRows.Close()

	type weekRef struct{ phase, week int }
	weeks := make(map[uuid.UUID]weekRef)
	for weekRows.Next() {
		var (
			week    types.PlanWeek
			phaseID uuid.UUID
		)
		if err := weekRows.Scan(&week.ID, &phaseID, &week.Ordinal, &week.WeekNumber, &week.StartDate, &week.Focus); err != nil {
			return nil, fmt.Errorf("failed to scan week: %w", err)
		}
		week.StartDate = week.StartDate.UTC()
		p := index[phaseID]
		weeks[week.ID] = weekRef{phase: p, week: len(phases[p].Weeks)}
		phases[p].Weeks = append(phases[p].Weeks, week)
	}
	if err := weekRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load weeks: %w", err)
	}

	runRows, err := db.pool.Query(ctx,
		`SELECT r.id, r.week_id, r.ordinal, r.run_type, r.day, r.miles, r.duration_minutes, r.description
		 FROM plan_runs r
		 JOIN plan_weeks w ON w.id = r.week_id
		 JOIN plan_phases p ON p.id = w.phase_id
		 WHERE p.plan_id = $1
		 ORDER BY w.week_number, r.ordinal`,
		planID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load runs: %w", err)
	}
	defer runRows.Close()

	for runRows.Next() {
		var (
			run    types.PlanRun
			weekID uuid.UUID
		)
		if err := runRows.Scan(&run.ID, &weekID, &run.Ordinal, &run.Type, &run.Day, &run.Miles, &run.DurationMinutes, &run.Description); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		ref := weeks[weekID]
		w := &phases[ref.phase].Weeks[ref.week]
		w.Runs = append(w.Runs, run)
	}
	if err := runRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load runs: %w", err)
	}

	return policy.SortPhasesBy(phases, func(p types.PlanPhase) string { return p.Name })
}

// UpdatePlanStatus moves an athlete's plan to a new status. Returns nil, nil if the plan
// does not exist for that athlete and *InvalidTransitionError if the move is not allowed.
func (db *DB) UpdatePlanStatus(ctx context.Context, athleteID, planID uuid.UUID, status types.PlanStatus) (*types.TrainingPlan, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rErr := tx.Rollback(ctx); rErr != nil && !errors.Is(rErr, pgx.ErrTxClosed) {
			_ = rErr
		}
	}()

	var current types.PlanStatus
	err = tx.QueryRow(ctx,
		`SELECT status FROM training_plans WHERE id = $1 AND athlete_id = $2 FOR UPDATE`,
		planID, athleteID,
	).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock training plan: %w", err)
	}
	if !current.CanTransitionTo(status) {
		return nil, &InvalidTransitionError{From: current, To: status}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE training_plans SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, planID,
	); err != nil {
		return nil, fmt.Errorf("failed to update plan status: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit plan status: %w", err)
	}

	return db.GetTrainingPlan(ctx, athleteID, planID)
}
