package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/training-planner/internal/types"
)

var generationRunColumns = []string{
	"id", "athlete_id", "race_id", "role_id", "rule_set_id", "must_haves_id", "return_format_id",
	"prompt_fingerprint", "status", "failed_stage", "error_message", "plan_id", "dry_run",
	"started_at", "finished_at",
}

// StartGenerationRun records the start of a pipeline run and assigns run.ID
func (db *DB) StartGenerationRun(ctx context.Context, run *types.GenerationRun) error {
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("generation_runs")
	ib.Cols("athlete_id", "race_id", "role_id", "rule_set_id", "must_haves_id", "return_format_id", "status", "dry_run", "started_at")
	ib.Values(run.AthleteID, run.RaceID, run.Artifacts.RoleID, run.Artifacts.RuleSetID, run.Artifacts.MustHavesID,
		run.Artifacts.ReturnFormatID, run.Status, run.DryRun, run.StartedAt)
	ib.SQL("RETURNING id")
	sql, args := ib.Build()

	if err := db.pool.QueryRow(ctx, sql, args...).Scan(&run.ID); err != nil {
		return fmt.Errorf("failed to start generation run: %w", err)
	}
	return nil
}

// FinishGenerationRun stores the outcome of a pipeline run
func (db *DB) FinishGenerationRun(ctx context.Context, run *types.GenerationRun) error {
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("generation_runs")
	ub.Set(
		ub.Assign("status", run.Status),
		ub.Assign("prompt_fingerprint", run.PromptFingerprint),
		ub.Assign("failed_stage", run.FailedStage),
		ub.Assign("error_message", run.Error),
		ub.Assign("plan_id", run.PlanID),
		ub.Assign("finished_at", run.FinishedAt),
	)
	ub.Where(ub.Equal("id", run.ID))
	sql, args := ub.Build()

	tag, err := db.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to finish generation run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("generation run not found: %s", run.ID)
	}
	return nil
}

// ListGenerationRuns retrieves an athlete's most recent generation runs
func (db *DB) ListGenerationRuns(ctx context.Context, athleteID uuid.UUID, limit int) ([]types.GenerationRun, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(generationRunColumns...)
	sb.From("generation_runs")
	sb.Where(sb.Equal("athlete_id", athleteID))
	sb.OrderBy("started_at").Desc()
	sb.Limit(limit)
	sql, args := sb.Build()

	rows, err := db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list generation runs: %w", err)
	}
	defer rows.Close()

	runs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.GenerationRun, error) {
		var run types.GenerationRun
		err := row.Scan(&run.ID, &run.AthleteID, &run.RaceID,
			&run.Artifacts.RoleID, &run.Artifacts.RuleSetID, &run.Artifacts.MustHavesID, &run.Artifacts.ReturnFormatID,
			&run.PromptFingerprint, &run.Status, &run.FailedStage, &run.Error, &run.PlanID, &run.DryRun,
			&run.StartedAt, &run.FinishedAt)
		return run, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan generation runs: %w", err)
	}
	return runs, nil
}
