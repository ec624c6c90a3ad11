// Package pipeline orchestrates plan generation: it resolves the configuration artifacts,
// assembles the prompt, invokes the backend, validates the output and persists the plan.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/training-planner/internal/events"
	"github.com/jonathan/training-planner/internal/materialize"
	"github.com/jonathan/training-planner/internal/observability"
	"github.com/jonathan/training-planner/internal/policy"
	"github.com/jonathan/training-planner/internal/prompts"
	"github.com/jonathan/training-planner/internal/types"
	"github.com/jonathan/training-planner/internal/validation"
)

// Stage names, used for metrics, logs and the generation audit
const (
	StageRequest     = "request"
	StageResolve     = "resolve"
	StageAssemble    = "assemble"
	StageGenerate    = "generate"
	StageValidate    = "validate"
	StageMaterialize = "materialize"
	StagePersist     = "persist"
	StagePublish     = "publish"
)

const dateLayout = "2006-01-02"

// Invoker produces raw JSON text for a prompt
type Invoker interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// PlanStore persists a materialized plan, assigning its ids, in one transaction
type PlanStore interface {
	CreateTrainingPlan(ctx context.Context, plan *types.TrainingPlan) error
}

// RunRecorder keeps the generation audit trail. StartGenerationRun assigns run.ID.
type RunRecorder interface {
	StartGenerationRun(ctx context.Context, run *types.GenerationRun) error
	FinishGenerationRun(ctx context.Context, run *types.GenerationRun) error
}

// ProgressEvent reports a completed stage
type ProgressEvent struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called after each stage completes
type ProgressCallback func(event ProgressEvent)

// Dependencies are the collaborators of a Generator. Runs and Events are optional.
type Dependencies struct {
	Artifacts prompts.ArtifactSource
	Races     materialize.RaceLookup
	Invoker   Invoker
	Plans     PlanStore
	Runs      RunRecorder
	Events    events.Publisher
	Logger    *zap.Logger
}

// Request is one generation request on behalf of an athlete
type Request struct {
	types.GeneratePlanRequest
	AthleteID  uuid.UUID
	DryRun     bool
	OnProgress ProgressCallback
}

// Result is the outcome of a successful generation
type Result struct {
	Plan           *types.TrainingPlan
	Validated      *types.ValidatedPlan
	Normalizations []validation.Normalization
	Fingerprint    string
	RunID          uuid.UUID
	Persisted      bool
}

// Generator runs the generation pipeline
type Generator struct {
	artifacts    prompts.ArtifactSource
	races        materialize.RaceLookup
	invoker      Invoker
	plans        PlanStore
	runs         RunRecorder
	events       events.Publisher
	materializer *materialize.Materializer
	logger       *zap.Logger
}

// New creates a Generator
func New(deps Dependencies) *Generator {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pub := deps.Events
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Generator{
		artifacts:    deps.Artifacts,
		races:        deps.Races,
		invoker:      deps.Invoker,
		plans:        deps.Plans,
		runs:         deps.Runs,
		events:       pub,
		materializer: materialize.New(deps.Races),
		logger:       logger,
	}
}

// prepared is the state shared by Prompt and Generate once the prompt is assembled
type prepared struct {
	startDate time.Time
	race      *types.Race
	selection *prompts.Selection
	prompt    *prompts.Prompt
}

// Prompt resolves and assembles the prompt for req without calling the backend.
func (g *Generator) Prompt(ctx context.Context, req Request) (*prompts.Prompt, error) {
	startDate, err := checkRequest(req)
	if err != nil {
		return nil, err
	}
	p, _, err := g.prepare(ctx, req, startDate)
	if err != nil {
		return nil, err
	}
	return p.prompt, nil
}

// Generate runs every stage for req. Nothing is persisted unless the backend output
// passes validation and materializes; with req.DryRun nothing is persisted at all.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	startDate, err := checkRequest(req)
	if err != nil {
		observability.RecordGeneration("rejected", StageRequest)
		return nil, err
	}

	run := g.startRun(ctx, req)
	logger := g.logger.With(
		zap.Stringer("athlete_id", req.AthleteID),
		zap.Stringer("race_id", req.RaceID),
		zap.Stringer("run_id", run.ID),
	)

	fail := func(stage string, err error) (*Result, error) {
		observability.RecordGeneration("failed", stage)
		recordRejection(err)
		logger.Warn("plan generation failed", zap.String("stage", stage), zap.Error(err))
		run.Status = types.RunStatusFailed
		run.FailedStage = stage
		run.Error = err.Error()
		g.finishRun(run, logger)
		return nil, err
	}

	p, stage, err := g.prepare(ctx, req, startDate)
	if err != nil {
		return fail(stage, err)
	}
	run.PromptFingerprint = p.prompt.Fingerprint()
	logger = logger.With(zap.String("fingerprint", p.prompt.Fingerprint()))
	logger.Info("prompt assembled",
		zap.Stringer("role_id", req.RoleID),
		zap.Stringer("rule_set_id", req.RuleSetID),
		zap.Stringer("must_haves_id", req.MustHavesID),
		zap.Stringer("return_format_id", req.ReturnFormatID),
	)
	emit(req, StageAssemble, fmt.Sprintf("Assembled prompt %.16s", p.prompt.Fingerprint()), p.prompt)

	started := time.Now()
	raw, err := g.invoker.Generate(ctx, p.prompt.Text())
	observability.RecordStage(StageGenerate, time.Since(started).Seconds())
	if err != nil {
		return fail(StageGenerate, err)
	}
	emit(req, StageGenerate, fmt.Sprintf("Received %d bytes from backend", len(raw)), nil)

	started = time.Now()
	validated, err := validation.Validate([]byte(raw), validation.Input{
		Schema:        p.selection.ReturnFormat.Schema,
		RequiredPaths: p.selection.MustHaves.RequiredPaths,
		Race:          p.race,
	})
	observability.RecordStage(StageValidate, time.Since(started).Seconds())
	if err != nil {
		return fail(StageValidate, err)
	}
	observability.NormalizationsTotal.Add(float64(len(validated.Normalizations)))
	emit(req, StageValidate, fmt.Sprintf("Validated plan with %d phases", len(validated.Plan.Phases)), validated.Plan)

	started = time.Now()
	plan, err := g.materializer.Materialize(ctx, validated.Plan, materialize.Input{
		AthleteID:         req.AthleteID,
		RaceID:            req.RaceID,
		GoalTime:          req.GoalTime,
		StartDate:         startDate,
		PlanName:          req.PlanName,
		Artifacts:         req.ArtifactRefs,
		PromptFingerprint: p.prompt.Fingerprint(),
	})
	observability.RecordStage(StageMaterialize, time.Since(started).Seconds())
	if err != nil {
		return fail(StageMaterialize, err)
	}
	emit(req, StageMaterialize, fmt.Sprintf("Materialized %d weeks from %s", plan.TotalWeeks, plan.StartDate.Format(dateLayout)), plan)

	result := &Result{
		Plan:           plan,
		Validated:      validated.Plan,
		Normalizations: validated.Normalizations,
		Fingerprint:    p.prompt.Fingerprint(),
		RunID:          run.ID,
	}

	if req.DryRun {
		observability.RecordGeneration("dry_run", StageMaterialize)
		run.Status = types.RunStatusSucceeded
		g.finishRun(run, logger)
		logger.Info("dry run complete", zap.Int("total_weeks", plan.TotalWeeks))
		return result, nil
	}

	if err := ctx.Err(); err != nil {
		return fail(StagePersist, err)
	}
	started = time.Now()
	if err := g.plans.CreateTrainingPlan(ctx, plan); err != nil {
		observability.RecordStage(StagePersist, time.Since(started).Seconds())
		return fail(StagePersist, &materialize.MaterializationError{
			Reason: materialize.ReasonPersist,
			RaceID: req.RaceID,
			Cause:  err,
		})
	}
	observability.RecordStage(StagePersist, time.Since(started).Seconds())
	result.Persisted = true
	emit(req, StagePersist, fmt.Sprintf("Stored plan %s", plan.ID), nil)

	run.Status = types.RunStatusSucceeded
	run.PlanID = &plan.ID
	g.finishRun(run, logger)

	if err := g.events.PublishPlanGenerated(ctx, events.NewPlanGenerated(plan)); err != nil {
		logger.Warn("failed to publish plan event", zap.Stringer("plan_id", plan.ID), zap.Error(err))
	}

	observability.RecordGeneration("succeeded", StagePublish)
	logger.Info("plan generated",
		zap.Stringer("plan_id", plan.ID),
		zap.Int("total_weeks", plan.TotalWeeks),
		zap.Int("normalizations", len(validated.Normalizations)),
	)
	return result, nil
}

// prepare looks up the race, resolves the artifacts and assembles the prompt. On failure
// it also reports the stage that failed.
func (g *Generator) prepare(ctx context.Context, req Request, startDate time.Time) (*prepared, string, error) {
	started := time.Now()
	race, err := g.races.GetRace(ctx, req.RaceID)
	if err != nil {
		return nil, StageResolve, &materialize.MaterializationError{Reason: materialize.ReasonRaceLookup, RaceID: req.RaceID, Cause: err}
	}
	if race == nil {
		return nil, StageResolve, &materialize.MaterializationError{Reason: materialize.ReasonRaceNotFound, RaceID: req.RaceID}
	}

	sel, err := prompts.Resolve(ctx, g.artifacts, req.ArtifactRefs)
	observability.RecordStage(StageResolve, time.Since(started).Seconds())
	if err != nil {
		return nil, StageResolve, err
	}
	emit(req, StageResolve, "Resolved role, rule set, must-haves and return format", sel)

	started = time.Now()
	prompt, err := prompts.Assemble(sel, types.GenerationContext{
		Race:         *race,
		GoalTime:     req.GoalTime,
		StartDate:    startDate,
		PlanName:     req.PlanName,
		Skeleton:     req.Skeleton,
		ExistingPlan: req.ExistingPlan,
		Notes:        req.Notes,
	})
	observability.RecordStage(StageAssemble, time.Since(started).Seconds())
	if err != nil {
		return nil, StageAssemble, err
	}

	return &prepared{startDate: startDate, race: race, selection: sel, prompt: prompt}, "", nil
}

// checkRequest validates the request body and parses its start date
func checkRequest(req Request) (time.Time, error) {
	if req.AthleteID == uuid.Nil {
		return time.Time{}, &RequestError{Field: "athlete_id", Message: "is required"}
	}
	if err := req.GeneratePlanRequest.Validate(); err != nil {
		return time.Time{}, fromValidator(err)
	}
	if _, err := policy.ParseGoalTime(req.GoalTime); err != nil {
		return time.Time{}, &RequestError{Field: "goal_time", Message: err.Error(), Cause: err}
	}

	var startDate time.Time
	if req.StartDate != "" {
		var err error
		startDate, err = time.Parse(dateLayout, req.StartDate)
		if err != nil {
			return time.Time{}, &RequestError{Field: "start_date", Message: "must be YYYY-MM-DD", Cause: err}
		}
	}
	return startDate, nil
}

func fromValidator(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &RequestError{Field: fe.Field(), Message: "failed on " + fe.Tag(), Cause: err}
	}
	return &RequestError{Message: err.Error(), Cause: err}
}

func (g *Generator) startRun(ctx context.Context, req Request) *types.GenerationRun {
	run := &types.GenerationRun{
		AthleteID: req.AthleteID,
		RaceID:    req.RaceID,
		Artifacts: req.ArtifactRefs,
		Status:    types.RunStatusRunning,
		DryRun:    req.DryRun,
		StartedAt: time.Now().UTC(),
	}
	if g.runs == nil {
		return run
	}
	if err := g.runs.StartGenerationRun(ctx, run); err != nil {
		g.logger.Warn("failed to record generation run", zap.Error(err))
		run.ID = uuid.Nil
	}
	return run
}

// finishRun closes the audit record. It uses a fresh context so that a canceled request
// still leaves a finished row behind.
func (g *Generator) finishRun(run *types.GenerationRun, logger *zap.Logger) {
	if g.runs == nil || run.ID == uuid.Nil {
		return
	}
	finished := time.Now().UTC()
	run.FinishedAt = &finished

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.runs.FinishGenerationRun(ctx, run); err != nil {
		logger.Warn("failed to finish generation run", zap.Error(err))
	}
}

func emit(req Request, stage, message string, content any) {
	if req.OnProgress != nil {
		req.OnProgress(ProgressEvent{Stage: stage, Message: message, Content: content})
	}
}

func recordRejection(err error) {
	var mismatch *validation.SchemaMismatch
	if errors.As(err, &mismatch) {
		observability.RecordRejection("schema", "structural")
		return
	}
	var violation *validation.DomainInvariantViolation
	if errors.As(err, &violation) {
		observability.RecordRejection("domain", string(violation.Invariant))
	}
}
