package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/training-planner/internal/pipeline"
	"github.com/jonathan/training-planner/internal/server/middleware"
	"github.com/jonathan/training-planner/internal/types"
	"github.com/jonathan/training-planner/internal/validation"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

// GenerateResponse is the success body of POST /plans/generate
type GenerateResponse struct {
	Success           bool                       `json:"success"`
	Plan              *types.TrainingPlan        `json:"plan"`
	Persisted         bool                       `json:"persisted"`
	RunID             *uuid.UUID                 `json:"run_id,omitempty"`
	PromptFingerprint string                     `json:"prompt_fingerprint"`
	Normalizations    []validation.Normalization `json:"normalizations"`
}

// PromptPreview is the payload of POST /plans/prompt
type PromptPreview struct {
	Blocks      any    `json:"blocks"`
	Text        string `json:"text"`
	Fingerprint string `json:"fingerprint"`
}

// decodeGenerateRequest reads the body and binds it to the authenticated athlete.
func (s *Server) decodeGenerateRequest(r *http.Request) (pipeline.Request, error) {
	athleteID, err := middleware.GetAthleteID(r)
	if err != nil {
		return pipeline.Request{}, err
	}

	var body types.GeneratePlanRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		return pipeline.Request{}, &BadRequestError{Message: "invalid request body", Cause: err}
	}

	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dry_run"))
	return pipeline.Request{
		GeneratePlanRequest: body,
		AthleteID:           athleteID,
		DryRun:              dryRun,
	}, nil
}

func (s *Server) generationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.generationTimeout > 0 {
		return context.WithTimeout(ctx, s.generationTimeout)
	}
	return context.WithCancel(ctx)
}

func (s *Server) handleGeneratePlan(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeGenerateRequest(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ctx, cancel := s.generationContext(r.Context())
	defer cancel()

	result, err := s.generator.Generate(ctx, req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, newGenerateResponse(result))
}

func newGenerateResponse(result *pipeline.Result) GenerateResponse {
	resp := GenerateResponse{
		Success:           true,
		Plan:              result.Plan,
		Persisted:         result.Persisted,
		PromptFingerprint: result.Fingerprint,
		Normalizations:    result.Normalizations,
	}
	if result.RunID != uuid.Nil {
		id := result.RunID
		resp.RunID = &id
	}
	if resp.Normalizations == nil {
		resp.Normalizations = []validation.Normalization{}
	}
	return resp
}

// handleGeneratePlanStream runs a generation and reports each stage as a server-sent event
func (s *Server) handleGeneratePlanStream(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeGenerateRequest(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ctx, cancel := s.generationContext(r.Context())
	defer cancel()

	req.OnProgress = func(event pipeline.ProgressEvent) {
		if err := sse.WriteEvent("stage", event); err != nil {
			s.logger.Warn("failed to write progress event", zap.String("stage", event.Stage), zap.Error(err))
		}
	}

	result, err := s.generator.Generate(ctx, req)
	if err != nil {
		sse.WriteError(HTTPStatus(err), err.Error(), errorDetails(err))
		return
	}
	sse.WriteComplete(newGenerateResponse(result))
}

func (s *Server) handlePromptPreview(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeGenerateRequest(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	prompt, err := s.generator.Prompt(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.successResponse(w, http.StatusOK, "prompt", PromptPreview{
		Blocks:      prompt.Blocks,
		Text:        prompt.Text(),
		Fingerprint: prompt.Fingerprint(),
	})
}

func (s *Server) handleListGenerationRuns(w http.ResponseWriter, r *http.Request) {
	athleteID, err := middleware.GetAthleteID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if limit == 0 {
		limit = defaultRunsLimit
	}
	limit = min(limit, maxRunsLimit)

	runs, err := s.store.ListGenerationRuns(r.Context(), athleteID, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if runs == nil {
		runs = []types.GenerationRun{}
	}
	s.successResponse(w, http.StatusOK, "runs", runs)
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	athleteID, err := middleware.GetAthleteID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	planID, err := pathUUID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	plan, err := s.store.GetTrainingPlan(r.Context(), athleteID, planID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if plan == nil {
		s.fail(w, r, &NotFoundError{Resource: "plan", ID: planID.String()})
		return
	}
	s.successResponse(w, http.StatusOK, "plan", plan)
}

func (s *Server) handleUpdatePlanStatus(w http.ResponseWriter, r *http.Request) {
	athleteID, err := middleware.GetAthleteID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	planID, err := pathUUID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var req types.UpdatePlanStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, r, &BadRequestError{Message: "invalid request body", Cause: err})
		return
	}
	if err := req.Validate(); err != nil {
		s.fail(w, r, &BadRequestError{Message: "status must be one of draft, active, completed, archived", Cause: err})
		return
	}

	plan, err := s.store.UpdatePlanStatus(r.Context(), athleteID, planID, types.PlanStatus(req.Status))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if plan == nil {
		s.fail(w, r, &NotFoundError{Resource: "plan", ID: planID.String()})
		return
	}
	s.successResponse(w, http.StatusOK, "plan", plan)
}
