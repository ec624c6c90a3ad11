package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/training-planner/internal/db"
	"github.com/jonathan/training-planner/internal/llm"
	"github.com/jonathan/training-planner/internal/materialize"
	"github.com/jonathan/training-planner/internal/pipeline"
	"github.com/jonathan/training-planner/internal/policy"
	"github.com/jonathan/training-planner/internal/prompts"
	"github.com/jonathan/training-planner/internal/registry"
	"github.com/jonathan/training-planner/internal/validation"
)

// BadRequestError indicates a malformed request: bad JSON, path parameter or query
type BadRequestError struct {
	Message string
	Cause   error
}

func (e *BadRequestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *BadRequestError) Unwrap() error {
	return e.Cause
}

// NotFoundError indicates a race or plan does not exist for the caller
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		badRequest   *BadRequestError
		requestErr   *pipeline.RequestError
		invalidArt   *registry.ValidationError
		invalidPhase *policy.InvalidPhaseError
		unknownRace  *policy.UnknownRaceTypeError
		distance     *policy.RaceDistanceMismatchError
		notFound     *NotFoundError
		artNotFound  *registry.NotFoundError
		missing      *prompts.MissingArtifactError
		materialErr  *materialize.MaterializationError
		transition   *db.InvalidTransitionError
		failure      *llm.GenerationFailure
		mismatch     *validation.SchemaMismatch
		violation    *validation.DomainInvariantViolation
	)

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &badRequest), errors.As(err, &requestErr), errors.As(err, &invalidArt),
		errors.As(err, &invalidPhase), errors.As(err, &unknownRace), errors.As(err, &distance):
		return http.StatusBadRequest
	case errors.As(err, &notFound), errors.As(err, &artNotFound), errors.As(err, &missing):
		return http.StatusNotFound
	case errors.As(err, &materialErr) && materialErr.Reason == materialize.ReasonRaceNotFound:
		return http.StatusNotFound
	case errors.As(err, &transition):
		return http.StatusConflict
	case errors.As(err, &failure), errors.As(err, &mismatch), errors.As(err, &violation):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorDetails returns the structured part of a rejection, or nil.
func errorDetails(err error) map[string]any {
	var (
		requestErr *pipeline.RequestError
		invalidArt *registry.ValidationError
		failure    *llm.GenerationFailure
		mismatch   *validation.SchemaMismatch
		violation  *validation.DomainInvariantViolation
		transition *db.InvalidTransitionError
	)

	switch {
	case errors.As(err, &requestErr):
		return map[string]any{"field": requestErr.Field}
	case errors.As(err, &invalidArt):
		return map[string]any{"kind": invalidArt.Kind, "fields": invalidArt.Fields}
	case errors.As(err, &mismatch):
		fields := make([]map[string]string, len(mismatch.Errors))
		for i, fe := range mismatch.Errors {
			fields[i] = map[string]string{"field": fe.Field, "message": fe.Message}
		}
		return map[string]any{"path": mismatch.Path, "message": mismatch.Message, "errors": fields}
	case errors.As(err, &violation):
		return map[string]any{"invariant": violation.Invariant, "path": violation.Path, "value": violation.Value}
	case errors.As(err, &failure):
		return map[string]any{"reason": failure.Reason, "attempts": failure.Attempts}
	case errors.As(err, &transition):
		return map[string]any{"from": transition.From, "to": transition.To}
	}
	return nil
}
