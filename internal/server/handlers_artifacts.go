package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/jonathan/training-planner/internal/types"
)

// maxArtifactBody bounds artifact payloads; return format schemas are the largest
const maxArtifactBody = 1 << 20

var kindsByPath = map[string]types.ArtifactKind{
	"roles":          types.KindRole,
	"rule-sets":      types.KindRuleSet,
	"must-haves":     types.KindMustHaves,
	"return-formats": types.KindReturnFormat,
}

// kindFromPath resolves the {kind} segment. Unknown segments are a missing route.
func (s *Server) kindFromPath(w http.ResponseWriter, r *http.Request) (types.ArtifactKind, bool) {
	segment := r.PathValue("kind")
	kind, ok := kindsByPath[segment]
	if !ok {
		s.fail(w, r, &NotFoundError{Resource: "route", ID: r.URL.Path})
		return "", false
	}
	return kind, true
}

func (s *Server) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.kindFromPath(w, r)
	if !ok {
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	artifacts, err := s.artifacts.List(r.Context(), kind, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if artifacts == nil {
		artifacts = []types.Artifact{}
	}
	s.successResponse(w, http.StatusOK, "artifacts", artifacts)
}

func (s *Server) handleCreateArtifact(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.kindFromPath(w, r)
	if !ok {
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxArtifactBody+1))
	if err != nil {
		s.fail(w, r, &BadRequestError{Message: "failed to read request body", Cause: err})
		return
	}
	if len(payload) > maxArtifactBody {
		s.fail(w, r, &BadRequestError{Message: "request body too large"})
		return
	}

	artifact, err := s.artifacts.Create(r.Context(), kind, payload)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.successResponse(w, http.StatusCreated, "artifact", artifact)
}

func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.kindFromPath(w, r)
	if !ok {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	artifact, err := s.artifacts.Get(r.Context(), kind, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.successResponse(w, http.StatusOK, "artifact", artifact)
}

// pathUUID parses a path parameter as a UUID
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := r.PathValue(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &BadRequestError{Message: "invalid " + name + " " + strconv.Quote(raw), Cause: err}
	}
	return id, nil
}

// queryLimit parses ?limit=. Zero means the callee's default.
func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, &BadRequestError{Message: "limit must be a non-negative integer"}
	}
	return limit, nil
}
