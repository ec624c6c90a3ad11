package server

import (
	"net/http"
	"strings"

	"github.com/jonathan/training-planner/internal/types"
)

func (s *Server) handleSearchRaces(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))

	races, err := s.store.SearchRaces(r.Context(), name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if races == nil {
		races = []types.Race{}
	}
	s.successResponse(w, http.StatusOK, "races", races)
}

func (s *Server) handleGetRace(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	race, err := s.store.GetRace(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if race == nil {
		s.fail(w, r, &NotFoundError{Resource: "race", ID: id.String()})
		return
	}
	s.successResponse(w, http.StatusOK, "race", race)
}
