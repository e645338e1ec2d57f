package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/javiermolinar/lifeplan/internal/dateutil"
	"github.com/javiermolinar/lifeplan/internal/routine"
	"github.com/javiermolinar/lifeplan/internal/task"
)

type createRoutineRequest struct {
	Title           string   `json:"title"`
	Domain          string   `json:"domain"`
	Use             string   `json:"use"`
	DurationMinutes int      `json:"duration_minutes"`
	Slots           string   `json:"slots"`
	Checklist       []string `json:"checklist"`
	Tags            []string `json:"tags"`
}

type applyRoutineRequest struct {
	Start string `json:"start"` // RFC 3339; defaults to now
	Days  string `json:"days"`  // comma-separated weekdays, e.g. "mon,wed,fri"
	Time  string `json:"time"`  // "HH:MM"
}

func (s *Server) handleListRoutines(w http.ResponseWriter, r *http.Request) {
	routines, err := s.engine.ListRoutines(r.Context())
	if err != nil {
		s.writeEngineError(w, "list routines", err)
		return
	}
	out := make([]routineResponse, 0, len(routines))
	for _, rt := range routines {
		out = append(out, routineToResponse(rt))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateRoutine(w http.ResponseWriter, r *http.Request) {
	var req createRoutineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	rt, err := task.NewRoutine(req.Title, req.Domain, req.Use, req.DurationMinutes, s.engine.Now())
	if err != nil {
		s.writeEngineError(w, "create routine", err)
		return
	}
	rt.Slots = req.Slots
	rt.Checklist = nonNil(req.Checklist)
	rt.Tags = nonNil(req.Tags)

	if err := s.engine.AddRoutine(r.Context(), rt); err != nil {
		s.writeEngineError(w, "create routine", err)
		return
	}
	writeJSON(w, http.StatusCreated, routineToResponse(rt))
}

func (s *Server) handleApplyRoutine(w http.ResponseWriter, r *http.Request) {
	var req applyRoutineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	params := routine.ApplyParams{Start: s.engine.Now(), Time: req.Time}
	if req.Start != "" {
		start, err := s.parseInstant(req.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "start: "+err.Error())
			return
		}
		params.Start = start
	}
	days, err := dateutil.ParseWeekdays(req.Days)
	if err != nil {
		s.writeEngineError(w, "apply routine", err)
		return
	}
	params.Days = days

	applied, err := s.engine.ApplyRoutine(r.Context(), chi.URLParam(r, "routineID"), params)
	if err != nil {
		s.writeEngineError(w, "apply routine", err)
		return
	}
	writeJSON(w, http.StatusCreated, appliedToResponse(applied))
}
