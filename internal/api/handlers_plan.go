package api

import (
	"errors"
	"net/http"

	"github.com/javiermolinar/lifeplan/internal/dateutil"
)

func (s *Server) handlePlanToday(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.PlanToday(r.Context())
	if err != nil {
		s.writeEngineError(w, "plan today", err)
		return
	}
	writeJSON(w, http.StatusOK, planToResponse(res))
}

// handleListEvents lists events in [start, end). Both default to the current day.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	today := dateutil.TruncateToDay(s.engine.Now())
	start, end := today, today.AddDate(0, 0, 1)

	q := r.URL.Query()
	if v := q.Get("start"); v != "" {
		t, err := s.parseInstant(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "start: "+err.Error())
			return
		}
		start = t
	}
	if v := q.Get("end"); v != "" {
		t, err := s.parseInstant(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "end: "+err.Error())
			return
		}
		end = t
	}
	if !end.After(start) {
		writeError(w, http.StatusBadRequest, "invalid_input", "end must be after start")
		return
	}

	events, err := s.engine.ListEvents(r.Context(), start, end)
	if err != nil {
		s.writeEngineError(w, "list events", err)
		return
	}
	writeJSON(w, http.StatusOK, eventsToResponse(events))
}

func (s *Server) handleAgenda(w http.ResponseWriter, r *http.Request) {
	day, err := dateutil.ParseRelativeDate(r.URL.Query().Get("date"), s.engine.Now())
	if errors.Is(err, dateutil.ErrDateInPast) {
		day, err = dateutil.ParseDate(r.URL.Query().Get("date"), s.engine.Location())
	}
	if err != nil {
		s.writeEngineError(w, "agenda", err)
		return
	}

	sum, err := s.engine.Agenda(r.Context(), day)
	if err != nil {
		s.writeEngineError(w, "agenda", err)
		return
	}
	writeJSON(w, http.StatusOK, agendaToResponse(sum))
}
