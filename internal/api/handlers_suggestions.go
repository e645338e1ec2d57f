package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/javiermolinar/lifeplan/internal/suggest"
)

func (s *Server) handleListSuggestions(w http.ResponseWriter, r *http.Request) {
	list, err := s.engine.ListActiveSuggestions(r.Context())
	if err != nil {
		s.writeEngineError(w, "list suggestions", err)
		return
	}
	if list == nil {
		list = []*suggest.Suggestion{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleEvaluateSuggestions(w http.ResponseWriter, r *http.Request) {
	list, err := s.engine.EvaluateSuggestions(r.Context())
	if err != nil {
		s.writeEngineError(w, "evaluate suggestions", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleAcceptSuggestion(w http.ResponseWriter, r *http.Request) {
	accepted, err := s.engine.AcceptSuggestion(r.Context(), chi.URLParam(r, "suggestionID"))
	if err != nil {
		s.writeEngineError(w, "accept suggestion", err)
		return
	}
	writeJSON(w, http.StatusCreated, placementResponse{
		Task:  taskToResponse(accepted.Task),
		Event: eventToResponse(accepted.Event),
	})
}

func (s *Server) handleDismissSuggestion(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DismissSuggestion(r.Context(), chi.URLParam(r, "suggestionID")); err != nil {
		s.writeEngineError(w, "dismiss suggestion", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
