package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/javiermolinar/lifeplan/internal/task"
)

type createTaskRequest struct {
	Title         string   `json:"title"`
	About         string   `json:"about"`
	Domain        string   `json:"domain"`
	Use           string   `json:"use"`
	Priority      string   `json:"priority"`
	EffortMinutes int      `json:"effort_minutes"`
	DueAt         string   `json:"due_at"`
	Tags          []string `json:"tags"`
}

type scheduleTaskRequest struct {
	Start string `json:"start"`
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	if req.Priority == "" {
		req.Priority = string(task.PriorityLater)
	}

	now := s.engine.Now()
	t, err := task.New(req.Title, req.Domain, req.Use, req.Priority, req.EffortMinutes, now)
	if err != nil {
		s.writeEngineError(w, "create task", err)
		return
	}
	t.About = strings.TrimSpace(req.About)
	if req.Tags != nil {
		t.Tags = req.Tags
	}
	if req.DueAt != "" {
		due, err := s.parseInstant(req.DueAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "due_at: "+err.Error())
			return
		}
		t.DueAt = &due
	}

	if err := s.engine.AddTask(r.Context(), t); err != nil {
		s.writeEngineError(w, "create task", err)
		return
	}
	writeJSON(w, http.StatusCreated, taskToResponse(t))
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := task.TaskFilter{
		Status:   task.Status(q.Get("status")),
		Priority: task.Priority(q.Get("priority")),
		Domain:   task.Domain(q.Get("domain")),
		Use:      task.Use(q.Get("use")),
		Tag:      q.Get("tag"),
		Query:    q.Get("q"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_input", "unknown status "+string(filter.Status))
		return
	}

	tasks, err := s.engine.ListTasks(r.Context(), filter)
	if err != nil {
		s.writeEngineError(w, "list tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, tasksToResponse(tasks))
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	t, err := s.engine.GetTask(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		s.writeEngineError(w, "load task", err)
		return
	}
	writeJSON(w, http.StatusOK, taskToResponse(t))
}

func (s *Server) handleScheduleTask(w http.ResponseWriter, r *http.Request) {
	var req scheduleTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	start, err := s.parseInstant(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "start: "+err.Error())
		return
	}

	t, ev, err := s.engine.ScheduleTask(r.Context(), chi.URLParam(r, "taskID"), start)
	if err != nil {
		s.writeEngineError(w, "schedule task", err)
		return
	}
	writeJSON(w, http.StatusOK, placementResponse{Task: taskToResponse(t), Event: eventToResponse(ev)})
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	status, err := task.ParseStatus(req.Status)
	if err != nil {
		s.writeEngineError(w, "set status", err)
		return
	}

	t, err := s.engine.SetStatus(r.Context(), chi.URLParam(r, "taskID"), status)
	if err != nil {
		s.writeEngineError(w, "set status", err)
		return
	}
	writeJSON(w, http.StatusOK, taskToResponse(t))
}

// parseInstant accepts RFC 3339 or a local "YYYY-MM-DDTHH:MM" in the engine's location.
func (s *Server) parseInstant(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04", v, s.engine.Location())
}
