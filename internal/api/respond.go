package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/javiermolinar/lifeplan/internal/dateutil"
	"github.com/javiermolinar/lifeplan/internal/planner"
	"github.com/javiermolinar/lifeplan/internal/routine"
	"github.com/javiermolinar/lifeplan/internal/scheduler"
	"github.com/javiermolinar/lifeplan/internal/suggest"
	"github.com/javiermolinar/lifeplan/internal/summary"
	"github.com/javiermolinar/lifeplan/internal/task"
)

type taskResponse struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	About          string   `json:"about,omitempty"`
	Domain         string   `json:"domain"`
	Use            string   `json:"use"`
	Priority       string   `json:"priority"`
	EffortMinutes  int      `json:"effort_minutes"`
	Status         string   `json:"status"`
	ScheduledStart *string  `json:"scheduled_start,omitempty"`
	ScheduledEnd   *string  `json:"scheduled_end,omitempty"`
	DueAt          *string  `json:"due_at,omitempty"`
	Tags           []string `json:"tags"`
	Provenance     string   `json:"provenance"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

type eventResponse struct {
	ID     string `json:"id"`
	TaskID string `json:"task_id,omitempty"`
	Title  string `json:"title"`
	Domain string `json:"domain,omitempty"`
	Start  string `json:"start"`
	End    string `json:"end"`
	AllDay bool   `json:"all_day"`
	Source string `json:"source"`
}

type routineResponse struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Domain          string   `json:"domain"`
	Use             string   `json:"use"`
	DurationMinutes int      `json:"duration_minutes"`
	Slots           string   `json:"slots,omitempty"`
	Checklist       []string `json:"checklist"`
	Tags            []string `json:"tags"`
	Active          bool     `json:"active"`
}

type intervalResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type conflictResponse struct {
	TaskID string `json:"task_id"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

type planResponse struct {
	Window    intervalResponse   `json:"window"`
	Placed    []taskResponse     `json:"placed"`
	Events    []eventResponse    `json:"events"`
	Conflicts []conflictResponse `json:"conflicts"`
}

type placementResponse struct {
	Task  taskResponse  `json:"task"`
	Event eventResponse `json:"event"`
}

type appliedResponse struct {
	RoutineID string          `json:"routine_id"`
	Tasks     []taskResponse  `json:"tasks"`
	Events    []eventResponse `json:"events"`
}

type agendaResponse struct {
	Day           string             `json:"day"`
	Hours         intervalResponse   `json:"hours"`
	Events        []eventResponse    `json:"events"`
	BusyMinutes   int                `json:"busy_minutes"`
	FreeMinutes   int                `json:"free_minutes"`
	DomainMinutes map[string]int     `json:"domain_minutes"`
	Free          []intervalResponse `json:"free"`
}

func taskToResponse(t *task.Task) taskResponse {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return taskResponse{
		ID:             t.ID,
		Title:          t.Title,
		About:          t.About,
		Domain:         string(t.Domain),
		Use:            string(t.Use),
		Priority:       string(t.Priority),
		EffortMinutes:  t.EffortMinutes,
		Status:         string(t.Status),
		ScheduledStart: formatTimePtr(t.ScheduledStart),
		ScheduledEnd:   formatTimePtr(t.ScheduledEnd),
		DueAt:          formatTimePtr(t.DueAt),
		Tags:           tags,
		Provenance:     string(t.Provenance),
		CreatedAt:      formatTime(t.CreatedAt),
		UpdatedAt:      formatTime(t.UpdatedAt),
	}
}

func eventToResponse(e *task.CalendarEvent) eventResponse {
	return eventResponse{
		ID:     e.ID,
		TaskID: e.TaskID,
		Title:  e.Title,
		Domain: string(e.Domain),
		Start:  formatTime(e.Start),
		End:    formatTime(e.End),
		AllDay: e.AllDay,
		Source: string(e.Source),
	}
}

func routineToResponse(r *task.Routine) routineResponse {
	return routineResponse{
		ID:              r.ID,
		Title:           r.Title,
		Domain:          string(r.Domain),
		Use:             string(r.Use),
		DurationMinutes: int(r.Duration() / time.Minute),
		Slots:           r.Slots,
		Checklist:       nonNil(r.Checklist),
		Tags:            nonNil(r.Tags),
		Active:          r.Active,
	}
}

func intervalToResponse(iv scheduler.Interval) intervalResponse {
	return intervalResponse{Start: formatTime(iv.Start), End: formatTime(iv.End)}
}

func tasksToResponse(tasks []*task.Task) []taskResponse {
	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskToResponse(t))
	}
	return out
}

func eventsToResponse(events []*task.CalendarEvent) []eventResponse {
	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, eventToResponse(e))
	}
	return out
}

func planToResponse(res *planner.Result) planResponse {
	conflicts := make([]conflictResponse, 0, len(res.Conflicts))
	for _, c := range res.Conflicts {
		conflicts = append(conflicts, conflictResponse{TaskID: c.Task.ID, Title: c.Task.Title, Reason: c.Reason.Error()})
	}
	return planResponse{
		Window:    intervalToResponse(res.Window),
		Placed:    tasksToResponse(res.Placed),
		Events:    eventsToResponse(res.Events),
		Conflicts: conflicts,
	}
}

func appliedToResponse(a *routine.Applied) appliedResponse {
	return appliedResponse{
		RoutineID: a.Routine.ID,
		Tasks:     tasksToResponse(a.Tasks),
		Events:    eventsToResponse(a.Events),
	}
}

func agendaToResponse(s *summary.DaySummary) agendaResponse {
	domains := make(map[string]int, len(s.DomainMinutes))
	for d, m := range s.DomainMinutes {
		domains[string(d)] = m
	}
	free := make([]intervalResponse, 0, len(s.Free))
	for _, iv := range s.Free {
		free = append(free, intervalToResponse(iv))
	}
	return agendaResponse{
		Day:           s.Day.Format("2006-01-02"),
		Hours:         intervalToResponse(s.Hours),
		Events:        eventsToResponse(s.Events),
		BusyMinutes:   s.BusyMinutes,
		FreeMinutes:   s.FreeMinutes,
		DomainMinutes: domains,
		Free:          free,
	}
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	payload := map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	}
	writeJSON(w, status, payload)
}

// writeEngineError maps a domain error to an HTTP status.
func (s *Server) writeEngineError(w http.ResponseWriter, op string, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op, "err", err)
		writeError(w, status, code, op+" failed")
		return
	}
	writeError(w, status, code, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, task.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, task.ErrTimeBlockOverlap),
		errors.Is(err, task.ErrNotSchedulable),
		errors.Is(err, suggest.ErrSuggestionExpired),
		errors.Is(err, suggest.ErrNotAcceptable),
		errors.Is(err, routine.ErrRoutineInactive):
		return http.StatusConflict, "conflict"
	case errors.Is(err, task.ErrPersistence):
		return http.StatusInternalServerError, "internal_error"
	case errors.Is(err, task.ErrInvalidInterval),
		errors.Is(err, task.ErrEmptyTitle),
		errors.Is(err, task.ErrInvalidDomain),
		errors.Is(err, task.ErrInvalidUse),
		errors.Is(err, task.ErrInvalidPriority),
		errors.Is(err, task.ErrInvalidStatus),
		errors.Is(err, task.ErrInvalidEffort),
		errors.Is(err, task.ErrScheduleMismatch),
		errors.Is(err, dateutil.ErrInvalidDateFormat),
		errors.Is(err, dateutil.ErrInvalidClockFormat),
		errors.Is(err, dateutil.ErrInvalidWeekday):
		return http.StatusBadRequest, "invalid_input"
	}
	return http.StatusInternalServerError, "internal_error"
}
