package task

import (
	"time"
)

// EventSource records where a calendar event came from.
type EventSource string

const (
	SourceManual        EventSource = "manual"
	SourceAutoscheduled EventSource = "autoscheduled"
	SourceExternalSync  EventSource = "external_sync"
)

// CalendarEvent is a committed occupied interval on the timeline.
type CalendarEvent struct {
	ID         string
	TaskID     string // empty when the event has no originating task
	Title      string
	Domain     Domain
	Use        Use
	Start      time.Time
	End        time.Time
	AllDay     bool
	Recurrence string
	Source     EventSource
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewEvent creates a standalone event over [start, end).
func NewEvent(title string, start, end time.Time, source EventSource, now time.Time) (*CalendarEvent, error) {
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if !end.After(start) {
		return nil, ErrInvalidInterval
	}
	return &CalendarEvent{
		ID:        NewID(),
		Title:     title,
		Start:     start,
		End:       end,
		Source:    source,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// EventForTask builds the event paired with a scheduled task.
// Tags are copied from the task so the calendar can render without a join.
func EventForTask(t *Task, source EventSource, now time.Time) (*CalendarEvent, error) {
	start, end, ok := t.Slot()
	if !ok || !t.IsScheduled() {
		return nil, ErrScheduleMismatch
	}
	if !end.After(start) {
		return nil, ErrInvalidInterval
	}
	return &CalendarEvent{
		ID:         NewID(),
		TaskID:     t.ID,
		Title:      t.Title,
		Domain:     t.Domain,
		Use:        t.Use,
		Start:      start,
		End:        end,
		Recurrence: t.Recurrence,
		Source:     source,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Duration returns the length of the event.
func (e *CalendarEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Validate checks that the event interval is well formed.
func (e *CalendarEvent) Validate() error {
	if e.Title == "" {
		return ErrEmptyTitle
	}
	if !e.End.After(e.Start) {
		return ErrInvalidInterval
	}
	return nil
}

// MatchesTask reports whether the event is the pair of t: same task id and same interval.
func (e *CalendarEvent) MatchesTask(t *Task) bool {
	start, end, ok := t.Slot()
	if !ok {
		return false
	}
	return e.TaskID == t.ID && e.Start.Equal(start) && e.End.Equal(end)
}
