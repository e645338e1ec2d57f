// Package memstore is an in-memory implementation of the lifeplan repositories.
// It backs the "memory" storage driver and engine-level tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/javiermolinar/lifeplan/internal/suggest"
	"github.com/javiermolinar/lifeplan/internal/task"
)

// Store keeps every entity in maps guarded by one lock.
type Store struct {
	mu          sync.RWMutex
	tasks       map[string]*task.Task
	events      map[string]*task.CalendarEvent
	routines    map[string]*task.Routine
	suggestions map[string]*suggest.Suggestion
}

var (
	_ task.Store         = (*Store)(nil)
	_ suggest.Repository = (*Store)(nil)
)

// New creates an empty store.
func New() *Store {
	return &Store{
		tasks:       make(map[string]*task.Task),
		events:      make(map[string]*task.CalendarEvent),
		routines:    make(map[string]*task.Routine),
		suggestions: make(map[string]*suggest.Suggestion),
	}
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// CreateTask adds a new task. Scheduled tasks must go through Place so they get their event.
func (s *Store) CreateTask(_ context.Context, t *task.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.IsScheduled() {
		return fmt.Errorf("creating scheduled task %s without an event: %w", t.ID, task.ErrScheduleMismatch)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.ID]; ok {
		return fmt.Errorf("task %s already exists", t.ID)
	}
	s.tasks[t.ID] = t.Clone()
	return nil
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(_ context.Context, id string) (*task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, task.ErrNotFound)
	}
	return t.Clone(), nil
}

// UpdateTask applies a partial patch.
func (s *Store) UpdateTask(_ context.Context, id string, patch task.TaskPatch) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, task.ErrNotFound)
	}
	updated := stored.Clone()
	if err := patch.Apply(updated, time.Now().UTC()); err != nil {
		return nil, err
	}
	s.tasks[id] = updated
	if updated.IsInbox() {
		for evID, ev := range s.events {
			if ev.TaskID == id {
				delete(s.events, evID)
			}
		}
	}
	return updated.Clone(), nil
}

// ListTasks returns matching tasks ordered by creation time, then ID.
func (s *Store) ListTasks(_ context.Context, filter task.TaskFilter) ([]*task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if filter.Matches(t) {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// CreateEvent adds a standalone event.
func (s *Store) CreateEvent(_ context.Context, e *task.CalendarEvent) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[e.ID]; ok {
		return fmt.Errorf("event %s already exists", e.ID)
	}
	c := *e
	s.events[e.ID] = &c
	return nil
}

// GetEvent retrieves an event by ID.
func (s *Store) GetEvent(_ context.Context, id string) (*task.CalendarEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", id, task.ErrNotFound)
	}
	c := *e
	return &c, nil
}

// GetEventByTask retrieves the event paired with a task.
func (s *Store) GetEventByTask(_ context.Context, taskID string) (*task.CalendarEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e := s.eventByTask(taskID); e != nil {
		c := *e
		return &c, nil
	}
	return nil, fmt.Errorf("event for task %s: %w", taskID, task.ErrNotFound)
}

func (s *Store) eventByTask(taskID string) *task.CalendarEvent {
	var found *task.CalendarEvent
	for _, e := range s.events {
		if e.TaskID != taskID {
			continue
		}
		if found == nil || e.ID < found.ID {
			found = e
		}
	}
	return found
}

// UpdateEvent applies a partial patch.
func (s *Store) UpdateEvent(_ context.Context, id string, patch task.EventPatch) (*task.CalendarEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", id, task.ErrNotFound)
	}
	c := *stored
	if err := patch.Apply(&c, time.Now().UTC()); err != nil {
		return nil, err
	}
	s.events[id] = &c
	out := c
	return &out, nil
}

// ListEventsInRange returns events intersecting [start, end) ordered by start, then ID.
func (s *Store) ListEventsInRange(_ context.Context, start, end time.Time) ([]*task.CalendarEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*task.CalendarEvent
	for _, e := range s.events {
		if e.Start.Before(end) && e.End.After(start) {
			c := *e
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// CreateRoutine adds a new routine.
func (s *Store) CreateRoutine(_ context.Context, r *task.Routine) error {
	if r.Title == "" {
		return task.ErrEmptyTitle
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.routines[r.ID]; ok {
		return fmt.Errorf("routine %s already exists", r.ID)
	}
	s.routines[r.ID] = cloneRoutine(r)
	return nil
}

// GetRoutine retrieves a routine by ID.
func (s *Store) GetRoutine(_ context.Context, id string) (*task.Routine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.routines[id]
	if !ok {
		return nil, fmt.Errorf("routine %s: %w", id, task.ErrNotFound)
	}
	return cloneRoutine(r), nil
}

// ListRoutines returns routines, most recently updated first.
func (s *Store) ListRoutines(_ context.Context) ([]*task.Routine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*task.Routine, 0, len(s.routines))
	for _, r := range s.routines {
		out = append(out, cloneRoutine(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func cloneRoutine(r *task.Routine) *task.Routine {
	c := *r
	c.Tags = append([]string(nil), r.Tags...)
	c.Checklist = append([]string(nil), r.Checklist...)
	return &c
}

// Place stages every placement against the current state and applies them only if all succeed.
func (s *Store) Place(_ context.Context, placements ...task.Placement) error {
	if err := task.ValidatePlacements(placements); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range placements {
		if err := s.checkPlacement(p); err != nil {
			return err
		}
	}
	for _, p := range placements {
		s.tasks[p.Task.ID] = p.Task.Clone()
		ev := *p.Event
		s.events[ev.ID] = &ev
	}
	return nil
}

func (s *Store) checkPlacement(p task.Placement) error {
	stored, exists := s.tasks[p.Task.ID]
	switch p.Kind {
	case task.PlaceCreate:
		if exists {
			return fmt.Errorf("task %s already exists", p.Task.ID)
		}
		return s.requireNoEvent(p)
	case task.PlaceSchedule:
		if !exists || !stored.IsInbox() {
			return fmt.Errorf("inbox task %s: %w", p.Task.ID, task.ErrNotFound)
		}
		return s.requireNoEvent(p)
	case task.PlaceMove:
		if !exists || !stored.IsScheduled() {
			return fmt.Errorf("scheduled task %s: %w", p.Task.ID, task.ErrNotFound)
		}
		ev, ok := s.events[p.Event.ID]
		if !ok || ev.TaskID != p.Task.ID {
			return fmt.Errorf("event %s for task %s: %w", p.Event.ID, p.Task.ID, task.ErrNotFound)
		}
	}
	return nil
}

func (s *Store) requireNoEvent(p task.Placement) error {
	if _, ok := s.events[p.Event.ID]; ok {
		return fmt.Errorf("event %s already exists", p.Event.ID)
	}
	if s.eventByTask(p.Task.ID) != nil {
		return fmt.Errorf("task %s already has an event: %w", p.Task.ID, task.ErrScheduleMismatch)
	}
	return nil
}

// UpsertSuggestion inserts or replaces a suggestion, keeping the original creation time.
func (s *Store) UpsertSuggestion(_ context.Context, sg *suggest.Suggestion) error {
	if err := sg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := sg.Clone()
	if prev, ok := s.suggestions[sg.ID]; ok {
		c.CreatedAt = prev.CreatedAt
	}
	s.suggestions[sg.ID] = c
	return nil
}

// GetSuggestion retrieves a suggestion by ID.
func (s *Store) GetSuggestion(_ context.Context, id string) (*suggest.Suggestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sg, ok := s.suggestions[id]
	if !ok {
		return nil, fmt.Errorf("suggestion %s: %w", id, task.ErrNotFound)
	}
	return sg.Clone(), nil
}

// ListActiveSuggestions returns suggestions without expiry or expiring at or after now.
func (s *Store) ListActiveSuggestions(_ context.Context, now time.Time) ([]*suggest.Suggestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*suggest.Suggestion
	for _, sg := range s.suggestions {
		if sg.Active(now) {
			out = append(out, sg.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// PurgeExpiredSuggestions deletes suggestions that expired before now.
func (s *Store) PurgeExpiredSuggestions(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sg := range s.suggestions {
		if !sg.Active(now) {
			delete(s.suggestions, id)
			n++
		}
	}
	return n, nil
}

// DeleteSuggestion removes a suggestion.
func (s *Store) DeleteSuggestion(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.suggestions[id]; !ok {
		return fmt.Errorf("suggestion %s: %w", id, task.ErrNotFound)
	}
	delete(s.suggestions, id)
	return nil
}
