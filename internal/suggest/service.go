package suggest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/javiermolinar/lifeplan/internal/task"
)

// Repository stores suggestions.
type Repository interface {
	// UpsertSuggestion inserts or replaces the suggestion with the same id.
	UpsertSuggestion(ctx context.Context, s *Suggestion) error

	// GetSuggestion returns task.ErrNotFound for an unknown id.
	GetSuggestion(ctx context.Context, id string) (*Suggestion, error)

	// ListActiveSuggestions returns suggestions without expiry or expiring at or after now.
	ListActiveSuggestions(ctx context.Context, now time.Time) ([]*Suggestion, error)

	// PurgeExpiredSuggestions deletes suggestions that expired before now and returns how many.
	PurgeExpiredSuggestions(ctx context.Context, now time.Time) (int, error)

	// DeleteSuggestion returns task.ErrNotFound for an unknown id.
	DeleteSuggestion(ctx context.Context, id string) error
}

// Store is what the service needs from persistence.
type Store interface {
	Repository
	GetTask(ctx context.Context, id string) (*task.Task, error)
	GetEventByTask(ctx context.Context, taskID string) (*task.CalendarEvent, error)
	task.Placer
}

// Accepted is the task/event pair created from a suggestion.
type Accepted struct {
	Task  *task.Task
	Event *task.CalendarEvent
}

// Service runs the suggestion lifecycle: evaluate, list, accept, dismiss, purge.
type Service struct {
	store  Store
	gen    *Generator
	logger *slog.Logger
}

// NewService creates a Service. A nil logger discards output.
func NewService(store Store, gen *Generator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if gen == nil {
		gen = NewGenerator()
	}
	return &Service{store: store, gen: gen, logger: logger}
}

// Evaluate generates suggestions for now and upserts them.
// A suggestion that was already accepted is not brought back.
func (s *Service) Evaluate(ctx context.Context, now time.Time) ([]*Suggestion, error) {
	generated := s.gen.Generate(now)
	out := make([]*Suggestion, 0, len(generated))
	for i := range generated {
		sg := &generated[i]
		if err := sg.Validate(); err != nil {
			return nil, fmt.Errorf("suggestion %s: %w", sg.ID, err)
		}
		accepted, err := s.accepted(ctx, sg.ID)
		if err != nil {
			return nil, err
		}
		if accepted {
			continue
		}
		if err := s.keepStoredState(ctx, sg); err != nil {
			return nil, err
		}
		if err := s.store.UpsertSuggestion(ctx, sg); err != nil {
			return nil, task.PersistenceError("saving suggestion "+sg.ID, err)
		}
		out = append(out, sg)
	}
	s.logger.Debug("suggestions evaluated", "count", len(out))
	return out, nil
}

func (s *Service) accepted(ctx context.Context, id string) (bool, error) {
	_, err := s.store.GetTask(ctx, AcceptedTaskID(id))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, task.ErrNotFound):
		return false, nil
	}
	return false, task.PersistenceError("loading task for suggestion "+id, err)
}

// keepStoredState carries over the stored creation time, and the update time when nothing changed.
func (s *Service) keepStoredState(ctx context.Context, sg *Suggestion) error {
	prev, err := s.store.GetSuggestion(ctx, sg.ID)
	if errors.Is(err, task.ErrNotFound) {
		return nil
	}
	if err != nil {
		return task.PersistenceError("loading suggestion "+sg.ID, err)
	}
	sg.CreatedAt = prev.CreatedAt
	if sameProposal(prev, sg) {
		sg.UpdatedAt = prev.UpdatedAt
	}
	return nil
}

func sameProposal(a, b *Suggestion) bool {
	if a.Type != b.Type || a.Confidence != b.Confidence || a.Explanation != b.Explanation || a.Action != b.Action {
		return false
	}
	if (a.ExpiresAt == nil) != (b.ExpiresAt == nil) || (a.ExpiresAt != nil && !a.ExpiresAt.Equal(*b.ExpiresAt)) {
		return false
	}
	pa, errA := EncodePayload(a.Payload)
	pb, errB := EncodePayload(b.Payload)
	return errA == nil && errB == nil && bytes.Equal(pa, pb)
}

// ListActive returns the suggestions still active at now.
func (s *Service) ListActive(ctx context.Context, now time.Time) ([]*Suggestion, error) {
	list, err := s.store.ListActiveSuggestions(ctx, now)
	if err != nil {
		return nil, task.PersistenceError("listing suggestions", err)
	}
	return list, nil
}

// PurgeExpired removes expired suggestions and reports how many were removed.
func (s *Service) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	n, err := s.store.PurgeExpiredSuggestions(ctx, now)
	if err != nil {
		return 0, task.PersistenceError("purging suggestions", err)
	}
	if n > 0 {
		s.logger.Info("expired suggestions purged", "count", n)
	}
	return n, nil
}

// Accept turns a suggestion into a scheduled task with its event, then deletes the suggestion.
// The task id is derived from the suggestion id, so accepting twice never creates a second task.
func (s *Service) Accept(ctx context.Context, id string, now time.Time) (*Accepted, error) {
	sg, err := s.store.GetSuggestion(ctx, id)
	if err != nil {
		return nil, task.PersistenceError("loading suggestion "+id, err)
	}

	taskID := AcceptedTaskID(id)
	existing, err := s.store.GetTask(ctx, taskID)
	switch {
	case err == nil:
		// accepted before but the suggestion outlived it
		ev, err := s.store.GetEventByTask(ctx, taskID)
		if err != nil {
			return nil, task.PersistenceError("loading event for task "+taskID, err)
		}
		if err := s.store.DeleteSuggestion(ctx, id); err != nil && !errors.Is(err, task.ErrNotFound) {
			return nil, task.PersistenceError("deleting suggestion "+id, err)
		}
		return &Accepted{Task: existing, Event: ev}, nil
	case !errors.Is(err, task.ErrNotFound):
		return nil, task.PersistenceError("loading task "+taskID, err)
	}

	if !sg.Active(now) {
		return nil, fmt.Errorf("%w: %s", ErrSuggestionExpired, id)
	}
	proposer, ok := sg.Payload.(Proposer)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotAcceptable, sg.Type)
	}

	t, err := materialize(taskID, proposer.Proposal(), now)
	if err != nil {
		return nil, err
	}
	ev, err := task.EventForTask(t, task.SourceManual, now)
	if err != nil {
		return nil, err
	}

	if err := s.store.Place(ctx, task.Placement{Kind: task.PlaceCreate, Task: t, Event: ev}); err != nil {
		return nil, task.PersistenceError("placing accepted suggestion", err)
	}
	if err := s.store.DeleteSuggestion(ctx, id); err != nil {
		return nil, task.PersistenceError("deleting suggestion "+id, err)
	}

	s.logger.Info("suggestion accepted", "suggestion_id", id, "task_id", t.ID, "start", ev.Start)
	return &Accepted{Task: t, Event: ev}, nil
}

// Dismiss deletes a suggestion.
func (s *Service) Dismiss(ctx context.Context, id string) error {
	if err := s.store.DeleteSuggestion(ctx, id); err != nil {
		return task.PersistenceError("dismissing suggestion "+id, err)
	}
	return nil
}

// AcceptedTaskID returns the id of the task created when suggestion id is accepted.
func AcceptedTaskID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("lifeplan/suggestion/"+id)).String()
}

func materialize(id string, p Proposal, now time.Time) (*task.Task, error) {
	if p.Duration <= 0 {
		return nil, fmt.Errorf("%w: duration %s", task.ErrInvalidInterval, p.Duration)
	}
	t := &task.Task{
		ID:            id,
		Title:         p.Title,
		Domain:        p.Domain,
		Use:           p.Use,
		Priority:      p.Priority,
		EffortMinutes: int(p.Duration / time.Minute),
		Status:        task.StatusInbox,
		Tags:          []string{},
		Provenance:    task.ProvenanceSuggestion,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := t.Schedule(p.Start, p.Start.Add(p.Duration), now); err != nil {
		return nil, err
	}
	return t, t.Validate()
}
