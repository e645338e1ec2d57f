// Package task defines the core domain types for lifeplan.
package task

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Validation errors.
var (
	ErrEmptyTitle      = errors.New("title cannot be empty")
	ErrInvalidDomain   = errors.New("domain must be one of time, finance, physical, mental, social, spiritual, admin")
	ErrInvalidUse      = errors.New("use must be one of plan, execute, review, learn, budget, recover, reflect")
	ErrInvalidPriority = errors.New("priority must be 'now', 'soon' or 'later'")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidEffort   = errors.New("effort minutes cannot be negative")
	ErrInvalidInterval = errors.New("end must be after start")
)

// Domain errors.
var (
	ErrNotFound           = errors.New("not found")
	ErrTimeBlockOverlap   = errors.New("time block overlaps with existing event")
	ErrScheduleMismatch   = errors.New("scheduled status requires a start and an end")
	ErrNotSchedulable     = errors.New("task is not in a schedulable state")
	ErrPersistence        = errors.New("persistence failure")
	ErrDuplicatePlacement = errors.New("task placed more than once in one commit")
)

// DefaultEffort is used when a task carries no effort estimate.
const DefaultEffort = 30 * time.Minute

// Domain is the area of life a task belongs to.
type Domain string

const (
	DomainTime      Domain = "time"
	DomainFinance   Domain = "finance"
	DomainPhysical  Domain = "physical"
	DomainMental    Domain = "mental"
	DomainSocial    Domain = "social"
	DomainSpiritual Domain = "spiritual"
	DomainAdmin     Domain = "admin"
)

// Domains lists every domain in display order.
var Domains = []Domain{
	DomainTime, DomainFinance, DomainPhysical, DomainMental,
	DomainSocial, DomainSpiritual, DomainAdmin,
}

// Valid returns true if the domain is a known value.
func (d Domain) Valid() bool {
	for _, v := range Domains {
		if v == d {
			return true
		}
	}
	return false
}

// Use is the intended use of the time spent on a task.
type Use string

const (
	UsePlan    Use = "plan"
	UseExecute Use = "execute"
	UseReview  Use = "review"
	UseLearn   Use = "learn"
	UseBudget  Use = "budget"
	UseRecover Use = "recover"
	UseReflect Use = "reflect"
)

// Valid returns true if the use is a known value.
func (u Use) Valid() bool {
	switch u {
	case UsePlan, UseExecute, UseReview, UseLearn, UseBudget, UseRecover, UseReflect:
		return true
	default:
		return false
	}
}

// Priority is how urgently a task should be placed.
type Priority string

const (
	PriorityNow   Priority = "now"
	PrioritySoon  Priority = "soon"
	PriorityLater Priority = "later"
)

// Rank orders priorities for planning: lower ranks are placed first.
func (p Priority) Rank() int {
	switch p {
	case PriorityNow:
		return 0
	case PrioritySoon:
		return 1
	case PriorityLater:
		return 2
	default:
		return 3
	}
}

// Valid returns true if the priority is a known value.
func (p Priority) Valid() bool {
	return p.Rank() < 3
}

// Status represents the state of a task.
type Status string

const (
	StatusInbox     Status = "inbox"
	StatusScheduled Status = "scheduled"
	StatusDone      Status = "done"
	StatusSkipped   Status = "skipped"
	StatusCanceled  Status = "canceled"
)

// Valid returns true if the status is a known value.
func (s Status) Valid() bool {
	switch s {
	case StatusInbox, StatusScheduled, StatusDone, StatusSkipped, StatusCanceled:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status is set by collaborators outside the scheduler.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusSkipped || s == StatusCanceled
}

// Provenance records how a task was created.
type Provenance string

const (
	ProvenanceManual     Provenance = "manual"
	ProvenanceSuggestion Provenance = "suggestion_accepted"
	ProvenanceTemplate   Provenance = "template"
)

// Task represents a unit of work.
type Task struct {
	ID             string
	Title          string
	About          string // free-form notes, routines put their checklist here
	Domain         Domain
	Use            Use
	Priority       Priority
	EffortMinutes  int // 0 means DefaultEffort
	Status         Status
	ScheduledStart *time.Time
	ScheduledEnd   *time.Time
	DueAt          *time.Time
	Recurrence     string
	Tags           []string
	Provenance     Provenance
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewID returns a new opaque identifier.
func NewID() string {
	return uuid.NewString()
}

// New creates a new inbox Task with validation.
// domain, use and priority are parsed case-insensitively.
// effort is in minutes; zero means the default effort.
func New(title, domain, use, priority string, effort int, now time.Time) (*Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	d, err := ParseDomain(domain)
	if err != nil {
		return nil, err
	}
	u, err := ParseUse(use)
	if err != nil {
		return nil, err
	}
	p, err := ParsePriority(priority)
	if err != nil {
		return nil, err
	}
	if effort < 0 {
		return nil, ErrInvalidEffort
	}

	return &Task{
		ID:            NewID(),
		Title:         title,
		Domain:        d,
		Use:           u,
		Priority:      p,
		EffortMinutes: effort,
		Status:        StatusInbox,
		Tags:          []string{},
		Provenance:    ProvenanceManual,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// ParseDomain parses a domain name.
func ParseDomain(s string) (Domain, error) {
	d := Domain(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", ErrInvalidDomain
	}
	return d, nil
}

// ParseUse parses an intended-use name.
func ParseUse(s string) (Use, error) {
	u := Use(strings.ToLower(strings.TrimSpace(s)))
	if !u.Valid() {
		return "", ErrInvalidUse
	}
	return u, nil
}

// ParsePriority parses a priority name.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", ErrInvalidPriority
	}
	return p, nil
}

// ParseStatus parses a status name.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}

// IsScheduled returns true if the task has scheduled status.
func (t *Task) IsScheduled() bool {
	return t.Status == StatusScheduled
}

// IsInbox returns true if the task is waiting in the backlog.
func (t *Task) IsInbox() bool {
	return t.Status == StatusInbox
}

// Effort returns the planned duration, falling back to def when no estimate is set.
func (t *Task) Effort(def time.Duration) time.Duration {
	if t.EffortMinutes == 0 {
		return def
	}
	return time.Duration(t.EffortMinutes) * time.Minute
}

// Slot returns the scheduled interval. ok is false unless both bounds are set.
func (t *Task) Slot() (start, end time.Time, ok bool) {
	if t.ScheduledStart == nil || t.ScheduledEnd == nil {
		return time.Time{}, time.Time{}, false
	}
	return *t.ScheduledStart, *t.ScheduledEnd, true
}

// HasTag reports whether the task carries the given tag.
func (t *Task) HasTag(tag string) bool {
	for _, v := range t.Tags {
		if v == tag {
			return true
		}
	}
	return false
}

// Validate checks the task's own invariants:
// status is scheduled iff both bounds are present and end is after start.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, t.Status)
	}
	if t.EffortMinutes < 0 {
		return ErrInvalidEffort
	}

	start, end, ok := t.Slot()
	if ok && !end.After(start) {
		return ErrInvalidInterval
	}
	if t.IsScheduled() != ok {
		return ErrScheduleMismatch
	}
	return nil
}

// Schedule moves the task into scheduled status over [start, end).
func (t *Task) Schedule(start, end, now time.Time) error {
	if !end.After(start) {
		return ErrInvalidInterval
	}
	if t.Status.Terminal() {
		return fmt.Errorf("%w: status %s", ErrNotSchedulable, t.Status)
	}
	s, e := start, end
	t.ScheduledStart = &s
	t.ScheduledEnd = &e
	t.Status = StatusScheduled
	t.UpdatedAt = now
	return nil
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	c := *t
	c.Tags = append([]string(nil), t.Tags...)
	if t.ScheduledStart != nil {
		v := *t.ScheduledStart
		c.ScheduledStart = &v
	}
	if t.ScheduledEnd != nil {
		v := *t.ScheduledEnd
		c.ScheduledEnd = &v
	}
	if t.DueAt != nil {
		v := *t.DueAt
		c.DueAt = &v
	}
	return &c
}
