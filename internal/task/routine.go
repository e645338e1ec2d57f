package task

import (
	"strings"
	"time"
)

// DefaultRoutineDuration is used when a routine has no time block of its own.
const DefaultRoutineDuration = 60 * time.Minute

// Routine is a reusable template for tasks that get placed by hand.
// It is never scheduled itself.
type Routine struct {
	ID              string
	Title           string
	Domain          Domain
	Use             Use
	DurationMinutes int    // 0 means DefaultRoutineDuration
	Slots           string // human hint such as "weekdays 08:00"
	Tags            []string
	Recurrence      string
	Checklist       []string
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewRoutine creates an active routine with validation.
func NewRoutine(title, domain, use string, minutes int, now time.Time) (*Routine, error) {
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
	if minutes < 0 {
		return nil, ErrInvalidEffort
	}
	return &Routine{
		ID:              NewID(),
		Title:           title,
		Domain:          d,
		Use:             u,
		DurationMinutes: minutes,
		Tags:            []string{},
		Checklist:       []string{},
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Duration returns the routine's time block.
func (r *Routine) Duration() time.Duration {
	if r.DurationMinutes <= 0 {
		return DefaultRoutineDuration
	}
	return time.Duration(r.DurationMinutes) * time.Minute
}

// ChecklistText renders the checklist as a markdown bullet list.
func (r *Routine) ChecklistText() string {
	if len(r.Checklist) == 0 {
		return ""
	}
	return "- " + strings.Join(r.Checklist, "\n- ")
}
