// Package suggest generates and manages non-binding scheduling proposals.
package suggest

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/javiermolinar/lifeplan/internal/task"
)

// Errors returned by the suggest package.
var (
	ErrUnknownType       = errors.New("unknown suggestion type")
	ErrPayloadMismatch   = errors.New("payload does not match suggestion type")
	ErrSuggestionExpired = errors.New("suggestion expired")
	ErrNotAcceptable     = errors.New("suggestion cannot be accepted as a task")
	ErrInvalidConfidence = errors.New("confidence must be between 0 and 1")
)

// Type is the closed set of suggestion kinds.
type Type string

const (
	TypeScheduleSlot  Type = "schedule_slot"
	TypeRoutinePrompt Type = "routine_prompt"
	TypeFinanceCheck  Type = "finance_check"
	TypeReflection    Type = "reflection"
	TypeRecoveryBreak Type = "recovery_break"
	TypeBufferTime    Type = "buffer_time"
	TypeBillReminder  Type = "bill_reminder"
)

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	switch t {
	case TypeScheduleSlot, TypeRoutinePrompt, TypeFinanceCheck, TypeReflection,
		TypeRecoveryBreak, TypeBufferTime, TypeBillReminder:
		return true
	}
	return false
}

// Action is the recommended response to a suggestion.
type Action string

const (
	ActionAccept  Action = "accept"
	ActionSnooze  Action = "snooze"
	ActionDismiss Action = "dismiss"
)

// Payload is the type-specific part of a suggestion.
type Payload interface {
	Type() Type
}

// Proposal describes the task a suggestion turns into when accepted.
type Proposal struct {
	Title    string
	Domain   task.Domain
	Use      task.Use
	Priority task.Priority
	Start    time.Time
	Duration time.Duration
}

// Proposer is implemented by payloads that can be accepted as a scheduled task.
type Proposer interface {
	Proposal() Proposal
}

// ReflectionPayload proposes a short end-of-day reflection.
type ReflectionPayload struct {
	When            time.Time `json:"when"`
	DurationMinutes int       `json:"durationMinutes"`
}

func (ReflectionPayload) Type() Type { return TypeReflection }

// Proposal returns the "Evening reflection" task.
func (p ReflectionPayload) Proposal() Proposal {
	return Proposal{
		Title:    "Evening reflection",
		Domain:   task.DomainMental,
		Use:      task.UseReflect,
		Priority: task.PrioritySoon,
		Start:    p.When,
		Duration: time.Duration(p.DurationMinutes) * time.Minute,
	}
}

// Suggestion is an ephemeral proposal. It is never a commitment by itself.
type Suggestion struct {
	ID          string
	Type        Type
	Payload     Payload
	Confidence  float64
	Explanation string
	Action      Action
	ExpiresAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Active reports whether the suggestion has no expiry or has not expired at now.
func (s *Suggestion) Active(now time.Time) bool {
	return s.ExpiresAt == nil || !s.ExpiresAt.Before(now)
}

// Validate checks the type, payload and confidence.
func (s *Suggestion) Validate() error {
	if s.ID == "" {
		return errors.New("suggestion id is required")
	}
	if !s.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownType, s.Type)
	}
	if s.Payload == nil || s.Payload.Type() != s.Type {
		return fmt.Errorf("%w: %s", ErrPayloadMismatch, s.Type)
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("%w, got %v", ErrInvalidConfidence, s.Confidence)
	}
	return nil
}

// EncodePayload returns the JSON form of a payload.
func EncodePayload(p Payload) ([]byte, error) {
	if p == nil {
		return nil, ErrPayloadMismatch
	}
	return json.Marshal(p)
}

// DecodePayload decodes raw JSON into the payload variant for t.
func DecodePayload(t Type, raw []byte) (Payload, error) {
	switch t {
	case TypeReflection:
		var p ReflectionPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decoding %s payload: %w", t, err)
		}
		return p, nil
	}
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	return nil, fmt.Errorf("%w: no payload variant for %s", ErrUnknownType, t)
}

type suggestionJSON struct {
	ID          string          `json:"id"`
	Type        Type            `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Confidence  float64         `json:"confidence"`
	Explanation string          `json:"explanation"`
	Action      Action          `json:"action"`
	ExpiresAt   *time.Time      `json:"expiresAt,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// MarshalJSON writes the payload next to its type tag.
func (s Suggestion) MarshalJSON() ([]byte, error) {
	raw, err := EncodePayload(s.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(suggestionJSON{
		ID:          s.ID,
		Type:        s.Type,
		Payload:     raw,
		Confidence:  s.Confidence,
		Explanation: s.Explanation,
		Action:      s.Action,
		ExpiresAt:   s.ExpiresAt,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	})
}

// UnmarshalJSON decodes the payload into the variant named by the type tag.
func (s *Suggestion) UnmarshalJSON(data []byte) error {
	var w suggestionJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	p, err := DecodePayload(w.Type, w.Payload)
	if err != nil {
		return err
	}
	*s = Suggestion{
		ID:          w.ID,
		Type:        w.Type,
		Payload:     p,
		Confidence:  w.Confidence,
		Explanation: w.Explanation,
		Action:      w.Action,
		ExpiresAt:   w.ExpiresAt,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
	return nil
}

// Clone returns a copy that shares no pointers with s.
func (s *Suggestion) Clone() *Suggestion {
	c := *s
	if s.ExpiresAt != nil {
		v := *s.ExpiresAt
		c.ExpiresAt = &v
	}
	return &c
}
