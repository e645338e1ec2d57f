package suggest

import (
	"fmt"
	"time"

	"github.com/javiermolinar/lifeplan/internal/dateutil"
)

// Rule produces suggestions from the current time. Rules have no side effects
// and never see each other's output.
type Rule interface {
	Name() string
	Evaluate(now time.Time) []Suggestion
}

// Generator combines rules by concatenating their output.
type Generator struct {
	rules []Rule
}

// NewGenerator creates a generator over the given rules, evaluated in order.
func NewGenerator(rules ...Rule) *Generator {
	return &Generator{rules: rules}
}

// Generate evaluates every rule at now.
func (g *Generator) Generate(now time.Time) []Suggestion {
	var out []Suggestion
	for _, r := range g.rules {
		out = append(out, r.Evaluate(now)...)
	}
	return out
}

// Reflection rule defaults.
const (
	DefaultReflectionAt     = "20:30"
	DefaultReflectionCutoff = "21:00"
	reflectionDuration      = 5 * time.Minute
	reflectionExpiry        = 2 * time.Hour
	reflectionConfidence    = 0.65
)

// ReflectionRule proposes a short reflection in the evening while there is still time for it.
type ReflectionRule struct {
	At         string // "HH:MM" anchor of the proposed slot
	Cutoff     string // "HH:MM"; nothing is proposed at or after this time
	Duration   time.Duration
	Expiry     time.Duration // counted from the anchor
	Confidence float64
	Location   *time.Location
}

// NewReflectionRule validates the clock times and fills the remaining defaults.
func NewReflectionRule(at, cutoff string, loc *time.Location) (*ReflectionRule, error) {
	if at == "" {
		at = DefaultReflectionAt
	}
	if cutoff == "" {
		cutoff = DefaultReflectionCutoff
	}
	if _, err := dateutil.ParseClock(at); err != nil {
		return nil, fmt.Errorf("reflection time: %w", err)
	}
	if _, err := dateutil.ParseClock(cutoff); err != nil {
		return nil, fmt.Errorf("reflection cutoff: %w", err)
	}
	return &ReflectionRule{
		At:         at,
		Cutoff:     cutoff,
		Duration:   reflectionDuration,
		Expiry:     reflectionExpiry,
		Confidence: reflectionConfidence,
		Location:   loc,
	}, nil
}

func (r *ReflectionRule) Name() string { return string(TypeReflection) }

// Evaluate returns one reflection suggestion for today when now is before the cutoff.
// The id is derived from the day, so repeated evaluation upserts the same record.
func (r *ReflectionRule) Evaluate(now time.Time) []Suggestion {
	local := now
	if r.Location != nil {
		local = now.In(r.Location)
	}

	cutoff, err := dateutil.At(local, r.Cutoff)
	if err != nil || !local.Before(cutoff) {
		return nil
	}
	anchor, err := dateutil.At(local, r.At)
	if err != nil {
		return nil
	}

	expires := anchor.Add(r.Expiry)
	minutes := int(r.Duration / time.Minute)
	return []Suggestion{{
		ID:          fmt.Sprintf("%s-%s", TypeReflection, local.Format("2006-01-02")),
		Type:        TypeReflection,
		Payload:     ReflectionPayload{When: anchor, DurationMinutes: minutes},
		Confidence:  r.Confidence,
		Explanation: fmt.Sprintf("A short %d-minute reflection helps close the day.", minutes),
		Action:      ActionAccept,
		ExpiresAt:   &expires,
		CreatedAt:   now,
		UpdatedAt:   now,
	}}
}
