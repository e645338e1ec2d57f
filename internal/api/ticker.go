package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/javiermolinar/lifeplan/internal/engine"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Ticker periodically evaluates suggestion rules and purges expired suggestions.
// The engine has no timers of its own; this is the only driver of evaluation in server mode.
type Ticker struct {
	cron   *cron.Cron
	engine *engine.Engine
	logger *slog.Logger
	ctx    context.Context
}

// NewTicker parses a 5-field cron spec and prepares the evaluation job.
func NewTicker(spec string, eng *engine.Engine, logger *slog.Logger) (*Ticker, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	schedule, err := cronParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	t := &Ticker{
		cron: cron.New(
			cron.WithParser(cronParser),
			cron.WithLocation(eng.Location()),
		),
		engine: eng,
		logger: logger,
		ctx:    context.Background(),
	}
	t.cron.Schedule(schedule, cron.FuncJob(func() { t.Tick(t.ctx) }))
	return t, nil
}

// Start runs the first evaluation immediately, then follows the schedule.
func (t *Ticker) Start(ctx context.Context) {
	t.ctx = ctx
	t.Tick(ctx)
	t.cron.Start()
}

// Stop stops the schedule and returns a context done when running jobs finish.
func (t *Ticker) Stop() context.Context {
	return t.cron.Stop()
}

// Next returns the next scheduled evaluation after from.
func (t *Ticker) Next(from time.Time) time.Time {
	entries := t.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Schedule.Next(from)
}

// Tick evaluates suggestion rules and purges expired suggestions once.
func (t *Ticker) Tick(ctx context.Context) {
	purged, err := t.engine.PurgeExpiredSuggestions(ctx)
	if err != nil {
		t.logger.Error("purge suggestions", "err", err)
	}
	generated, err := t.engine.EvaluateSuggestions(ctx)
	if err != nil {
		t.logger.Error("evaluate suggestions", "err", err)
		return
	}
	t.logger.Debug("suggestion tick", "generated", len(generated), "purged", purged)
}
