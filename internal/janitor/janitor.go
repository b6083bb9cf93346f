package janitor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/authlink/authlink/internal/metrics"
	"github.com/robfig/cron/v3"
)

// Purger removes expired usage-counter entries. Satisfied by the Postgres
// counter store and the in-memory one.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

// Janitor garbage-collects expired usage counters on a cron schedule. The
// stores already treat expired rows as absent, so this is reclamation, not
// correctness.
type Janitor struct {
	counters Purger
	logger   *slog.Logger
	cron     *cron.Cron
	schedule string
}

func New(counters Purger, logger *slog.Logger, schedule string) (*Janitor, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("parse purge schedule %q: %w", schedule, err)
	}
	return &Janitor{
		counters: counters,
		logger:   logger.With("component", "janitor"),
		cron:     cron.New(),
		schedule: schedule,
	}, nil
}

// Start schedules the purge and runs until ctx is cancelled.
func (j *Janitor) Start(ctx context.Context) {
	_, err := j.cron.AddFunc(j.schedule, func() { j.purge(ctx) })
	if err != nil {
		// Schedule was validated in New; this should never happen.
		j.logger.Error("add purge job", "error", err)
		return
	}

	j.cron.Start()
	j.logger.Info("janitor started", "schedule", j.schedule)

	<-ctx.Done()
	stopCtx := j.cron.Stop()
	<-stopCtx.Done()
	j.logger.Info("janitor shut down")
}

func (j *Janitor) purge(ctx context.Context) {
	removed, err := j.counters.Purge(ctx)
	if err != nil {
		j.logger.Error("purge usage counters", "error", err)
		return
	}
	if removed > 0 {
		metrics.UsageCounterPurgedTotal.Add(float64(removed))
		j.logger.Info("purged usage counters", "removed", removed)
	}
}
