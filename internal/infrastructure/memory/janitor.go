package memory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSpec runs the janitor once a minute.
const DefaultSweepSpec = "@every 1m"

// Janitor sweeps expired flows on a cron schedule.
type Janitor struct {
	store  *FlowStore
	sched  cron.Schedule
	logger *slog.Logger
}

func NewJanitor(store *FlowStore, spec string, logger *slog.Logger) (*Janitor, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse sweep schedule %q: %w", spec, err)
	}
	return &Janitor{
		store:  store,
		sched:  sched,
		logger: logger.With("component", "flow-janitor"),
	}, nil
}

// Start blocks until ctx is cancelled.
func (j *Janitor) Start(ctx context.Context) {
	j.logger.Info("flow janitor started")

	for {
		next := j.sched.Next(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			j.logger.Info("flow janitor shut down")
			return
		case <-timer.C:
			if n := j.store.Sweep(); n > 0 {
				j.logger.Info("expired flows swept", "count", n, "remaining", j.store.Len())
			}
		}
	}
}
