package publisher

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"
)

// Daemon drives a run function on the recurrence rule. Runs execute
// synchronously on the ticker goroutine, so a slow run can never overlap
// the next one. A failed run is logged and the daemon keeps going.
type Daemon struct {
	rule  Rule
	clock clockwork.Clock
	run   func(context.Context) error
}

func NewDaemon(rule Rule, clock clockwork.Clock, run func(context.Context) error) *Daemon {
	return &Daemon{rule: rule, clock: clock, run: run}
}

// Run blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) {
	slog.InfoContext(
		ctx, "scheduler started",
		"interval", d.rule.Interval(),
		"windows", len(d.rule.Hours),
	)

	ticker := d.clock.NewTicker(d.rule.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "scheduler stopped")
			return
		case <-ticker.Chan():
			now := d.clock.Now()
			if !d.rule.Allows(now) {
				slog.DebugContext(ctx, "outside run window, skipping tick", "now", now)
				continue
			}
			if err := d.run(ctx); err != nil {
				slog.ErrorContext(ctx, "scheduled run failed", "err", err)
			}
		}
	}
}
