package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

type Task func(ctx context.Context) error

// Interval reports the current period. A non-positive period pauses runs.
type Interval func() time.Duration

func Fixed(d time.Duration) Interval { return func() time.Duration { return d } }

// pausedCheck is how often a paused schedule looks for a new period when
// nobody wakes it.
const pausedCheck = time.Minute

// Every runs task immediately and then on every tick until ctx is done.
// Runs never overlap: a tick that fires while the task is still running is
// coalesced by the ticker.
func Every(ctx context.Context, clock clockwork.Clock, interval time.Duration, name string, task Task) {
	EveryInterval(ctx, clock, Fixed(interval), nil, name, task)
}

// EveryInterval is Every with a period read again on each tick and on each
// receive from wake, so a changed period applies without a restart.
func EveryInterval(ctx context.Context, clock clockwork.Clock, interval Interval, wake <-chan struct{}, name string, task Task) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	period := interval()
	t := clock.NewTicker(tickFor(period))
	defer t.Stop()

	run := func() {
		if err := task(ctx); err != nil && ctx.Err() == nil {
			slog.WarnContext(ctx, "scheduled task failed", "task", name, "err", err)
		}
	}
	// adopt re-reads the period and resets the ticker when it moved.
	adopt := func() time.Duration {
		next := interval()
		if tickFor(next) != tickFor(period) {
			t.Reset(tickFor(next))
			slog.InfoContext(ctx, "schedule changed", "task", name, "interval", next)
		}
		period = next
		return next
	}

	if period > 0 {
		run()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-wake:
			adopt()
		case <-t.Chan():
			if adopt() > 0 {
				run()
			}
		}
	}
}

func tickFor(d time.Duration) time.Duration {
	if d <= 0 {
		return pausedCheck
	}
	return d
}
