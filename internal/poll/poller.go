// Package poll runs the engine's background jobs on a schedule and keeps
// a status snapshot of each for the API.
package poll

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"internflow-engine/internal/events"
	"internflow-engine/internal/scheduler"

	"github.com/jonboulle/clockwork"
)

var ErrBusy = errors.New("job already running")

type Status struct {
	Name       string `json:"name"`
	Running    bool   `json:"running"`
	Runs       int    `json:"runs"`
	LastRunAt  string `json:"lastRunAt,omitempty"`
	LastOkAt   string `json:"lastOkAt,omitempty"`
	LastError  string `json:"lastError,omitempty"`
	LastResult any    `json:"lastResult,omitempty"`
}

type RunFunc func(ctx context.Context) (result any, err error)

// Tracker wraps one job so that scheduled and on-demand runs share one
// status and never overlap.
type Tracker struct {
	name   string
	event  string
	run    RunFunc
	clock  clockwork.Clock
	hub    *events.Hub
	log    *slog.Logger
	mu     sync.Mutex
	status atomic.Value // Status
	wake   chan struct{}
}

// NewTracker builds a tracker that publishes event (when non-empty) on hub
// with the run result after every successful run.
func NewTracker(name, event string, run RunFunc, clock clockwork.Clock, hub *events.Hub, log *slog.Logger) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = slog.Default()
	}
	t := &Tracker{name: name, event: event, run: run, clock: clock, hub: hub, log: log.With("job", name), wake: make(chan struct{}, 1)}
	t.status.Store(Status{Name: name})
	return t
}

func (t *Tracker) Status() Status { return t.status.Load().(Status) }

// RunNow runs the job once, or fails with ErrBusy if a run is in flight.
func (t *Tracker) RunNow(ctx context.Context) (any, error) {
	if !t.mu.TryLock() {
		return nil, ErrBusy
	}
	defer t.mu.Unlock()
	return t.runLocked(ctx)
}

// Go starts a run in the background and returns at once. Like RunNow it
// fails with ErrBusy rather than queue behind a run in flight.
func (t *Tracker) Go(ctx context.Context) error {
	if !t.mu.TryLock() {
		return ErrBusy
	}
	go func() {
		defer t.mu.Unlock()
		_, _ = t.runLocked(ctx)
	}()
	return nil
}

func (t *Tracker) runLocked(ctx context.Context) (any, error) {
	st := t.Status()
	st.Running = true
	st.LastRunAt = t.clock.Now().Format(time.RFC3339)
	t.status.Store(st)

	res, err := t.run(ctx)

	st = t.Status()
	st.Running = false
	st.Runs++
	if err != nil {
		st.LastError = err.Error()
		t.log.WarnContext(ctx, "job failed", "err", err)
	} else {
		st.LastError = ""
		st.LastOkAt = t.clock.Now().Format(time.RFC3339)
		st.LastResult = res
		t.log.DebugContext(ctx, "job ok")
	}
	t.status.Store(st)

	if t.hub != nil && t.event != "" {
		t.hub.Emit(ctx, t.event, st)
	}
	return res, err
}

// Start runs the job on the schedule given by interval in a goroutine until
// ctx is done. The interval is read again on every tick and after
// Reschedule; while it is non-positive the job only runs on demand.
func (t *Tracker) Start(ctx context.Context, interval scheduler.Interval) {
	go scheduler.EveryInterval(ctx, t.clock, interval, t.wake, t.name, func(ctx context.Context) error {
		_, err := t.RunNow(ctx)
		if errors.Is(err, ErrBusy) {
			return nil
		}
		return err
	})
}

// Reschedule makes a started schedule re-read its interval now.
func (t *Tracker) Reschedule() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}
