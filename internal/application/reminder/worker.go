package reminder

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// maxTickLag is how late a tick may fire and still run. Anything later
// (process pause, clock jump) is skipped; the next on-time tick covers
// the same thresholds because the window equals the interval.
const maxTickLag = 5 * time.Minute

// Worker drives the scheduler on a fixed cadence. At most one sweep
// runs at a time; ticks arriving while a sweep is in flight are
// dropped, which coalesces missed runs into the next tick.
type Worker struct {
	scheduler *Scheduler
	interval  time.Duration
	now       func() time.Time

	mu       sync.Mutex
	running  bool
	lastTick time.Time
}

// NewWorker creates a worker around the scheduler.
func NewWorker(scheduler *Scheduler, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	return &Worker{
		scheduler: scheduler,
		interval:  interval,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run ticks until the context is cancelled. The first sweep runs
// immediately.
func (w *Worker) Run(ctx context.Context) error {
	w.tick(ctx, w.now())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	expected := w.now().Add(w.interval)
	for {
		select {
		case <-ticker.C:
			now := w.now()
			if lag := now.Sub(expected); lag > maxTickLag {
				slog.WarnContext(ctx, "skipping late reminder tick",
					"lag", lag.String())
			} else {
				w.tick(ctx, now)
			}
			expected = now.Add(w.interval)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// tick runs one sweep unless one is already in flight.
func (w *Worker) tick(ctx context.Context, now time.Time) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		slog.WarnContext(ctx, "reminder sweep still running, coalescing tick")
		return
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.lastTick = now
		w.mu.Unlock()
	}()

	created, err := w.scheduler.RunOnce(ctx, now)
	if err != nil {
		slog.ErrorContext(ctx, "reminder sweep failed", "error", err)
		return
	}
	if created > 0 {
		slog.InfoContext(ctx, "reminder sweep complete", "notifications", created)
	}
}

// LastTick returns when the last sweep finished. Zero until the first
// sweep completes. Used by the readiness endpoint.
func (w *Worker) LastTick() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastTick
}

// Healthy reports whether a sweep completed within two intervals, the
// readiness criterion for the worker binary.
func (w *Worker) Healthy() bool {
	last := w.LastTick()
	if last.IsZero() {
		return false
	}
	return w.now().Sub(last) < 2*w.interval
}
