package watchdog

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// DefaultInterval is how long the daemon must be idle before the liveness
// signal is probed.
const DefaultInterval = time.Second

// Option configures a Watchdog.
type Option func(*Watchdog)

// WithInterval overrides the idle interval. Useful for testing.
func WithInterval(d time.Duration) Option {
	return func(w *Watchdog) { w.interval = d }
}

// Watchdog periodically probes a liveness checker while the daemon is
// idle. Touch marks activity and postpones the next probe.
type Watchdog struct {
	checker      Checker
	interval     time.Duration
	lastActivity atomic.Int64 // unix nanoseconds
}

// New creates a Watchdog probing checker after each idle interval.
func New(checker Checker, opts ...Option) *Watchdog {
	w := &Watchdog{checker: checker, interval: DefaultInterval}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Touch records activity. Safe to call concurrently with Run.
func (w *Watchdog) Touch() {
	w.lastActivity.Store(time.Now().UnixNano())
}

// Run probes the checker once per interval of idleness until ctx is
// canceled (returns nil) or a probe fails (returns the failure). The
// caller treats a non-nil return as fatal.
func (w *Watchdog) Run(ctx context.Context) error {
	w.Touch()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			idle := time.Since(time.Unix(0, w.lastActivity.Load()))
			if idle < w.interval {
				continue
			}
			if err := w.checker.Check(); err != nil {
				return fmt.Errorf("liveness check failed: %w", err)
			}
		}
	}
}
