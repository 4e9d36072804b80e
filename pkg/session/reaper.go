package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultReapInterval is the sweep interval when the config leaves it
// unset.
const DefaultReapInterval = time.Minute

// Reaper is a backstop sweep that destroys sessions past their expiry in
// case a per-session timer was lost (process suspend, clock skew). It
// relies on Destroy's idempotency, so overlap with timer-driven
// destruction is safe.
type Reaper struct {
	manager  *Manager
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewReaper creates a reaper over the manager. A non-positive interval
// uses DefaultReapInterval.
func NewReaper(manager *Manager, interval time.Duration, logger *slog.Logger) *Reaper {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reaper{
		manager:  manager,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the sweep goroutine. The goroutine exits when the
// parent context is cancelled or Stop is called. Starting an
// already-running reaper is a no-op.
func (r *Reaper) Start(parent context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel
	r.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Sweep()
			}
		}
	}(r.done)
}

// Stop halts the sweep goroutine and waits for it to exit. Safe to call
// on a reaper that was never started, and safe to call twice.
func (r *Reaper) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.cancel = nil
	r.done = nil
}

// Sweep destroys every session whose expiry has passed and returns the
// number destroyed.
func (r *Reaper) Sweep() int {
	now := time.Now()
	destroyed := 0
	for id, sess := range r.manager.store.All() {
		if now.After(sess.ExpiresAt) {
			r.manager.Destroy(id)
			destroyed++
		}
	}
	if destroyed > 0 {
		r.logger.Debug("session: reaper sweep", "destroyed", destroyed)
	}
	return destroyed
}
