package watchdog

import (
	"context"
	"sync"
	"time"
)

// Simulated models a hardware watchdog against an injectable clock. It backs
// the "soft" watchdog backend and the liveness tests.
type Simulated struct {
	mu       sync.Mutex
	now      func() time.Time
	timeout  time.Duration
	lastFeed time.Time
	started  bool
	expired  bool
}

// NewSimulated uses now as its clock; nil means time.Now.
func NewSimulated(now func() time.Time) *Simulated {
	if now == nil {
		now = time.Now
	}
	return &Simulated{now: now}
}

func (w *Simulated) Start(timeout time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.timeout = timeout
	w.lastFeed = w.now()
	w.started = true
	w.expired = false
	return nil
}

func (w *Simulated) AppliedTimeout() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.timeout
}

// Feed restarts the countdown. Once the timeout has elapsed the reset has
// already happened and Feed reports ErrExpired.
func (w *Simulated) Feed() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return ErrNotStarted
	}
	if w.checkLocked() {
		return ErrExpired
	}
	w.lastFeed = w.now()
	return nil
}

// Expired reports whether the gap since the last feed reached the timeout.
// Expiry latches.
func (w *Simulated) Expired() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.checkLocked()
}

func (w *Simulated) checkLocked() bool {
	if !w.started {
		return false
	}
	if !w.expired && w.now().Sub(w.lastFeed) >= w.timeout {
		w.expired = true
	}
	return w.expired
}

// Monitor polls for expiry every interval and calls onReset once when it
// happens.
func (w *Simulated) Monitor(ctx context.Context, interval time.Duration, onReset func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w.Expired() {
				onReset()
				return
			}
		}
	}
}
