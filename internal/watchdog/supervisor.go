package watchdog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"body-control/internal/logger"

	"go.uber.org/atomic"
)

var (
	ErrPeriodTooLong = errors.New("feed period must be shorter than the watchdog timeout")
	ErrNotStarted    = errors.New("watchdog not started")
	ErrExpired       = errors.New("watchdog expired")
)

// Watchdog is a hardware reset timer. Once started, the gap between two
// feeds must stay below the timeout or the node resets.
type Watchdog interface {
	Start(timeout time.Duration) error
	Feed() error
}

// TimeoutReporter is implemented by watchdogs whose applied timeout may
// differ from the requested one.
type TimeoutReporter interface {
	AppliedTimeout() time.Duration
}

// Heartbeat is a liveness counter for one supervised task. A nil Heartbeat
// is valid and ignores beats.
type Heartbeat struct {
	name  string
	beats atomic.Uint64
}

func (h *Heartbeat) Beat() {
	if h == nil {
		return
	}
	h.beats.Inc()
}

func (h *Heartbeat) Name() string {
	return h.name
}

// Supervisor arms a watchdog and keeps it fed at a fixed period. Once tasks
// are registered, a feed only happens after every one of them has beaten
// since the previous feed, so a hung task ends in a reset.
type Supervisor struct {
	wd      Watchdog
	timeout time.Duration
	period  time.Duration
	logger  *logger.Logger
	feeds   atomic.Uint64
	skipped atomic.Uint64
	armed   atomic.Bool

	mu     sync.Mutex
	hearts []*Heartbeat
	seen   []uint64
}

func NewSupervisor(wd Watchdog, timeout, period time.Duration, l *logger.Logger) (*Supervisor, error) {
	if period <= 0 || timeout <= 0 || period >= timeout {
		return nil, fmt.Errorf("period %v, timeout %v: %w", period, timeout, ErrPeriodTooLong)
	}
	return &Supervisor{
		wd:      wd,
		timeout: timeout,
		period:  period,
		logger:  l,
	}, nil
}

// Register adds a task that must beat between feeds.
func (s *Supervisor) Register(name string) *Heartbeat {
	h := &Heartbeat{name: name}
	s.mu.Lock()
	s.hearts = append(s.hearts, h)
	s.seen = append(s.seen, 0)
	s.mu.Unlock()
	return h
}

// Arm starts the hardware timer. Call it before anything that may block.
// Arming an armed supervisor does nothing.
func (s *Supervisor) Arm() error {
	if s.armed.Load() {
		return nil
	}
	if err := s.wd.Start(s.timeout); err != nil {
		return fmt.Errorf("failed to start watchdog: %w", err)
	}
	if r, ok := s.wd.(TimeoutReporter); ok {
		if applied := r.AppliedTimeout(); s.period >= applied {
			return fmt.Errorf("period %v, applied timeout %v: %w", s.period, applied, ErrPeriodTooLong)
		}
	}
	s.armed.Store(true)
	s.logger.Infof("Watchdog armed: timeout=%v period=%v", s.timeout, s.period)
	return nil
}

func (s *Supervisor) Armed() bool {
	return s.armed.Load()
}

// Run feeds the watchdog every period until ctx is done. The first feed
// happens immediately and does not wait for heartbeats.
func (s *Supervisor) Run(ctx context.Context) error {
	if !s.armed.Load() {
		return ErrNotStarted
	}

	s.feed()

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debugf("Supervisor stopped after %d feeds", s.feeds.Load())
			return ctx.Err()
		case <-ticker.C:
			if stalled := s.stalled(); stalled != "" {
				s.skipped.Inc()
				s.logger.Warnf("Withholding feed: task %s has not checked in", stalled)
				continue
			}
			s.feed()
		}
	}
}

// stalled returns the first task without a beat since the last feed.
func (s *Supervisor) stalled() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, h := range s.hearts {
		if h.beats.Load() == s.seen[i] {
			return h.name
		}
	}
	return ""
}

func (s *Supervisor) feed() {
	s.mu.Lock()
	for i, h := range s.hearts {
		s.seen[i] = h.beats.Load()
	}
	s.mu.Unlock()

	if err := s.wd.Feed(); err != nil {
		// Nothing to recover here; a persistent failure ends in a reset.
		s.logger.Errorf("Failed to feed watchdog: %v", err)
		return
	}
	s.feeds.Inc()
}

// Feeds returns the number of successful feeds.
func (s *Supervisor) Feeds() uint64 {
	return s.feeds.Load()
}

// Skipped returns how many ticks withheld the feed.
func (s *Supervisor) Skipped() uint64 {
	return s.skipped.Load()
}

func (s *Supervisor) Period() time.Duration {
	return s.period
}

func (s *Supervisor) Timeout() time.Duration {
	return s.timeout
}
