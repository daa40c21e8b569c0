package watchdog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"body-control/internal/logger"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Unix(0, 0)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestSimulatedFeedBeforeStart(t *testing.T) {
	wd := NewSimulated(nil)
	if err := wd.Feed(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Expected ErrNotStarted, got %v", err)
	}
	if wd.Expired() {
		t.Error("Unstarted watchdog must not expire")
	}
}

func TestSimulatedFedInTimeNeverResets(t *testing.T) {
	clock := newManualClock()
	wd := NewSimulated(clock.Now)
	const timeout = 100 * time.Millisecond
	const period = 80 * time.Millisecond

	if err := wd.Start(timeout); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	for i := 0; i < 100000; i++ {
		clock.Advance(period)
		if err := wd.Feed(); err != nil {
			t.Fatalf("Feed %d failed: %v", i, err)
		}
	}
	if wd.Expired() {
		t.Error("Watchdog expired despite regular feeding")
	}
}

func TestSimulatedJustUnderTimeout(t *testing.T) {
	clock := newManualClock()
	wd := NewSimulated(clock.Now)
	_ = wd.Start(100 * time.Millisecond)

	clock.Advance(100*time.Millisecond - time.Nanosecond)
	if wd.Expired() {
		t.Fatal("Expired before timeout")
	}
	if err := wd.Feed(); err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
}

func TestSimulatedWithheldFeedResets(t *testing.T) {
	clock := newManualClock()
	wd := NewSimulated(clock.Now)
	_ = wd.Start(100 * time.Millisecond)

	clock.Advance(50 * time.Millisecond)
	_ = wd.Feed()
	clock.Advance(100 * time.Millisecond)

	if !wd.Expired() {
		t.Fatal("Expected watchdog to expire after withheld feed")
	}
	if err := wd.Feed(); !errors.Is(err, ErrExpired) {
		t.Errorf("Expected ErrExpired on late feed, got %v", err)
	}

	// a late feed does not undo the reset
	if !wd.Expired() {
		t.Error("Expiry must latch")
	}
}

func TestSimulatedMonitor(t *testing.T) {
	clock := newManualClock()
	wd := NewSimulated(clock.Now)
	_ = wd.Start(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	reset := make(chan struct{})
	go wd.Monitor(ctx, time.Millisecond, func() { close(reset) })

	clock.Advance(150 * time.Millisecond)

	select {
	case <-reset:
	case <-ctx.Done():
		t.Fatal("Monitor did not report the reset")
	}
}

func TestNewSupervisorRejectsLongPeriod(t *testing.T) {
	wd := NewSimulated(nil)
	for _, period := range []time.Duration{0, 100 * time.Millisecond, 150 * time.Millisecond} {
		if _, err := NewSupervisor(wd, 100*time.Millisecond, period, logger.Discard()); !errors.Is(err, ErrPeriodTooLong) {
			t.Errorf("period %v: expected ErrPeriodTooLong, got %v", period, err)
		}
	}
}

func TestSupervisorRunRequiresArm(t *testing.T) {
	s, err := NewSupervisor(NewSimulated(nil), 100*time.Millisecond, 80*time.Millisecond, logger.Discard())
	if err != nil {
		t.Fatalf("NewSupervisor failed: %v", err)
	}
	if err := s.Run(context.Background()); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Expected ErrNotStarted, got %v", err)
	}
}

// The supervisor runs on the real clock, so the timeout is generous compared
// to the feed period to absorb scheduler jitter.
func TestSupervisorKeepsWatchdogAlive(t *testing.T) {
	wd := NewSimulated(nil)
	s, err := NewSupervisor(wd, 500*time.Millisecond, 10*time.Millisecond, logger.Discard())
	if err != nil {
		t.Fatalf("NewSupervisor failed: %v", err)
	}
	if err := s.Arm(); err != nil {
		t.Fatalf("Arm failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(700 * time.Millisecond)
	if wd.Expired() {
		t.Fatal("Watchdog expired while supervisor was running")
	}
	if s.Feeds() < 10 {
		t.Errorf("Expected regular feeds, got %d", s.Feeds())
	}

	// stop feeding: the watchdog must now run out
	cancel()
	<-done
	time.Sleep(600 * time.Millisecond)
	if !wd.Expired() {
		t.Error("Expected watchdog to expire once feeding stopped")
	}
}

type failingWatchdog struct{}

func (failingWatchdog) Start(time.Duration) error { return errors.New("no device") }
func (failingWatchdog) Feed() error               { return errors.New("no device") }

func TestSupervisorArmError(t *testing.T) {
	s, _ := NewSupervisor(failingWatchdog{}, time.Second, 100*time.Millisecond, logger.Discard())
	if err := s.Arm(); err == nil {
		t.Error("Expected Arm to fail")
	}
}

type countingWatchdog struct {
	mu      sync.Mutex
	starts  int
	applied time.Duration
}

func (w *countingWatchdog) Start(timeout time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.starts++
	if w.applied == 0 {
		w.applied = timeout
	}
	return nil
}

func (w *countingWatchdog) Feed() error { return nil }

func (w *countingWatchdog) AppliedTimeout() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.applied
}

func TestSupervisorArmOnce(t *testing.T) {
	wd := &countingWatchdog{}
	s, err := NewSupervisor(wd, time.Second, 100*time.Millisecond, logger.Discard())
	if err != nil {
		t.Fatalf("NewSupervisor failed: %v", err)
	}
	if s.Armed() {
		t.Fatal("Supervisor armed before Arm")
	}
	for i := 0; i < 3; i++ {
		if err := s.Arm(); err != nil {
			t.Fatalf("Arm %d failed: %v", i, err)
		}
	}
	if wd.starts != 1 {
		t.Errorf("Expected the watchdog to be started once, got %d", wd.starts)
	}
	if !s.Armed() {
		t.Error("Expected supervisor to report armed")
	}
}

func TestSupervisorArmChecksAppliedTimeout(t *testing.T) {
	// driver clamps 2s down to 1s, below the 1.6s feed period
	wd := &countingWatchdog{applied: time.Second}
	s, err := NewSupervisor(wd, 2*time.Second, 1600*time.Millisecond, logger.Discard())
	if err != nil {
		t.Fatalf("NewSupervisor failed: %v", err)
	}
	if err := s.Arm(); !errors.Is(err, ErrPeriodTooLong) {
		t.Errorf("Expected ErrPeriodTooLong, got %v", err)
	}
	if s.Armed() {
		t.Error("Supervisor must not count as armed after a rejected timeout")
	}
}

func TestSimulatedReportsAppliedTimeout(t *testing.T) {
	wd := NewSimulated(nil)
	_ = wd.Start(250 * time.Millisecond)
	if got := wd.AppliedTimeout(); got != 250*time.Millisecond {
		t.Errorf("Expected 250ms, got %v", got)
	}
}

func TestNilHeartbeatIgnoresBeats(t *testing.T) {
	var h *Heartbeat
	h.Beat()
}

func TestSupervisorWithholdsFeedForStalledTask(t *testing.T) {
	wd := NewSimulated(nil)
	s, err := NewSupervisor(wd, 200*time.Millisecond, 20*time.Millisecond, logger.Discard())
	if err != nil {
		t.Fatalf("NewSupervisor failed: %v", err)
	}
	alive := s.Register("alive")
	stuck := s.Register("stuck")
	if err := s.Arm(); err != nil {
		t.Fatalf("Arm failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	beating := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-beating:
				return
			case <-ticker.C:
				alive.Beat()
				stuck.Beat()
			}
		}
	}()
	go s.Run(ctx)

	time.Sleep(400 * time.Millisecond)
	if wd.Expired() {
		t.Fatal("Watchdog expired while every task was beating")
	}

	// "stuck" stops checking in; "alive" keeps going
	close(beating)
	go func() {
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				alive.Beat()
			}
		}
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !wd.Expired() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if !wd.Expired() {
		t.Fatalf("Expected reset with a stalled task (feeds=%d skipped=%d)", s.Feeds(), s.Skipped())
	}
	if s.Skipped() == 0 {
		t.Error("Expected withheld feeds to be counted")
	}
}
