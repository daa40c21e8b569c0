// File: internal/core/system.go
package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"body-control/internal/can"
	"body-control/internal/fsm"
	"body-control/internal/hardware"
	"body-control/internal/lights"
	"body-control/internal/logger"
	"body-control/internal/messages"
	"body-control/internal/types"
	"body-control/internal/watchdog"

	"github.com/librescoot/librefsm"
)

// Ensure BodyControlSystem implements fsm.Actions
var _ fsm.Actions = (*BodyControlSystem)(nil)

type Options struct {
	TickPeriod time.Duration
	InboxSize  int
	// Clock defaults to a monotonic clock started by NewBodyControlSystem.
	Clock Clock
}

// BodyControlSystem owns the shared lighting state and runs the receive,
// dispatch, actuation and watchdog tasks.
type BodyControlSystem struct {
	logger     *logger.Logger
	io         HardwareIO
	queues     [2]can.RxQueue
	supervisor *watchdog.Supervisor
	clock      Clock
	tickPeriod time.Duration

	lights     *lights.Shared
	inbox      *Inbox
	receivers  [2]*Receiver
	dispatcher *Dispatcher
	actuators  []*Actuator

	machine *librefsm.Machine
	mu      sync.RWMutex
	state   types.SystemState
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewBodyControlSystem(io HardwareIO, queues [2]can.RxQueue, supervisor *watchdog.Supervisor, opts Options, l *logger.Logger) *BodyControlSystem {
	clock := opts.Clock
	if clock == nil {
		clock = NewMonotonicClock()
	}

	s := &BodyControlSystem{
		logger:     l.WithTag("system"),
		io:         io,
		queues:     queues,
		supervisor: supervisor,
		clock:      clock,
		tickPeriod: opts.TickPeriod,
		lights:     lights.NewShared(),
		inbox:      NewInbox(opts.InboxSize),
		state:      types.StateInit,
	}

	s.receivers = [2]*Receiver{
		NewReceiver("rx0", queues[0], s.inbox, l),
		NewReceiver("rx1", queues[1], s.inbox, l),
	}
	s.dispatcher = NewDispatcher(s.lights, l)
	s.dispatcher.OnHorn(s.observeHorn)
	s.actuators = []*Actuator{
		NewLeftIndicator(io, s.lights, clock, opts.TickPeriod, l),
		NewRightIndicator(io, s.lights, clock, opts.TickPeriod, l),
		NewDayLight(io, s.lights, clock, opts.TickPeriod, l),
	}

	// every task must check in or the watchdog is left to expire
	for _, r := range s.receivers {
		r.SetHeartbeat(supervisor.Register("receiver " + r.name))
	}
	s.dispatcher.SetHeartbeat(supervisor.Register("dispatcher"))
	for _, a := range s.actuators {
		a.SetHeartbeat(supervisor.Register("actuator " + a.Output()))
	}
	return s
}

// Start brings the node from init to running. Tasks run until ctx is
// cancelled or Shutdown is called. The supervisor is normally armed by the
// caller before any receive queue is opened; Start arms it if that has not
// happened yet.
func (s *BodyControlSystem) Start(ctx context.Context) error {
	s.logger.Infof("Starting body control system")

	if err := s.supervisor.Arm(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)

	if err := s.initFSM(ctx); err != nil {
		cancel()
		return fmt.Errorf("failed to start state machine: %w", err)
	}

	if err := s.io.Initialize(); err != nil {
		cancel()
		return fmt.Errorf("failed to initialize hardware: %w", err)
	}

	s.mu.Lock()
	s.cancel = cancel
	s.started = true
	s.mu.Unlock()

	for _, r := range s.receivers {
		s.spawn(ctx, "receiver "+r.name, r.Run)
	}
	s.spawn(ctx, "dispatcher", func(ctx context.Context) error {
		return s.dispatcher.Run(ctx, s.inbox.Frames())
	})
	for _, a := range s.actuators {
		s.spawn(ctx, "actuator "+a.Output(), a.Run)
	}
	s.spawn(ctx, "watchdog supervisor", s.supervisor.Run)

	if err := s.machine.SendSync(librefsm.Event{ID: fsm.EvTasksScheduled}); err != nil {
		return fmt.Errorf("failed to enter running state: %w", err)
	}

	s.logger.Infof("System started successfully")
	return nil
}

func (s *BodyControlSystem) spawn(ctx context.Context, name string, task func(context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := task(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Errorf("Task %s exited: %v", name, err)
		}
	}()
}

// initFSM initializes and starts the librefsm machine
func (s *BodyControlSystem) initFSM(ctx context.Context) error {
	machine, err := fsm.NewDefinition(s).Build()
	if err != nil {
		return err
	}
	s.machine = machine

	s.machine.OnStateChange(func(from, to librefsm.StateID) {
		s.mu.Lock()
		s.state = types.SystemState(to)
		s.mu.Unlock()
		s.logger.Infof("State transition: %s -> %s", from, to)
	})

	return s.machine.Start(ctx)
}

func (s *BodyControlSystem) EnterInit(c *librefsm.Context) error {
	s.logger.Debugf("Entering init")
	return nil
}

func (s *BodyControlSystem) EnterRunning(c *librefsm.Context) error {
	s.mu.Lock()
	s.state = types.StateRunning
	s.mu.Unlock()

	// status_ok is optional wiring; a missing line is not fatal
	if err := s.io.WriteDigitalOutput(hardware.OutStatusOK, true); err != nil {
		s.logger.Warnf("Failed to set status output: %v", err)
	}
	return nil
}

func (s *BodyControlSystem) observeHorn(cmd messages.HornCommand) {
	s.logger.Debugf("Horn command observed: active=%v", cmd.Active())
}

func (s *BodyControlSystem) State() types.SystemState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *BodyControlSystem) Lights() *lights.Shared {
	return s.lights
}

func (s *BodyControlSystem) Dispatcher() *Dispatcher {
	return s.dispatcher
}

func (s *BodyControlSystem) Inbox() *Inbox {
	return s.inbox
}

// Shutdown stops all tasks and releases the hardware. It does not disarm
// the watchdog.
func (s *BodyControlSystem) Shutdown() {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	s.started = false
	s.mu.Unlock()

	if !started {
		return
	}

	cancel()
	s.wg.Wait()

	for i, q := range s.queues {
		if err := q.Close(); err != nil {
			s.logger.Warnf("Failed to close rx%d: %v", i, err)
		}
	}
	s.io.Cleanup()
	s.logger.Infof("All tasks stopped")
}
