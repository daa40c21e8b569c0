package core

import (
	"context"
	"time"

	"body-control/internal/hardware"
	"body-control/internal/lights"
	"body-control/internal/logger"
	"body-control/internal/watchdog"
)

// Indicator blink cycle: off for phase 0..500 ms, on for 501..999 ms.
const (
	blinkCycleMs = 1000
	blinkOnAfter = 500
)

// IndicatorOn reports whether an indicator with the given activation level
// is lit at monotonic time now.
func IndicatorOn(now time.Duration, level uint8) bool {
	phase := now.Milliseconds() % blinkCycleMs
	return phase > blinkOnAfter && level > 0
}

// DayLightOn reports whether the day light is lit. It does not blink.
func DayLightOn(level uint8) bool {
	return level > 0
}

type evalFunc func(now time.Duration, st lights.State) bool

// Actuator is one periodic light task. Each step copies the shared state,
// releases the lock and only then touches the output.
type Actuator struct {
	output string
	io     HardwareIO
	shared *lights.Shared
	clock  Clock
	period time.Duration
	eval   evalFunc
	logger *logger.Logger

	written bool
	last    bool

	heartbeat *watchdog.Heartbeat
}

func newActuator(output string, eval evalFunc, io HardwareIO, shared *lights.Shared, clock Clock, period time.Duration, l *logger.Logger) *Actuator {
	return &Actuator{
		output: output,
		io:     io,
		shared: shared,
		clock:  clock,
		period: period,
		eval:   eval,
		logger: l.WithTag(output),
	}
}

func NewLeftIndicator(io HardwareIO, shared *lights.Shared, clock Clock, period time.Duration, l *logger.Logger) *Actuator {
	return newActuator(hardware.OutLeftIndicator, func(now time.Duration, st lights.State) bool {
		return IndicatorOn(now, st.LeftIndicator)
	}, io, shared, clock, period, l)
}

func NewRightIndicator(io HardwareIO, shared *lights.Shared, clock Clock, period time.Duration, l *logger.Logger) *Actuator {
	return newActuator(hardware.OutRightIndicator, func(now time.Duration, st lights.State) bool {
		return IndicatorOn(now, st.RightIndicator)
	}, io, shared, clock, period, l)
}

func NewDayLight(io HardwareIO, shared *lights.Shared, clock Clock, period time.Duration, l *logger.Logger) *Actuator {
	return newActuator(hardware.OutDayLight, func(_ time.Duration, st lights.State) bool {
		return DayLightOn(st.DayLight)
	}, io, shared, clock, period, l)
}

// Step evaluates the output once and writes it if it changed. A failed
// write is retried on the next step.
func (a *Actuator) Step() bool {
	st := a.shared.Load()
	on := a.eval(a.clock.Now(), st)

	if a.written && on == a.last {
		return on
	}
	if err := a.io.WriteDigitalOutput(a.output, on); err != nil {
		a.logger.Warnf("Failed to set output: %v", err)
		return on
	}
	a.written = true
	a.last = on
	return on
}

// SetHeartbeat must be called before Run.
func (a *Actuator) SetHeartbeat(h *watchdog.Heartbeat) {
	a.heartbeat = h
}

// Run steps every period until ctx is done. A step that never returns stops
// the heartbeat.
func (a *Actuator) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.period)
	defer ticker.Stop()

	a.Step()
	a.heartbeat.Beat()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.Step()
			a.heartbeat.Beat()
		}
	}
}

func (a *Actuator) Output() string {
	return a.output
}
