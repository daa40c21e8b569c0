package core

import (
	"context"
	"time"

	"body-control/internal/can"
	"body-control/internal/lights"
	"body-control/internal/logger"
	"body-control/internal/messages"
	"body-control/internal/pgn"
	"body-control/internal/watchdog"

	"go.uber.org/atomic"
)

// Route is the outcome of dispatching one frame.
type Route int

const (
	RouteStandard Route = iota
	RouteUnknown
	RouteRejected
	RouteLighting
	RouteHorn
	RouteRemote
	routeCount
)

func (r Route) String() string {
	switch r {
	case RouteStandard:
		return "standard"
	case RouteUnknown:
		return "unknown"
	case RouteRejected:
		return "rejected"
	case RouteLighting:
		return "lighting"
	case RouteHorn:
		return "horn"
	case RouteRemote:
		return "remote"
	default:
		return "invalid"
	}
}

type registryEntry struct {
	pgn    pgn.Number
	route  Route
	handle func(payload []byte) error
}

// The dispatcher checks in with the watchdog at least this often while the
// inbox is empty.
const idleBeatInterval = 100 * time.Millisecond

// Dispatcher routes received frames to the message handlers. It is the only
// writer of the shared lighting state.
type Dispatcher struct {
	lights   *lights.Shared
	logger   *logger.Logger
	registry []registryEntry
	onHorn   func(messages.HornCommand)
	counts   [routeCount]atomic.Uint64

	heartbeat *watchdog.Heartbeat
}

func NewDispatcher(shared *lights.Shared, l *logger.Logger) *Dispatcher {
	d := &Dispatcher{
		lights: shared,
		logger: l.WithTag("dispatch"),
	}
	d.registry = []registryEntry{
		{pgn.HornMessage(), RouteHorn, d.handleHorn},
		{pgn.LightingState(), RouteLighting, d.handleLighting},
	}
	return d
}

// OnHorn registers an observer for decoded horn commands. Must be called
// before Run.
func (d *Dispatcher) OnHorn(fn func(messages.HornCommand)) {
	d.onHorn = fn
}

// SetHeartbeat must be called before Run.
func (d *Dispatcher) SetHeartbeat(h *watchdog.Heartbeat) {
	d.heartbeat = h
}

// Run dispatches frames in arrival order until ctx is done.
func (d *Dispatcher) Run(ctx context.Context, frames <-chan can.Frame) error {
	idle := time.NewTicker(idleBeatInterval)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f := <-frames:
			d.Dispatch(f)
			d.heartbeat.Beat()
		case <-idle.C:
			d.heartbeat.Beat()
		}
	}
}

// Dispatch handles a single frame. It never blocks and never fails; frames
// it cannot use are only logged.
func (d *Dispatcher) Dispatch(f can.Frame) Route {
	route := d.route(f)
	d.counts[route].Inc()
	return route
}

func (d *Dispatcher) route(f can.Frame) Route {
	if !f.Extended {
		d.logger.Debugf("Received standard frame %03X [% X]", f.ID, f.Payload())
		return RouteStandard
	}
	// a remote request carries no payload, whatever its DLC says
	if f.Remote {
		d.logger.Debugf("Received remote request %08X", f.ID)
		return RouteRemote
	}

	number := pgn.FromRawID(f.ID)
	for _, entry := range d.registry {
		if entry.pgn != number {
			continue
		}
		if err := entry.handle(f.Payload()); err != nil {
			d.logger.Warnf("Rejected %s frame %08X: %v", entry.route, f.ID, err)
			return RouteRejected
		}
		return entry.route
	}

	d.logger.Debugf("Received unknown message %v from %08X [% X]", number, f.ID, f.Payload())
	return RouteUnknown
}

func (d *Dispatcher) handleLighting(payload []byte) error {
	msg, err := messages.ParseLighting(payload)
	if err != nil {
		return err
	}
	d.lights.Store(lights.State{
		LeftIndicator:  msg.LeftIndicator,
		RightIndicator: msg.RightIndicator,
		DayLight:       msg.DayLight,
	})
	d.logger.Debugf("Lighting: left=%d right=%d day=%d", msg.LeftIndicator, msg.RightIndicator, msg.DayLight)
	return nil
}

// The horn output is not driven from the bus yet; commands are observed only.
func (d *Dispatcher) handleHorn(payload []byte) error {
	cmd, err := messages.ParseHorn(payload)
	if err != nil {
		return err
	}
	d.logger.Infof("Horn: %s", cmd.State)
	if d.onHorn != nil {
		d.onHorn(cmd)
	}
	return nil
}

// Count returns how many frames took route r.
func (d *Dispatcher) Count(r Route) uint64 {
	if r < 0 || r >= routeCount {
		return 0
	}
	return d.counts[r].Load()
}
