package core

import (
	"context"
	"errors"
	"time"

	"body-control/internal/can"
	"body-control/internal/logger"
	"body-control/internal/watchdog"

	"go.uber.org/atomic"
)

// Back-off after a receive error that is not an empty FIFO.
const receiveErrorBackoff = 100 * time.Millisecond

// Inbox is the bounded hand-off between the receivers and the dispatcher.
// Pushing never blocks: when the inbox is full the newest frame is dropped,
// the same way the hardware FIFO drops frames it has no room for. A long
// enough burst therefore loses frames; Dropped counts them.
type Inbox struct {
	frames  chan can.Frame
	dropped atomic.Uint64
}

func NewInbox(size int) *Inbox {
	return &Inbox{frames: make(chan can.Frame, size)}
}

func (in *Inbox) TryPush(f can.Frame) bool {
	select {
	case in.frames <- f:
		return true
	default:
		in.dropped.Inc()
		return false
	}
}

func (in *Inbox) Frames() <-chan can.Frame {
	return in.frames
}

func (in *Inbox) Dropped() uint64 {
	return in.dropped.Load()
}

// Receiver drains one receive FIFO into the inbox.
type Receiver struct {
	name     string
	queue    can.RxQueue
	inbox    *Inbox
	logger    *logger.Logger
	received  atomic.Uint64
	heartbeat *watchdog.Heartbeat
}

func NewReceiver(name string, queue can.RxQueue, inbox *Inbox, l *logger.Logger) *Receiver {
	return &Receiver{
		name:   name,
		queue:  queue,
		inbox:  inbox,
		logger: l.WithTag(name),
	}
}

// SetHeartbeat makes every completed poll check in with the watchdog.
// Must be called before Run.
func (r *Receiver) SetHeartbeat(h *watchdog.Heartbeat) {
	r.heartbeat = h
}

// Run polls the queue until ctx is done.
func (r *Receiver) Run(ctx context.Context) error {
	r.logger.Debugf("Receiver started")
	for {
		err := r.poll(ctx)
		r.heartbeat.Beat()
		if err != nil {
			r.logger.Debugf("Receiver stopped after %d frames", r.received.Load())
			return err
		}
	}
}

// poll makes one drain attempt. It only returns an error once ctx is done.
func (r *Receiver) poll(ctx context.Context) error {
	frame, err := r.queue.Receive(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(err, can.ErrNoFrame) {
			return nil
		}
		r.logger.Warnf("Receive failed: %v", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(receiveErrorBackoff):
		}
		return nil
	}

	r.received.Inc()
	if !r.inbox.TryPush(frame) {
		r.logger.Debugf("Inbox full, dropped %v", frame)
	}
	return nil
}

func (r *Receiver) Received() uint64 {
	return r.received.Load()
}
