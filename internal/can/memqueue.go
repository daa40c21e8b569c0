package can

import (
	"context"
	"time"
)

// Receive waits at most this long before reporting ErrNoFrame, like the
// socket read timeout.
const memPollTimeout = 100 * time.Millisecond

// MemQueue is an in-process receive FIFO for bench setups and tests. Like a
// hardware FIFO it has a fixed depth and refuses frames when full.
type MemQueue struct {
	frames chan Frame
}

func NewMemQueue(depth int) *MemQueue {
	return &MemQueue{frames: make(chan Frame, depth)}
}

// Push enqueues f and reports false if the FIFO is full.
func (q *MemQueue) Push(f Frame) bool {
	select {
	case q.frames <- f:
		return true
	default:
		return false
	}
}

func (q *MemQueue) Receive(ctx context.Context) (Frame, error) {
	timer := time.NewTimer(memPollTimeout)
	defer timer.Stop()

	select {
	case f := <-q.frames:
		return f, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-timer.C:
		return Frame{}, ErrNoFrame
	}
}

func (q *MemQueue) Len() int {
	return len(q.frames)
}

func (q *MemQueue) Close() error {
	return nil
}
