package can

import (
	"context"
	"errors"
	"fmt"
)

const (
	MaxDataLength = 8

	StandardIDMask = 0x7FF
	ExtendedIDMask = 0x1FFFFFFF
)

// ErrNoFrame is returned when a receive attempt finds the queue empty.
// Callers drop the attempt silently.
var ErrNoFrame = errors.New("no frame pending")

// Frame is a received classic CAN frame.
type Frame struct {
	ID       uint32
	Extended bool
	Remote   bool
	Len      uint8
	Data     [MaxDataLength]byte
}

// NewFrame builds a frame, truncating data to eight bytes.
func NewFrame(id uint32, extended bool, data []byte) Frame {
	f := Frame{Extended: extended}
	if extended {
		f.ID = id & ExtendedIDMask
	} else {
		f.ID = id & StandardIDMask
	}
	f.Len = uint8(copy(f.Data[:], data))
	return f
}

func (f Frame) Payload() []byte {
	n := f.Len
	if n > MaxDataLength {
		n = MaxDataLength
	}
	return f.Data[:n]
}

func (f Frame) String() string {
	if f.Extended {
		return fmt.Sprintf("%08X [%d] % X", f.ID, f.Len, f.Payload())
	}
	return fmt.Sprintf("%03X [%d] % X", f.ID, f.Len, f.Payload())
}

// RxQueue is one hardware receive FIFO. Receive drains at most one frame
// and returns ErrNoFrame when nothing was pending.
type RxQueue interface {
	Receive(ctx context.Context) (Frame, error)
	Close() error
}
