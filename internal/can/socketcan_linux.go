//go:build linux

package can

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Accept selects which frames the kernel lets into a queue.
type Accept int

const (
	AcceptAll Accept = iota
	AcceptExtended
	AcceptStandard
)

func (a Accept) String() string {
	switch a {
	case AcceptExtended:
		return "extended"
	case AcceptStandard:
		return "standard"
	default:
		return "all"
	}
}

// Upper bound on how long Receive blocks before reporting ErrNoFrame.
const socketReadTimeout = 100 * time.Millisecond

// SocketCANQueue is one receive FIFO backed by a raw CAN socket. Two queues
// on the same interface with AcceptExtended / AcceptStandard stand in for
// the two hardware FIFOs.
type SocketCANQueue struct {
	socket int
	ifname string
	accept Accept
	buf    [wireFrameSize]byte
}

func OpenSocketCAN(ifname string, accept Accept) (*SocketCANQueue, error) {
	socket, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("failed to create CAN socket: %w", err)
	}

	ifreq, err := unix.NewIfreq(ifname)
	if err != nil {
		unix.Close(socket)
		return nil, fmt.Errorf("failed to create ifreq: %w", err)
	}
	if err := unix.IoctlIfreq(socket, unix.SIOCGIFINDEX, ifreq); err != nil {
		unix.Close(socket)
		return nil, fmt.Errorf("failed to get interface index of %s: %w", ifname, err)
	}

	if filters := acceptFilters(accept); filters != nil {
		if err := unix.SetsockoptCanRawFilter(socket, unix.SOL_CAN_RAW, unix.CAN_RAW_FILTER, filters); err != nil {
			unix.Close(socket)
			return nil, fmt.Errorf("failed to set %s filter: %w", accept, err)
		}
	}

	tv := unix.NsecToTimeval(socketReadTimeout.Nanoseconds())
	if err := unix.SetsockoptTimeval(socket, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		unix.Close(socket)
		return nil, fmt.Errorf("failed to set receive timeout: %w", err)
	}

	if err := unix.Bind(socket, &unix.SockaddrCAN{Ifindex: int(ifreq.Uint32())}); err != nil {
		unix.Close(socket)
		return nil, fmt.Errorf("failed to bind socket to %s: %w", ifname, err)
	}

	return &SocketCANQueue{
		socket: socket,
		ifname: ifname,
		accept: accept,
	}, nil
}

func acceptFilters(accept Accept) []unix.CanFilter {
	switch accept {
	case AcceptExtended:
		return []unix.CanFilter{{Id: unix.CAN_EFF_FLAG, Mask: unix.CAN_EFF_FLAG}}
	case AcceptStandard:
		return []unix.CanFilter{{Id: 0, Mask: unix.CAN_EFF_FLAG}}
	default:
		return nil
	}
}

// Receive drains one frame. A read timeout or interrupted read is reported
// as ErrNoFrame.
func (q *SocketCANQueue) Receive(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	n, err := unix.Read(q.socket, q.buf[:])
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR) {
			return Frame{}, ErrNoFrame
		}
		return Frame{}, fmt.Errorf("read error on %s: %w", q.ifname, err)
	}
	return decodeWire(q.buf[:n])
}

func (q *SocketCANQueue) String() string {
	return fmt.Sprintf("socketcan:%s/%s", q.ifname, q.accept)
}

func (q *SocketCANQueue) Close() error {
	return unix.Close(q.socket)
}
