package can

import (
	"encoding/binary"
	"fmt"
)

// struct can_frame layout as delivered by a raw CAN socket.
const (
	wireFrameSize = 16

	wireEFFFlag = 0x80000000
	wireRTRFlag = 0x40000000
	wireERRFlag = 0x20000000
)

// decodeWire converts a raw socket read into a Frame. Error frames report
// ErrNoFrame so the receive path drops them like an empty FIFO.
func decodeWire(buf []byte) (Frame, error) {
	if len(buf) < wireFrameSize {
		return Frame{}, fmt.Errorf("incomplete CAN frame received: %d bytes", len(buf))
	}

	raw := binary.LittleEndian.Uint32(buf[0:4])
	if raw&wireERRFlag != 0 {
		return Frame{}, ErrNoFrame
	}

	dlc := buf[4]
	if dlc > MaxDataLength {
		dlc = MaxDataLength
	}

	f := NewFrame(raw, raw&wireEFFFlag != 0, buf[8:8+dlc])
	f.Remote = raw&wireRTRFlag != 0
	return f, nil
}

// encodeWire is used by tests and loopback tooling.
func encodeWire(f Frame) []byte {
	buf := make([]byte, wireFrameSize)
	id := f.ID
	if f.Extended {
		id |= wireEFFFlag
	}
	if f.Remote {
		id |= wireRTRFlag
	}
	binary.LittleEndian.PutUint32(buf[0:4], id)
	buf[4] = f.Len
	copy(buf[8:], f.Payload())
	return buf
}
