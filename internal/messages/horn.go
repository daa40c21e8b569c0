package messages

import "fmt"

// HornLength is the number of bytes a horn payload must carry.
const HornLength = 1

// HornState uses the usual two-bit J1939 switch encoding.
type HornState uint8

const (
	HornOff HornState = iota
	HornOn
	HornError
	HornNotAvailable
)

func (s HornState) String() string {
	switch s {
	case HornOff:
		return "off"
	case HornOn:
		return "on"
	case HornError:
		return "error"
	default:
		return "not-available"
	}
}

// HornCommand is carried in the low two bits of byte 0; the remaining bits
// and bytes are reserved.
type HornCommand struct {
	State HornState
}

func (c HornCommand) Active() bool {
	return c.State == HornOn
}

func ParseHorn(payload []byte) (HornCommand, error) {
	if len(payload) < HornLength {
		return HornCommand{}, fmt.Errorf("horn: got %d bytes, need %d: %w", len(payload), HornLength, ErrShortPayload)
	}
	return HornCommand{State: HornState(payload[0] & 0x03)}, nil
}
