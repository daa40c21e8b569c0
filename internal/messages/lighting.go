package messages

import (
	"errors"
	"fmt"
)

var ErrShortPayload = errors.New("payload too short")

// LightingLength is the number of bytes a lighting payload must carry.
const LightingLength = 3

// Lighting is the decoded lighting state message. Each byte is an
// activation level: 0 is off, anything else is on.
//
//	byte 0  left indicator
//	byte 1  right indicator
//	byte 2  day light
//
// Bytes past LightingLength are reserved and ignored.
type Lighting struct {
	LeftIndicator  uint8
	RightIndicator uint8
	DayLight       uint8
}

func ParseLighting(payload []byte) (Lighting, error) {
	if len(payload) < LightingLength {
		return Lighting{}, fmt.Errorf("lighting: got %d bytes, need %d: %w", len(payload), LightingLength, ErrShortPayload)
	}
	return Lighting{
		LeftIndicator:  payload[0],
		RightIndicator: payload[1],
		DayLight:       payload[2],
	}, nil
}
