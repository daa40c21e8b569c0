package pgn

// Message types this node routes. Producers on the bus must use the same
// values bit for bit.
const (
	// proprietary-B group
	hornMessageValue = 0x0FF10

	// J1939 lighting command group
	lightingStateValue = 0x0FE41
)

// HornMessage is the horn command PGN (0x0FF10).
func HornMessage() Number {
	return FromValue(hornMessageValue)
}

// LightingState is the lighting state PGN (0x0FE41).
func LightingState() Number {
	return FromValue(lightingStateValue)
}
