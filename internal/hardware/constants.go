package hardware

// Output channel names.
const (
	OutLeftIndicator  = "left_indicator"
	OutRightIndicator = "right_indicator"
	OutDayLight       = "day_light"
	OutStatusOK       = "status_ok"

	// Reserved: the horn message is decoded but not yet wired to this line.
	OutHorn = "horn"
)

const consumerName = "body-control"

// LineMapping locates an output on a GPIO character device.
type LineMapping struct {
	Chip int `yaml:"chip"`
	Line int `yaml:"line"`
}

// DefaultDoMappings is the body-control board wiring.
var DefaultDoMappings = map[string]LineMapping{
	OutLeftIndicator:  {0, 4},
	OutRightIndicator: {0, 5},
	OutDayLight:       {1, 3},
	OutStatusOK:       {1, 0},
	OutHorn:           {0, 15},
}
