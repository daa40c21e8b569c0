package hardware

import (
	"fmt"
	"sync"

	"body-control/internal/logger"
)

// LogHardwareIO records output levels in memory and logs every change.
// It backs the "log" output backend used on development hosts.
type LogHardwareIO struct {
	logger  *logger.Logger
	mu      sync.Mutex
	outputs map[string]bool
}

func NewLogHardwareIO(names []string, l *logger.Logger) *LogHardwareIO {
	io := &LogHardwareIO{
		logger:  l,
		outputs: make(map[string]bool, len(names)),
	}
	for _, name := range names {
		io.outputs[name] = false
	}
	return io
}

func (io *LogHardwareIO) Initialize() error {
	io.logger.Infof("Using log-only outputs (%d channels)", len(io.outputs))
	return nil
}

func (io *LogHardwareIO) WriteDigitalOutput(channel string, value bool) error {
	io.mu.Lock()
	defer io.mu.Unlock()

	if _, ok := io.outputs[channel]; !ok {
		return fmt.Errorf("unknown digital output channel: %s", channel)
	}
	io.outputs[channel] = value
	io.logger.Infof("DO %s=%v", channel, value)
	return nil
}

// Output returns the last level written to channel.
func (io *LogHardwareIO) Output(channel string) bool {
	io.mu.Lock()
	defer io.mu.Unlock()
	return io.outputs[channel]
}

func (io *LogHardwareIO) Cleanup() {}
