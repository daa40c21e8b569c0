//go:build linux

package watchdog

import (
	"fmt"
	"sync"
	"time"

	"body-control/internal/logger"

	"golang.org/x/sys/unix"
)

const (
	wdiocSetTimeout = 0xC0045706 // _IOWR('W', 6, int)
	wdiocGetTimeout = 0x80045707 // _IOR('W', 7, int)

	magicClose = 'V'
)

// Device is the Linux watchdog character device. Opening it arms the
// timer; every write counts as a feed.
type Device struct {
	path         string
	disarmOnExit bool
	logger       *logger.Logger

	mu      sync.Mutex
	fd      int
	applied time.Duration
}

func NewDevice(path string, disarmOnExit bool, l *logger.Logger) *Device {
	return &Device{
		path:         path,
		disarmOnExit: disarmOnExit,
		logger:       l,
		fd:           -1,
	}
}

// Start opens the device and programs the timeout. The kernel works in
// whole seconds, so the timeout is rounded up.
func (d *Device) Start(timeout time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fd < 0 {
		fd, err := unix.Open(d.path, unix.O_WRONLY|unix.O_CLOEXEC, 0)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", d.path, err)
		}
		d.fd = fd
	}

	secs := int((timeout + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	if err := unix.IoctlSetPointerInt(d.fd, wdiocSetTimeout, secs); err != nil {
		return fmt.Errorf("failed to set watchdog timeout to %ds: %w", secs, err)
	}

	// drivers may clamp or round the value further
	got, err := unix.IoctlGetInt(d.fd, wdiocGetTimeout)
	if err != nil {
		return fmt.Errorf("failed to read back watchdog timeout: %w", err)
	}
	d.applied = time.Duration(got) * time.Second
	if d.applied != timeout {
		d.logger.Infof("Watchdog timeout %v applied as %v", timeout, d.applied)
	}
	return nil
}

// AppliedTimeout is the timeout the driver reported after Start.
func (d *Device) AppliedTimeout() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.applied
}

func (d *Device) Feed() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fd < 0 {
		return ErrNotStarted
	}
	if _, err := unix.Write(d.fd, []byte{0}); err != nil {
		return fmt.Errorf("failed to feed %s: %w", d.path, err)
	}
	return nil
}

// Close releases the device. Unless disarmOnExit is set the timer stays
// armed and the node resets once it runs out.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fd < 0 {
		return nil
	}
	if d.disarmOnExit {
		if _, err := unix.Write(d.fd, []byte{magicClose}); err != nil {
			d.logger.Warnf("Failed to disarm watchdog: %v", err)
		}
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}
