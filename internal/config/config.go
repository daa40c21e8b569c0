package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"body-control/internal/hardware"
	"body-control/internal/messaging"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v2"
)

const EnvPrefix = "BODY_"

// CAN receive backends.
const (
	CANSocketCAN = "socketcan"
	CANRedis     = "redis"
)

// Output backends.
const (
	OutputGPIO = "gpio"
	OutputLog  = "log"
)

// Watchdog backends.
const (
	WatchdogDevice = "device"
	WatchdogSoft   = "soft"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	LogLevel string         `yaml:"log_level" env:"LOG_LEVEL"`
	CAN      CANConfig      `yaml:"can" envPrefix:"CAN_"`
	Outputs  OutputConfig   `yaml:"outputs" envPrefix:"OUTPUTS_"`
	Lights   LightsConfig   `yaml:"lights" envPrefix:"LIGHTS_"`
	Watchdog WatchdogConfig `yaml:"watchdog" envPrefix:"WATCHDOG_"`
}

type CANConfig struct {
	Backend   string `yaml:"backend" env:"BACKEND"`
	Interface string `yaml:"interface" env:"INTERFACE"`
	RedisAddr string `yaml:"redis_addr" env:"REDIS_ADDR"`
	Rx0Key    string `yaml:"rx0_key" env:"RX0_KEY"`
	Rx1Key    string `yaml:"rx1_key" env:"RX1_KEY"`
	// Depth of the receiver-to-dispatcher queue. Frames arriving while it
	// is full are dropped.
	InboxSize int `yaml:"inbox_size" env:"INBOX_SIZE"`
}

type OutputConfig struct {
	Backend string                          `yaml:"backend" env:"BACKEND"`
	Lines   map[string]hardware.LineMapping `yaml:"lines"`
}

type LightsConfig struct {
	TickPeriod time.Duration `yaml:"tick_period" env:"TICK_PERIOD"`
}

type WatchdogConfig struct {
	Backend      string        `yaml:"backend" env:"BACKEND"`
	Device       string        `yaml:"device" env:"DEVICE"`
	Timeout      time.Duration `yaml:"timeout" env:"TIMEOUT"`
	FeedPeriod   time.Duration `yaml:"feed_period" env:"FEED_PERIOD"`
	DisarmOnExit bool          `yaml:"disarm_on_exit" env:"DISARM_ON_EXIT"`
}

// Default is the build-time configuration of the body-control board.
func Default() *Config {
	lines := make(map[string]hardware.LineMapping, len(hardware.DefaultDoMappings))
	for name, m := range hardware.DefaultDoMappings {
		lines[name] = m
	}

	return &Config{
		LogLevel: "info",
		CAN: CANConfig{
			Backend:   CANSocketCAN,
			Interface: "can0",
			RedisAddr: "127.0.0.1:6379",
			Rx0Key:    messaging.DefaultRx0Key,
			Rx1Key:    messaging.DefaultRx1Key,
			InboxSize: 32,
		},
		Outputs: OutputConfig{
			Backend: OutputGPIO,
			Lines:   lines,
		},
		Lights: LightsConfig{
			TickPeriod: 10 * time.Millisecond,
		},
		Watchdog: WatchdogConfig{
			Backend:    WatchdogDevice,
			Device:     "/dev/watchdog",
			Timeout:    2 * time.Second,
			FeedPeriod: 1600 * time.Millisecond,
		},
	}
}

// Load starts from Default, applies the YAML file at path (if path is not
// empty) and then BODY_* environment variables, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.UnmarshalStrict(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.CAN.Backend {
	case CANSocketCAN:
		if c.CAN.Interface == "" {
			return fmt.Errorf("can.interface is empty: %w", ErrInvalid)
		}
	case CANRedis:
		if c.CAN.RedisAddr == "" || c.CAN.Rx0Key == "" || c.CAN.Rx1Key == "" {
			return fmt.Errorf("can.redis_addr and both queue keys are required: %w", ErrInvalid)
		}
	default:
		return fmt.Errorf("unknown can.backend %q: %w", c.CAN.Backend, ErrInvalid)
	}
	if c.CAN.InboxSize <= 0 {
		return fmt.Errorf("can.inbox_size must be positive: %w", ErrInvalid)
	}

	switch c.Outputs.Backend {
	case OutputGPIO, OutputLog:
	default:
		return fmt.Errorf("unknown outputs.backend %q: %w", c.Outputs.Backend, ErrInvalid)
	}
	for _, name := range []string{hardware.OutLeftIndicator, hardware.OutRightIndicator, hardware.OutDayLight} {
		if _, ok := c.Outputs.Lines[name]; !ok {
			return fmt.Errorf("outputs.lines has no %s: %w", name, ErrInvalid)
		}
	}

	if c.Lights.TickPeriod <= 0 {
		return fmt.Errorf("lights.tick_period must be positive: %w", ErrInvalid)
	}

	switch c.Watchdog.Backend {
	case WatchdogDevice:
		if c.Watchdog.Device == "" {
			return fmt.Errorf("watchdog.device is empty: %w", ErrInvalid)
		}
	case WatchdogSoft:
	default:
		return fmt.Errorf("unknown watchdog.backend %q: %w", c.Watchdog.Backend, ErrInvalid)
	}
	if c.Watchdog.FeedPeriod <= 0 || c.Watchdog.FeedPeriod >= c.Watchdog.Timeout {
		return fmt.Errorf("watchdog.feed_period %v must be positive and below timeout %v: %w",
			c.Watchdog.FeedPeriod, c.Watchdog.Timeout, ErrInvalid)
	}

	return nil
}
