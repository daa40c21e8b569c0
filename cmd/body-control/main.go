package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"body-control/internal/can"
	"body-control/internal/config"
	"body-control/internal/core"
	"body-control/internal/hardware"
	"body-control/internal/logger"
	"body-control/internal/messaging"
	"body-control/internal/watchdog"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")

	// Service log level
	var serviceLogLevel int
	flag.IntVar(&serviceLogLevel, "log", -1, "Service log level (0=NONE, 1=ERROR, 2=WARN, 3=INFO, 4=DEBUG); overrides log_level")

	flag.Parse()

	// Create standard logger with appropriate format
	var stdLogger *log.Logger
	if os.Getenv("INVOCATION_ID") != "" {
		// Running under systemd, use minimal format
		stdLogger = log.New(os.Stdout, "", 0)
	} else {
		// Running interactively, use timestamps
		stdLogger = log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds|log.Lmsgprefix)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		stdLogger.Fatalf("Failed to load config: %v", err)
	}

	level := logger.ParseLevel(cfg.LogLevel)
	if serviceLogLevel >= 0 {
		level = logger.LogLevel(serviceLogLevel)
	}

	// Create leveled logger
	l := logger.NewLogger(stdLogger, level)

	l.Infof("Starting body control service...")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	wd, closeWatchdog := buildWatchdog(ctx, cfg, l)
	defer closeWatchdog()

	supervisor, err := watchdog.NewSupervisor(wd, cfg.Watchdog.Timeout, cfg.Watchdog.FeedPeriod, l.WithTag("watchdog"))
	if err != nil {
		l.Fatalf("Invalid watchdog settings: %v", err)
	}
	// armed before any bus or GPIO bring-up; a hang from here on resets the node
	if err := supervisor.Arm(); err != nil {
		l.Fatalf("Failed to arm watchdog: %v", err)
	}

	queues, closeQueues := buildQueues(ctx, cfg, l)
	defer closeQueues()

	system := core.NewBodyControlSystem(buildOutputs(cfg, l), queues, supervisor, core.Options{
		TickPeriod: cfg.Lights.TickPeriod,
		InboxSize:  cfg.CAN.InboxSize,
	}, l)
	if err := system.Start(ctx); err != nil {
		l.Fatalf("Failed to start system: %v", err)
	}

	l.Infof("System started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	l.Infof("Received signal %v, shutting down...", sig)
	system.Shutdown()
	l.Infof("Shutdown complete (%d frames dropped)", system.Inbox().Dropped())
}

func buildQueues(ctx context.Context, cfg *config.Config, l *logger.Logger) ([2]can.RxQueue, func()) {
	switch cfg.CAN.Backend {
	case config.CANRedis:
		bus := messaging.NewRedisBus(cfg.CAN.RedisAddr, l.WithTag("redis"))
		if err := bus.Connect(ctx); err != nil {
			l.Fatalf("Failed to connect to Redis: %v", err)
		}
		queues := [2]can.RxQueue{bus.Queue(cfg.CAN.Rx0Key), bus.Queue(cfg.CAN.Rx1Key)}
		return queues, func() {
			if err := bus.Close(); err != nil {
				l.Warnf("Failed to close Redis client: %v", err)
			}
		}

	default:
		rx0, err := can.OpenSocketCAN(cfg.CAN.Interface, can.AcceptExtended)
		if err != nil {
			l.Fatalf("Failed to open rx0 on %s: %v", cfg.CAN.Interface, err)
		}
		rx1, err := can.OpenSocketCAN(cfg.CAN.Interface, can.AcceptStandard)
		if err != nil {
			l.Fatalf("Failed to open rx1 on %s: %v", cfg.CAN.Interface, err)
		}
		l.Infof("Receiving on %v and %v", rx0, rx1)
		// sockets are closed by Shutdown
		return [2]can.RxQueue{rx0, rx1}, func() {}
	}
}

func buildOutputs(cfg *config.Config, l *logger.Logger) core.HardwareIO {
	if cfg.Outputs.Backend == config.OutputLog {
		names := make([]string, 0, len(cfg.Outputs.Lines))
		for name := range cfg.Outputs.Lines {
			names = append(names, name)
		}
		sort.Strings(names)
		return hardware.NewLogHardwareIO(names, l.WithTag("outputs"))
	}

	io := hardware.NewLinuxHardwareIO(cfg.Outputs.Lines, l.WithTag("gpio"))
	// everything dark until the first lighting frame
	for name := range cfg.Outputs.Lines {
		io.SetInitialValue(name, false)
	}
	return io
}

func buildWatchdog(ctx context.Context, cfg *config.Config, l *logger.Logger) (watchdog.Watchdog, func()) {
	if cfg.Watchdog.Backend == config.WatchdogSoft {
		sim := watchdog.NewSimulated(nil)
		go sim.Monitor(ctx, 50*time.Millisecond, func() {
			l.Fatalf("Watchdog expired, feed loop stalled")
		})
		return sim, func() {}
	}

	dev := watchdog.NewDevice(cfg.Watchdog.Device, cfg.Watchdog.DisarmOnExit, l.WithTag("watchdog"))
	return dev, func() {
		if err := dev.Close(); err != nil {
			l.Warnf("Failed to close watchdog: %v", err)
		}
	}
}
