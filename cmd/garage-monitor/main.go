// Command garage-monitor exposes a garage door contact to a home automation
// hub.
//
// The hub finds the device through multicast discovery, subscribes to state
// changes over HTTP and receives a POST whenever the door opens or closes.
// It may also poll GET /status at any time.
//
// Usage:
//
//	garage-monitor [flags]
//
// Flags:
//
//	-httpport int      Status endpoint port (default 8080)
//	-deviceindex int   Index appended to the device target (default 1)
//	-pollingfreq int   Sensor polling period in seconds (default 5)
//	-gpiopin int       Header pin of the door contact, -1 simulates (default -1)
//	-debug             Enable debug logging
//	-config string     YAML configuration file
//	-event-log string  Record protocol events to a CBOR file
//	-interface string  Join the discovery group on this interface only
//	-interactive       Start the interactive console
//
// Flags given on the command line override values from the config file.
//
// Examples:
//
//	# Simulated door on the default port
//	garage-monitor -debug
//
//	# Second door on pin 11, recording traffic
//	garage-monitor -deviceindex 2 -gpiopin 11 -event-log /var/log/garage2.cbor
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rpi-garage/garage-go/cmd/garage-monitor/interactive"
	"github.com/rpi-garage/garage-go/pkg/config"
	"github.com/rpi-garage/garage-go/pkg/device"
	"github.com/rpi-garage/garage-go/pkg/log"
	"github.com/rpi-garage/garage-go/pkg/metrics"
	"github.com/rpi-garage/garage-go/pkg/monitor"
	"github.com/rpi-garage/garage-go/pkg/notify"
	"github.com/rpi-garage/garage-go/pkg/sensor"
	"github.com/rpi-garage/garage-go/pkg/ssdp"
	"github.com/rpi-garage/garage-go/pkg/status"
	"github.com/rpi-garage/garage-go/pkg/subscription"
)

// shutdownTimeout bounds the HTTP server shutdown.
const shutdownTimeout = 5 * time.Second

var (
	flags           = config.Default()
	configFile      string
	interactiveMode bool
)

func init() {
	flag.IntVar(&flags.HTTPPort, "httpport", flags.HTTPPort, "Status endpoint port")
	flag.IntVar(&flags.DeviceIndex, "deviceindex", flags.DeviceIndex, "Index appended to the device target")
	flag.IntVar(&flags.PollingFreq, "pollingfreq", flags.PollingFreq, "Sensor polling period in seconds")
	flag.IntVar(&flags.GPIOPin, "gpiopin", flags.GPIOPin, "Header pin of the door contact, -1 simulates")
	flag.BoolVar(&flags.Debug, "debug", false, "Enable debug logging")
	flag.StringVar(&flags.EventLog, "event-log", "", "Record protocol events to a CBOR file")
	flag.StringVar(&flags.Interface, "interface", "", "Join the discovery group on this interface only")
	flag.StringVar(&configFile, "config", "", "YAML configuration file")
	flag.BoolVar(&interactiveMode, "interactive", false, "Start the interactive console")
}

func main() {
	flag.Parse()

	cfg, err := loadConfig(flag.CommandLine, configFile, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "garage-monitor: %v\n", err)
		os.Exit(2)
	}

	if err := run(cfg); err != nil {
		slog.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

// loadConfig layers defaults, the optional file and the flags that were
// set explicitly on fs.
func loadConfig(fs *flag.FlagSet, path string, fromFlags config.Config) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "httpport":
			cfg.HTTPPort = fromFlags.HTTPPort
		case "deviceindex":
			cfg.DeviceIndex = fromFlags.DeviceIndex
		case "pollingfreq":
			cfg.PollingFreq = fromFlags.PollingFreq
		case "gpiopin":
			cfg.GPIOPin = fromFlags.GPIOPin
		case "debug":
			cfg.Debug = fromFlags.Debug
		case "event-log":
			cfg.EventLog = fromFlags.EventLog
		case "interface":
			cfg.Interface = fromFlags.Interface
		}
	})

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func run(cfg config.Config) error {
	id, err := cfg.Identity()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := newLogger(os.Stderr, cfg.Debug)
	slog.SetDefault(logger)

	reader, err := sensor.New(cfg.GPIOPin, logger)
	if err != nil {
		return fmt.Errorf("open sensor: %w", err)
	}
	defer reader.Close()

	cell := device.NewCell()
	registry := subscription.NewRegistryWithConfig(subscription.Config{TTL: cfg.SubscriptionTTL})

	var consoleDone chan struct{}
	if interactiveMode {
		sim, _ := reader.(*sensor.Simulator)
		console, err := interactive.New(interactive.Config{
			Identity:  id,
			Cell:      cell,
			Registry:  registry,
			Simulator: sim,
		})
		if err != nil {
			return err
		}
		logger = newLogger(console.Stdout(), cfg.Debug)
		slog.SetDefault(logger)
		consoleDone = make(chan struct{})
		go func() {
			defer close(consoleDone)
			console.Run(ctx, cancel)
		}()
	}

	events, closeEvents, err := eventSink(cfg.EventLog, logger)
	if err != nil {
		return err
	}
	defer closeEvents()

	m := metrics.New()

	notifier := notify.New(notify.Config{
		Identity:    id,
		Subscribers: registry,
		Timeout:     cfg.NotifyTimeout,
		Logger:      logger,
		Events:      events,
		Metrics:     m,
	})

	mon, err := monitor.New(monitor.Config{
		Reader:   reader,
		Cell:     cell,
		Notifier: notifier,
		Interval: cfg.PollingInterval(),
		Logger:   logger,
		Events:   events,
		Metrics:  m,
	})
	if err != nil {
		return err
	}

	srv, err := status.New(status.Config{
		Identity: id,
		Cell:     cell,
		Registry: registry,
		Logger:   logger,
		Events:   events,
		Metrics:  m,
	})
	if err != nil {
		return err
	}

	responder := ssdp.NewResponder(ssdp.Config{
		Identity:   id,
		StatusPort: cfg.HTTPPort,
		Interface:  cfg.Interface,
		ServerID:   cfg.ServerID,
		Logger:     logger,
		Events:     events,
		Metrics:    m,
	})

	logger.Info("Garage monitor starting",
		"usn", id.USN(),
		"http_port", cfg.HTTPPort,
		"polling", cfg.PollingInterval(),
		"subscription_ttl", registry.TTL(),
		"simulated", cfg.Simulated())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return responder.ListenAndServe(gctx)
	})
	g.Go(func() error {
		return mon.Run(gctx)
	})
	g.Go(func() error {
		return srv.Start(":" + strconv.Itoa(cfg.HTTPPort))
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("Shutting down")
	if consoleDone != nil {
		cancel()
		<-consoleDone
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// eventSink builds the protocol event logger: debug output through slog and,
// when path is set, a CBOR file.
func eventSink(path string, logger *slog.Logger) (log.Logger, func(), error) {
	adapter := log.NewSlogAdapter(logger)
	if path == "" {
		return adapter, func() {}, nil
	}

	file, err := log.NewFileLogger(path)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := file.Close(); err != nil {
			logger.Warn("Closing event log failed", "path", file.Path(), "error", err)
			return
		}
		written, dropped := file.Stats()
		logger.Info("Event log closed", "path", file.Path(), "events", written, "dropped", dropped)
	}
	return log.NewMultiLogger(adapter, file), closeFn, nil
}
