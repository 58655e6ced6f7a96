// Package monitor polls the door sensor and reacts to state changes.
//
// Each tick reads the sensor, compares the reading with the shared state
// cell, and on a difference stores the new state before handing it to the
// notifier. The next tick is armed only after the current one finishes, so
// ticks never overlap; drift from processing time is accepted.
//
// A failed sensor read stops the monitor with ErrSensorRead. The device has
// no purpose without its sensor, so callers treat this as fatal.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rpi-garage/garage-go/pkg/device"
	"github.com/rpi-garage/garage-go/pkg/log"
	"github.com/rpi-garage/garage-go/pkg/metrics"
	"github.com/rpi-garage/garage-go/pkg/sensor"
)

// ErrSensorRead wraps sensor read failures.
var ErrSensorRead = errors.New("sensor read failed")

// DefaultInterval is the default polling period.
const DefaultInterval = 5 * time.Second

// Notifier receives state changes. It is satisfied by *notify.Notifier.
type Notifier interface {
	Notify(state device.State) int
}

// Config configures a Monitor.
type Config struct {
	Reader   sensor.Reader
	Cell     *device.Cell
	Notifier Notifier

	// Interval is the delay between the end of one tick and the next.
	Interval time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Events receives state change events (optional).
	Events log.Logger

	// Metrics is optional.
	Metrics *metrics.Metrics
}

// Monitor polls a sensor reader.
type Monitor struct {
	config Config
	logger *slog.Logger
	events log.Logger
}

// New creates a Monitor.
func New(config Config) (*Monitor, error) {
	if config.Reader == nil {
		return nil, errors.New("monitor: reader is required")
	}
	if config.Cell == nil {
		return nil, errors.New("monitor: state cell is required")
	}
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Monitor{
		config: config,
		logger: logger,
		events: log.OrNoop(config.Events),
	}, nil
}

// Interval returns the polling period.
func (m *Monitor) Interval() time.Duration {
	return m.config.Interval
}

// Tick performs one poll. It reports whether the state changed.
func (m *Monitor) Tick() (bool, error) {
	open, err := m.config.Reader.Read()
	if err != nil {
		m.events.Log(log.Event{
			Timestamp: time.Now(),
			Direction: log.DirectionIn,
			Layer:     log.LayerSensor,
			Category:  log.CategoryError,
			Error:     &log.ErrorEventData{Message: err.Error(), Context: "read sensor"},
		})
		return false, fmt.Errorf("%w: %v", ErrSensorRead, err)
	}

	current := device.FromReading(open)
	last := m.config.Cell.Load()
	if current == last {
		return false, nil
	}

	m.logger.Info("State changed", "from", last.String(), "to", current.String())
	if _, err := m.config.Cell.Store(current); err != nil {
		return false, err
	}

	m.config.Metrics.StateChanged(open)
	m.events.Log(log.Event{
		Timestamp:   time.Now(),
		Direction:   log.DirectionIn,
		Layer:       log.LayerSensor,
		Category:    log.CategoryState,
		StateChange: &log.StateChangeEvent{OldState: last.String(), NewState: current.String()},
	})

	if m.config.Notifier != nil {
		m.config.Notifier.Notify(current)
	}
	return true, nil
}

// Run polls until ctx is cancelled or a read fails. The first tick happens
// one interval after Run is called.
func (m *Monitor) Run(ctx context.Context) error {
	timer := time.NewTimer(m.config.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			if _, err := m.Tick(); err != nil {
				return err
			}
			timer.Reset(m.config.Interval)
		}
	}
}
