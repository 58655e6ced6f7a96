// Package sensor reads the garage door contact.
//
// The rest of the module depends only on Reader. Two implementations exist:
// a GPIO reader for a contact wired to the Raspberry Pi header, and a
// deterministic simulator for running without hardware.
package sensor

import (
	"errors"
	"log/slog"
)

// Sensor errors.
var (
	ErrHostInit    = errors.New("gpio host initialisation failed")
	ErrPinNotFound = errors.New("gpio pin not found")
	ErrClosed      = errors.New("sensor closed")
)

// Reader reads the door contact.
type Reader interface {
	// Read returns true when the door is open.
	Read() (open bool, err error)

	// Close releases hardware resources.
	Close() error
}

// New selects a reader from a header pin number. A negative pin selects the
// simulator.
func New(pin int, logger *slog.Logger) (Reader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if pin < 0 {
		logger.Warn("Simulation mode active")
		return NewSimulator(false, DefaultFlipEvery), nil
	}
	return NewGPIO(pin)
}
