package device

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownState is returned when a caller tries to store StateUnknown.
var ErrUnknownState = errors.New("state unknown cannot be re-entered")

// State is the door state.
type State uint8

const (
	// StateUnknown is the initial state before the first sensor reading.
	StateUnknown State = iota

	// StateOpen means the door is open.
	StateOpen

	// StateClosed means the door is closed.
	StateClosed
)

// FromReading maps a sensor reading to a state.
func FromReading(open bool) State {
	if open {
		return StateOpen
	}
	return StateClosed
}

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Command returns the status command carried in messages.
// Anything other than closed reports as open.
func (s State) Command() string {
	if s == StateClosed {
		return "status-closed"
	}
	return "status-open"
}

// Cell holds the current door state. The monitor writes it; the status
// endpoint reads it.
type Cell struct {
	mu    sync.RWMutex
	state State
}

// NewCell returns a cell in StateUnknown.
func NewCell() *Cell {
	return &Cell{}
}

// Load returns the current state.
func (c *Cell) Load() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Store sets the current state and returns the previous one.
func (c *Cell) Store(s State) (State, error) {
	if s != StateOpen && s != StateClosed {
		return c.Load(), fmt.Errorf("store %s: %w", s, ErrUnknownState)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.state
	c.state = s
	return old, nil
}

// StatusMessage builds the status body for the given state.
func StatusMessage(s State, id Identity) []byte {
	return []byte(fmt.Sprintf("<msg><cmd>%s</cmd><usn>%s</usn></msg>", s.Command(), id.USN()))
}
