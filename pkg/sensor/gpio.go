package sensor

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// GPIO reads a contact wired between a header pin and ground. The pin is
// configured as an input with the internal pull-up, so an open contact reads
// high and is reported as an open door.
type GPIO struct {
	mu     sync.Mutex
	pin    gpio.PinIO
	closed bool
}

// NewGPIO initialises the host drivers and configures the given physical
// header pin (board numbering, e.g. 11 for P1_11).
func NewGPIO(pin int) (*GPIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHostInit, err)
	}

	name := fmt.Sprintf("P1_%d", pin)
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrPinNotFound, name)
	}
	if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("configure %s as input: %w", name, err)
	}

	return &GPIO{pin: p}, nil
}

// Read implements Reader.
func (g *GPIO) Read() (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return false, ErrClosed
	}
	return g.pin.Read() == gpio.High, nil
}

// Close releases the pin.
func (g *GPIO) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}
	g.closed = true
	return g.pin.Halt()
}

var _ Reader = (*GPIO)(nil)
