package sensor

import "sync"

// DefaultFlipEvery is how many reads the simulator holds a state before
// flipping.
const DefaultFlipEvery = 3

// Simulator alternates between open and closed. Every read decrements a
// countdown; when it reaches zero the countdown resets and the reported state
// flips.
type Simulator struct {
	mu        sync.Mutex
	open      bool
	flipEvery int
	countdown int
}

// NewSimulator returns a simulator starting in the given state.
// flipEvery <= 0 selects DefaultFlipEvery.
func NewSimulator(open bool, flipEvery int) *Simulator {
	if flipEvery <= 0 {
		flipEvery = DefaultFlipEvery
	}
	return &Simulator{
		open:      open,
		flipEvery: flipEvery,
		countdown: flipEvery,
	}
}

// Read implements Reader.
func (s *Simulator) Read() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.countdown--
	if s.countdown <= 0 {
		s.countdown = s.flipEvery
		s.open = !s.open
	}
	return s.open, nil
}

// Set forces the simulated state and restarts the countdown.
func (s *Simulator) Set(open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = open
	s.countdown = s.flipEvery
}

// Close implements Reader.
func (s *Simulator) Close() error { return nil }

var _ Reader = (*Simulator)(nil)
