package sensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatorFlipSchedule(t *testing.T) {
	sim := NewSimulator(false, DefaultFlipEvery)

	// closed, closed, open, open, open, closed, ...
	want := []bool{false, false, true, true, true, false, false, false, true}
	for i, w := range want {
		got, err := sim.Read()
		require.NoError(t, err)
		assert.Equalf(t, w, got, "read %d", i+1)
	}
}

func TestSimulatorDefaultPeriod(t *testing.T) {
	sim := NewSimulator(true, 0)

	var reads []bool
	for i := 0; i < 3; i++ {
		v, _ := sim.Read()
		reads = append(reads, v)
	}
	assert.Equal(t, []bool{true, true, false}, reads)
}

func TestSimulatorSetRestartsCountdown(t *testing.T) {
	sim := NewSimulator(false, 3)
	_, _ = sim.Read()
	_, _ = sim.Read()

	sim.Set(true)

	v, _ := sim.Read()
	assert.True(t, v)
	v, _ = sim.Read()
	assert.True(t, v)
	v, _ = sim.Read()
	assert.False(t, v)
}

func TestNewNegativePinSelectsSimulator(t *testing.T) {
	r, err := New(-1, nil)
	require.NoError(t, err)
	defer r.Close()

	_, ok := r.(*Simulator)
	assert.True(t, ok, "expected *Simulator, got %T", r)
}
