package interactive

import (
	"bytes"
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chzyer/readline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpi-garage/garage-go/pkg/device"
	"github.com/rpi-garage/garage-go/pkg/sensor"
	"github.com/rpi-garage/garage-go/pkg/subscription"
)

func newTestConsole(t *testing.T, sim *sensor.Simulator) (*Console, *bytes.Buffer, *subscription.Registry, *time.Time) {
	t.Helper()

	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	registry := subscription.NewRegistryWithConfig(subscription.Config{
		TTL: time.Hour,
		Now: func() time.Time { return now },
	})
	cell := device.NewCell()
	_, err := cell.Store(device.StateClosed)
	require.NoError(t, err)

	var out bytes.Buffer
	c := newConsole(Config{
		Identity:  device.DefaultIdentity(1),
		Cell:      cell,
		Registry:  registry,
		Simulator: sim,
		Now:       func() time.Time { return now },
	}, nil, &out)
	return c, &out, registry, &now
}

func TestExecuteStatus(t *testing.T) {
	c, out, registry, _ := newTestConsole(t, nil)
	registry.Subscribe("http://10.0.0.2:39500/notify")

	assert.True(t, c.Execute("status"))
	assert.Contains(t, out.String(), "Door:        closed")
	assert.Contains(t, out.String(), device.DefaultIdentity(1).USN())
	assert.Contains(t, out.String(), "1 active, 1 known")
}

func TestExecuteSubs(t *testing.T) {
	c, out, registry, now := newTestConsole(t, nil)

	assert.True(t, c.Execute("subs"))
	assert.Contains(t, out.String(), "No subscriptions")

	registry.Subscribe("http://10.0.0.2:39500/notify")
	*now = now.Add(2 * time.Hour)
	registry.Subscribe("http://10.0.0.3:39500/notify")

	out.Reset()
	assert.True(t, c.Execute("SUBS"))
	assert.Contains(t, out.String(), "renewal extends by 1h0m0s")
	assert.Contains(t, out.String(), "http://10.0.0.2:39500/notify")
	assert.Contains(t, out.String(), "expired")
	assert.Contains(t, out.String(), "active")
}

func TestExecuteSetSimulated(t *testing.T) {
	sim := sensor.NewSimulator(false, 3)
	c, out, _, _ := newTestConsole(t, sim)

	assert.True(t, c.Execute("open"))
	assert.Contains(t, out.String(), "open")

	open, err := sim.Read()
	require.NoError(t, err)
	assert.True(t, open)
}

func TestExecuteSetWithoutSimulator(t *testing.T) {
	c, out, _, _ := newTestConsole(t, nil)

	assert.True(t, c.Execute("close"))
	assert.Contains(t, out.String(), "Not in simulation mode")
}

func TestExecuteQuitAndUnknown(t *testing.T) {
	c, out, _, _ := newTestConsole(t, nil)

	assert.True(t, c.Execute(""))
	assert.True(t, c.Execute("frobnicate"))
	assert.Contains(t, out.String(), "Unknown command: frobnicate")

	assert.False(t, c.Execute("quit"))
	assert.False(t, c.Execute("q"))
}

// rawMode tracks terminal mode switches made by readline.
type rawMode struct {
	mu      sync.Mutex
	entered int
	active  bool
}

func (r *rawMode) enter() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entered++
	r.active = true
	return nil
}

func (r *rawMode) exit() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = false
	return nil
}

func (r *rawMode) state() (entered int, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entered, r.active
}

// newPipeConsole builds a console whose readline reads from a pipe.
func newPipeConsole(t *testing.T) (*Console, *rawMode, *io.PipeWriter) {
	t.Helper()

	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })

	raw := &rawMode{}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:             "garage> ",
		Stdin:              pr,
		Stdout:             io.Discard,
		Stderr:             io.Discard,
		FuncIsTerminal:     func() bool { return false },
		FuncMakeRaw:        raw.enter,
		FuncExitRaw:        raw.exit,
		FuncGetWidth:       func() int { return 80 },
		FuncOnWidthChanged: func(func()) {},
	})
	require.NoError(t, err)

	c := newConsole(Config{
		Identity: device.DefaultIdentity(1),
		Cell:     device.NewCell(),
		Registry: subscription.NewRegistry(),
	}, rl, io.Discard)
	return c, raw, pw
}

func TestRunLeavesRawModeWhenContextCancelled(t *testing.T) {
	c, raw, _ := newPipeConsole(t)

	ctx, shutdown := context.WithCancel(context.Background())
	defer shutdown()

	var cancelled atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx, func() { cancelled.Store(true) })
	}()

	require.Eventually(t, func() bool {
		entered, active := raw.state()
		return entered > 0 && active
	}, 2*time.Second, 10*time.Millisecond, "readline should be waiting for input")

	shutdown()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the context was cancelled")
	}

	_, active := raw.state()
	assert.False(t, active, "terminal must be out of raw mode")
	assert.False(t, cancelled.Load(), "shutdown from outside does not call cancel")
}

func TestRunQuitCancels(t *testing.T) {
	c, raw, pw := newPipeConsole(t)

	var cancelled atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(context.Background(), func() { cancelled.Store(true) })
	}()

	_, err := pw.Write([]byte("quit\n"))
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after quit")
	}

	_, active := raw.state()
	assert.False(t, active)
	assert.True(t, cancelled.Load())
}
