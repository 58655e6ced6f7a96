// Package interactive provides the interactive command-line interface
// for the garage monitor.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/rpi-garage/garage-go/pkg/device"
	"github.com/rpi-garage/garage-go/pkg/sensor"
	"github.com/rpi-garage/garage-go/pkg/subscription"
)

// Config wires the console to the running components.
type Config struct {
	Identity device.Identity
	Cell     *device.Cell
	Registry *subscription.Registry

	// Simulator is set when the door contact is simulated. It enables the
	// open and close commands.
	Simulator *sensor.Simulator

	// Now defaults to time.Now.
	Now func() time.Time
}

// Console handles interactive mode for garage-monitor.
type Console struct {
	config Config
	rl     *readline.Instance
	out    io.Writer
}

// New creates a console reading from the terminal.
func New(cfg Config) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "garage> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return newConsole(cfg, rl, rl.Stdout()), nil
}

func newConsole(cfg Config, rl *readline.Instance, out io.Writer) *Console {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Console{config: cfg, rl: rl, out: out}
}

// Stdout returns a writer that coordinates with the readline prompt.
// Use it for log output so lines do not tear the prompt.
func (c *Console) Stdout() io.Writer {
	return c.out
}

// Run reads commands until quit, EOF or ctx cancellation. Quit and EOF call
// cancel.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	// Closing readline makes a blocked Readline return, and Readline leaves
	// raw mode on the way out. Close can wait for the next keystroke before
	// it finishes, so it runs on its own goroutine and is not awaited.
	stop := context.AfterFunc(ctx, func() { _ = c.rl.Close() })
	defer stop()

	c.printHelp()

	for {
		line, err := c.rl.Readline()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			c.exit(cancel)
			return
		}

		if !c.Execute(line) {
			c.exit(cancel)
			return
		}
	}
}

func (c *Console) exit(cancel context.CancelFunc) {
	fmt.Fprintln(c.out, "Exiting...")
	_ = c.rl.Close()
	cancel()
}

// Execute runs one command line. It returns false on quit.
func (c *Console) Execute(line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return true
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])

	switch cmd {
	case "help", "?":
		c.printHelp()

	case "status", "s":
		c.cmdStatus()

	case "subs", "subscriptions":
		c.cmdSubs()

	case "open":
		c.cmdSet(true)

	case "close":
		c.cmdSet(false)

	case "quit", "exit", "q":
		return false

	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
Garage Monitor Commands:
  status             - Show door state and device identity
  subs               - List subscriptions and their expiry
  open               - Force the simulated contact open
  close              - Force the simulated contact closed
  help               - Show this help
  quit               - Exit`)
}

func (c *Console) cmdStatus() {
	out := c.out
	now := c.config.Now()

	fmt.Fprintf(out, "Door:        %s\n", c.config.Cell.Load())
	fmt.Fprintf(out, "USN:         %s\n", c.config.Identity.USN())
	fmt.Fprintf(out, "Subscribers: %d active, %d known\n",
		len(c.config.Registry.ActiveSubscribers(now)), c.config.Registry.Len())
	if c.config.Simulator != nil {
		fmt.Fprintln(out, "Sensor:      simulated")
	}
}

func (c *Console) cmdSubs() {
	out := c.out
	now := c.config.Now()

	subs := c.config.Registry.Snapshot()
	if len(subs) == 0 {
		fmt.Fprintln(out, "No subscriptions")
		return
	}
	fmt.Fprintf(out, "Subscriptions (renewal extends by %s):\n", c.config.Registry.TTL())
	for _, s := range subs {
		state := "active"
		if !s.Active(now) {
			state = "expired"
		}
		fmt.Fprintf(out, "  %-50s %-8s %s\n", s.Address, state, s.Expiration.Format(time.RFC3339))
	}
}

func (c *Console) cmdSet(open bool) {
	if c.config.Simulator == nil {
		fmt.Fprintln(c.out, "Not in simulation mode")
		return
	}
	c.config.Simulator.Set(open)
	fmt.Fprintf(c.out, "Simulated contact set to %s (applied on next poll)\n", device.FromReading(open))
}
