package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/rpi-garage/garage-go/pkg/device"
	"github.com/rpi-garage/garage-go/pkg/log"
	"github.com/rpi-garage/garage-go/pkg/metrics"
)

// DefaultTimeout bounds a single notification send.
const DefaultTimeout = 10 * time.Second

// Outcome classifies the result of one send.
type Outcome uint8

const (
	// OutcomeExpectedFailure is the hub closing the connection without a response.
	OutcomeExpectedFailure Outcome = iota

	// OutcomeUnexpectedResponse means a response with a status code arrived.
	OutcomeUnexpectedResponse

	// OutcomeFailed is any other failure.
	OutcomeFailed
)

// String returns the outcome label used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeExpectedFailure:
		return "expected_failure"
	case OutcomeUnexpectedResponse:
		return "unexpected_response"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result describes one completed send.
type Result struct {
	Address    string
	Outcome    Outcome
	StatusCode int
	Err        error
}

// SubscriberSource lists the callback addresses active at a given time.
// It is satisfied by *subscription.Registry.
type SubscriberSource interface {
	ActiveSubscribers(now time.Time) []string
}

// Config configures a Notifier.
type Config struct {
	// Identity tags the notification body.
	Identity device.Identity

	// Subscribers supplies the callback addresses.
	Subscribers SubscriberSource

	// Client sends the requests. Defaults to a client with Timeout.
	Client *http.Client

	// Timeout applies when Client is nil.
	Timeout time.Duration

	// IsExpected classifies transport errors. Defaults to IsConnectionClosed.
	IsExpected func(error) bool

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// Logger is the operational logger. Defaults to slog.Default().
	Logger *slog.Logger

	// Events receives protocol events (optional).
	Events log.Logger

	// Metrics is optional.
	Metrics *metrics.Metrics
}

// Notifier fans a state change out to all active subscribers.
type Notifier struct {
	config Config
	logger *slog.Logger
	events log.Logger

	wg sync.WaitGroup

	mu       sync.RWMutex
	onResult func(Result)
}

// New creates a Notifier.
func New(config Config) *Notifier {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Client == nil {
		config.Client = &http.Client{Timeout: config.Timeout}
	}
	if config.IsExpected == nil {
		config.IsExpected = IsConnectionClosed
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Notifier{
		config: config,
		logger: logger,
		events: log.OrNoop(config.Events),
	}
}

// OnResult sets a callback invoked after every send completes.
func (n *Notifier) OnResult(fn func(Result)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onResult = fn
}

// Notify starts one send per active subscriber and returns how many were
// started. It does not wait for any of them.
func (n *Notifier) Notify(state device.State) int {
	if n.config.Subscribers == nil {
		return 0
	}

	addrs := n.config.Subscribers.ActiveSubscribers(n.config.Now())
	n.config.Metrics.Fanout(len(addrs))

	body := device.StatusMessage(state, n.config.Identity)
	for _, addr := range addrs {
		n.logger.Info("Notifying hub", "address", addr, "cmd", state.Command())
		n.wg.Add(1)
		go func(addr string) {
			defer n.wg.Done()
			n.finish(n.send(addr, body, state))
		}(addr)
	}
	return len(addrs)
}

// Wait blocks until all sends started so far have completed.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// WaitTimeout waits for in-flight sends for at most d and reports whether
// they all finished.
func (n *Notifier) WaitTimeout(d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}

func (n *Notifier) send(addr string, body []byte, state device.State) Result {
	n.events.Log(log.Event{
		Timestamp:    time.Now(),
		Direction:    log.DirectionOut,
		Layer:        log.LayerNotify,
		Category:     log.CategoryMessage,
		RemoteAddr:   addr,
		DeviceTarget: n.config.Identity.Target(),
		Message: &log.MessageEvent{
			Method:  http.MethodPost,
			Target:  addr,
			Command: state.Command(),
		},
	})

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, addr, bytes.NewReader(body))
	if err != nil {
		return Result{Address: addr, Outcome: OutcomeFailed, Err: err}
	}
	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Length", strconv.Itoa(len(body)))

	resp, err := n.config.Client.Do(req)
	if err != nil {
		if n.config.IsExpected(err) {
			return Result{Address: addr, Outcome: OutcomeExpectedFailure, Err: err}
		}
		return Result{Address: addr, Outcome: OutcomeFailed, Err: err}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	return Result{Address: addr, Outcome: OutcomeUnexpectedResponse, StatusCode: resp.StatusCode}
}

func (n *Notifier) finish(res Result) {
	switch res.Outcome {
	case OutcomeExpectedFailure:
		n.logger.Debug("Response failed (expected)", "address", res.Address, "error", res.Err)
	case OutcomeUnexpectedResponse:
		n.logger.Error("Unexpected response code", "address", res.Address, "status", res.StatusCode)
	default:
		n.logger.Error("Unexpected response", "address", res.Address, "error", res.Err)
	}

	n.config.Metrics.Notification(res.Outcome.String())

	event := log.Event{
		Timestamp:    time.Now(),
		Direction:    log.DirectionIn,
		Layer:        log.LayerNotify,
		Category:     log.CategoryMessage,
		RemoteAddr:   res.Address,
		DeviceTarget: n.config.Identity.Target(),
		Message: &log.MessageEvent{
			Method:     http.MethodPost,
			Target:     res.Address,
			StatusCode: res.StatusCode,
			Result:     res.Outcome.String(),
		},
	}
	if res.Outcome == OutcomeFailed {
		event.Category = log.CategoryError
		event.Message = nil
		event.Error = &log.ErrorEventData{Message: errString(res.Err), Context: "notify " + res.Address}
	}
	n.events.Log(event)

	n.mu.RLock()
	fn := n.onResult
	n.mu.RUnlock()
	if fn != nil {
		fn(res)
	}
}

// IsConnectionClosed reports whether err means the peer closed or reset the
// connection before sending a response.
func IsConnectionClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
