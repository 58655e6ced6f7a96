// Package status serves the HTTP side of the garage monitor: the polling
// route, the SUBSCRIBE verb used by hubs to register a callback, and the
// metrics exposition.
package status

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/rpi-garage/garage-go/pkg/device"
	"github.com/rpi-garage/garage-go/pkg/log"
	"github.com/rpi-garage/garage-go/pkg/metrics"
	"github.com/rpi-garage/garage-go/pkg/subscription"
)

// MethodSubscribe is the request method hubs use to subscribe.
const MethodSubscribe = "SUBSCRIBE"

// HeaderCallback carries the bracketed callback URL of a SUBSCRIBE request.
const HeaderCallback = "Callback"

// Config configures a Server.
type Config struct {
	Identity device.Identity
	Cell     *device.Cell
	Registry *subscription.Registry

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Events receives HTTP traffic (optional).
	Events log.Logger

	// Metrics is optional. When set, GET /metrics exposes it.
	Metrics *metrics.Metrics
}

// Server is the status endpoint.
type Server struct {
	config Config
	logger *slog.Logger
	events log.Logger
	echo   *echo.Echo
}

// New creates a Server and registers its routes.
func New(config Config) (*Server, error) {
	if config.Cell == nil {
		return nil, errors.New("status: state cell is required")
	}
	if config.Registry == nil {
		return nil, errors.New("status: subscription registry is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: config,
		logger: logger,
		events: log.OrNoop(config.Events),
		echo:   echo.New(),
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	e.GET("/status", s.handleStatus)
	if config.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(config.Metrics.Handler()))
	}
	e.GET("/", s.handleBogus)
	e.GET("/*", s.handleBogus)
	e.Add(MethodSubscribe, "/", s.handleSubscribe)
	e.Add(MethodSubscribe, "/*", s.handleSubscribe)

	return s, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr and serves until Shutdown. It returns nil after a
// clean shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("Status endpoint listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the listener and waits for active requests up to ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) statusBody() (device.State, []byte) {
	state := s.config.Cell.Load()
	return state, device.StatusMessage(state, s.config.Identity)
}

func (s *Server) handleStatus(c echo.Context) error {
	state, body := s.statusBody()
	req := c.Request()

	s.logger.Info("Polling request",
		"from", c.RealIP(),
		"path", req.URL.Path,
		"cmd", state.Command())
	s.config.Metrics.Request("status")
	s.logRequest(c, state.Command(), "status")

	return c.Blob(http.StatusOK, echo.MIMETextXMLCharsetUTF8, body)
}

func (s *Server) handleBogus(c echo.Context) error {
	s.logger.Info("Received bogus request", "from", c.RealIP(), "path", c.Request().URL.Path)
	s.config.Metrics.Request("bogus")
	s.logRequest(c, "", "bogus")

	return c.NoContent(http.StatusOK)
}

func (s *Server) handleSubscribe(c echo.Context) error {
	req := c.Request()
	s.logger.Debug("SUBSCRIBE", "from", c.RealIP(), "path", req.URL.Path, "headers", req.Header)
	s.config.Metrics.Request("subscribe")

	action := "none"
	if raw, ok := req.Header[HeaderCallback]; ok && len(raw) > 0 {
		callback := ParseCallback(raw[0])
		switch {
		case callback == "":
			s.logger.Debug("Ignored empty callback", "from", c.RealIP())
		case s.config.Registry.Subscribe(callback):
			action = "added"
			s.logger.Info("Added subscription", "callback", callback)
		default:
			action = "refreshed"
			s.logger.Info("Refreshed subscription", "callback", callback)
		}
	}
	s.config.Metrics.Subscribe(action)

	state, body := s.statusBody()
	s.logRequest(c, state.Command(), action)

	return c.Blob(http.StatusOK, echo.MIMETextXMLCharsetUTF8, body)
}

func (s *Server) logRequest(c echo.Context, cmd, result string) {
	req := c.Request()
	target := req.URL.Path
	if req.Method == MethodSubscribe {
		if cb := ParseCallback(req.Header.Get(HeaderCallback)); cb != "" {
			target = cb
		}
	}

	s.events.Log(log.Event{
		Timestamp:    time.Now(),
		Direction:    log.DirectionIn,
		Layer:        log.LayerHTTP,
		Category:     log.CategoryMessage,
		RemoteAddr:   req.RemoteAddr,
		DeviceTarget: s.config.Identity.Target(),
		Message: &log.MessageEvent{
			Method:     req.Method,
			Target:     target,
			Command:    cmd,
			StatusCode: http.StatusOK,
			Result:     result,
		},
	})
}

// ParseCallback strips the angle brackets around a Callback header value.
func ParseCallback(value string) string {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "<")
	value = strings.TrimSuffix(value, ">")
	return strings.TrimSpace(value)
}
