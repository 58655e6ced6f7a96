package ssdp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"golang.org/x/net/ipv4"

	"github.com/rpi-garage/garage-go/pkg/device"
	"github.com/rpi-garage/garage-go/pkg/log"
	"github.com/rpi-garage/garage-go/pkg/metrics"
)

// Responder errors.
var (
	ErrInterfaceNotFound = errors.New("network interface not found")
)

// maxDatagram bounds a single read.
const maxDatagram = 8192

// PacketWriter sends a datagram. net.PacketConn satisfies it.
type PacketWriter interface {
	WriteTo(b []byte, addr net.Addr) (int, error)
}

// Config configures a Responder.
type Config struct {
	// Identity is the device identity announced in responses.
	Identity device.Identity

	// StatusPort is the port of the status endpoint placed in LOCATION.
	StatusPort int

	// Interface restricts the multicast membership to one interface, given
	// by name or by one of its addresses. Empty means the system default.
	Interface string

	// Group is the multicast group. Default: MulticastAddr.
	Group string

	// Port is the UDP port to bind. Default: Port.
	Port int

	// ServerID is the SERVER header. Default: DefaultServerID.
	ServerID string

	// LocalIP resolves the local address used to reach a requester.
	// Default: LocalIPFor.
	LocalIP func(remote net.IP) (net.IP, error)

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Events receives discovery traffic (optional).
	Events log.Logger

	// Metrics is optional.
	Metrics *metrics.Metrics
}

// DefaultConfig returns a configuration for the standard group and port.
func DefaultConfig() Config {
	return Config{
		Group:    MulticastAddr,
		Port:     Port,
		ServerID: DefaultServerID,
		LocalIP:  LocalIPFor,
	}
}

// Responder answers discovery searches.
type Responder struct {
	config Config
	logger *slog.Logger
	events log.Logger
}

// NewResponder creates a Responder. Zero fields take their defaults.
func NewResponder(config Config) *Responder {
	defaults := DefaultConfig()
	if config.Group == "" {
		config.Group = defaults.Group
	}
	if config.Port == 0 {
		config.Port = defaults.Port
	}
	if config.ServerID == "" {
		config.ServerID = defaults.ServerID
	}
	if config.LocalIP == nil {
		config.LocalIP = defaults.LocalIP
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Responder{
		config: config,
		logger: logger,
		events: log.OrNoop(config.Events),
	}
}

// ListenAndServe joins the multicast group and answers searches until ctx is
// cancelled. On return the group has been left and the socket closed.
func (r *Responder) ListenAndServe(ctx context.Context) error {
	group := net.ParseIP(r.config.Group)
	if group == nil {
		return fmt.Errorf("invalid multicast group %q", r.config.Group)
	}

	ifi, err := lookupInterface(r.config.Interface)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort("", strconv.Itoa(r.config.Port))
	conn, err := listenConfig().ListenPacket(ctx, "udp4", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	defer conn.Close()

	pconn := ipv4.NewPacketConn(conn)
	groupAddr := &net.UDPAddr{IP: group}
	if err := pconn.JoinGroup(ifi, groupAddr); err != nil {
		return fmt.Errorf("join group %s: %w", group, err)
	}
	defer func() {
		if err := pconn.LeaveGroup(ifi, groupAddr); err != nil {
			r.logger.Debug("Leave multicast group failed", "error", err)
		}
	}()

	r.logger.Info("Discovery responder listening",
		"group", r.config.Group,
		"port", r.config.Port,
		"target", r.config.Identity.Target())

	return r.Serve(ctx, conn)
}

// Serve reads datagrams from conn and answers them on the same socket. It
// returns nil once ctx is cancelled or conn is closed. Closing conn is left to
// the caller.
func (r *Responder) Serve(ctx context.Context, conn net.PacketConn) error {
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	buf := make([]byte, maxDatagram)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read datagram: %w", err)
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		r.Handle(conn, data, from)
	}
}

// Handle processes one datagram and, if it is a matching search, writes the
// response to from through w.
func (r *Responder) Handle(w PacketWriter, data []byte, from net.Addr) {
	req, err := ParseRequest(data)
	if err != nil {
		r.logger.Debug("Discarded discovery datagram", "from", from, "error", err)
		r.config.Metrics.Discovery("malformed")
		return
	}

	st := req.SearchTarget()
	if !Matches(req, r.config.Identity.Target()) {
		r.logger.Debug("Ignored discovery command", "method", req.Method, "target", req.Target, "st", st, "from", from)
		r.config.Metrics.Discovery("ignored")
		r.logMessage(log.DirectionIn, from, req, "ignored")
		return
	}

	r.logger.Info("Received search request", "method", req.Method, "target", req.Target, "st", st, "from", from)
	r.logMessage(log.DirectionIn, from, req, "matched")

	udp, ok := from.(*net.UDPAddr)
	if !ok {
		r.fail(from, "resolve requester", fmt.Errorf("unsupported address %T", from))
		return
	}
	local, err := r.config.LocalIP(udp.IP)
	if err != nil {
		r.fail(from, "resolve local address", err)
		return
	}

	location := StatusURL(local.String(), r.config.StatusPort)
	resp := BuildResponse(location, st, r.config.Identity, r.config.ServerID)
	if _, err := w.WriteTo(resp, from); err != nil {
		r.fail(from, "send response", err)
		return
	}

	r.config.Metrics.Discovery("matched")
	r.events.Log(log.Event{
		Timestamp:    time.Now(),
		Direction:    log.DirectionOut,
		Layer:        log.LayerDiscovery,
		Category:     log.CategoryMessage,
		RemoteAddr:   from.String(),
		DeviceTarget: r.config.Identity.Target(),
		Message: &log.MessageEvent{
			Method:       "200 OK",
			Target:       location,
			SearchTarget: st,
			StatusCode:   200,
		},
	})
}

func (r *Responder) logMessage(dir log.Direction, from net.Addr, req *Request, result string) {
	r.events.Log(log.Event{
		Timestamp:    time.Now(),
		Direction:    dir,
		Layer:        log.LayerDiscovery,
		Category:     log.CategoryMessage,
		RemoteAddr:   from.String(),
		DeviceTarget: r.config.Identity.Target(),
		Message: &log.MessageEvent{
			Method:       req.Method,
			Target:       req.Target,
			SearchTarget: req.SearchTarget(),
			Result:       result,
		},
	})
}

func (r *Responder) fail(from net.Addr, op string, err error) {
	r.logger.Warn("Discovery response failed", "op", op, "from", from, "error", err)
	r.config.Metrics.Discovery("error")
	r.events.Log(log.Event{
		Timestamp:    time.Now(),
		Direction:    log.DirectionOut,
		Layer:        log.LayerDiscovery,
		Category:     log.CategoryError,
		RemoteAddr:   from.String(),
		DeviceTarget: r.config.Identity.Target(),
		Error:        &log.ErrorEventData{Message: err.Error(), Context: op},
	})
}

// lookupInterface resolves an interface by name or by one of its addresses.
func lookupInterface(name string) (*net.Interface, error) {
	if name == "" {
		return nil, nil
	}

	ip := net.ParseIP(name)
	if ip == nil {
		ifi, err := net.InterfaceByName(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInterfaceNotFound, name)
		}
		return ifi, nil
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}
	for i := range ifaces {
		addrs, err := ifaces[i].Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok && ipnet.IP.Equal(ip) {
				return &ifaces[i], nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrInterfaceNotFound, name)
}
