package status

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpi-garage/garage-go/pkg/device"
	"github.com/rpi-garage/garage-go/pkg/metrics"
	"github.com/rpi-garage/garage-go/pkg/subscription"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

type fixture struct {
	server   *httptest.Server
	cell     *device.Cell
	registry *subscription.Registry
	clock    *fakeClock
	metrics  *metrics.Metrics
	id       device.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	f := &fixture{
		cell:    device.NewCell(),
		clock:   clock,
		metrics: metrics.New(),
		id:      device.DefaultIdentity(1),
		registry: subscription.NewRegistryWithConfig(subscription.Config{
			TTL: subscription.DefaultTTL,
			Now: clock.Now,
		}),
	}

	s, err := New(Config{
		Identity: f.id,
		Cell:     f.cell,
		Registry: f.registry,
		Metrics:  f.metrics,
	})
	require.NoError(t, err)

	f.server = httptest.NewServer(s.Handler())
	t.Cleanup(f.server.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, header http.Header) (int, string) {
	t.Helper()

	req, err := http.NewRequest(method, f.server.URL+path, nil)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestNewRequiresCellAndRegistry(t *testing.T) {
	_, err := New(Config{Registry: subscription.NewRegistry()})
	assert.Error(t, err)

	_, err = New(Config{Cell: device.NewCell()})
	assert.Error(t, err)
}

func TestStatusReflectsCell(t *testing.T) {
	f := newFixture(t)

	_, _ = f.cell.Store(device.StateClosed)
	code, body := f.do(t, http.MethodGet, "/status", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, string(device.StatusMessage(device.StateClosed, f.id)), body)

	_, _ = f.cell.Store(device.StateOpen)
	_, body = f.do(t, http.MethodGet, "/status", nil)
	assert.Equal(t,
		"<msg><cmd>status-open</cmd><usn>uuid:d1c58eb4-9220-11e4-96fa-123b93f75cba::urn:schemas-upnp-org:device:RPi_Garage_Monitor:1</usn></msg>",
		body)

	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.HTTPRequests.WithLabelValues("status")))
}

func TestStatusUnknownReportsOpen(t *testing.T) {
	f := newFixture(t)

	_, body := f.do(t, http.MethodGet, "/status", nil)
	assert.Contains(t, body, "<cmd>status-open</cmd>")
}

func TestBogusPathsReturnEmptyOK(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/", "/index.html", "/status/extra", "/a/b/c"} {
		code, body := f.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, code, path)
		assert.Empty(t, body, path)
	}
	assert.Equal(t, 4.0, testutil.ToFloat64(f.metrics.HTTPRequests.WithLabelValues("bogus")))
}

func TestSubscribeAddsThenRefreshes(t *testing.T) {
	f := newFixture(t)
	_, _ = f.cell.Store(device.StateClosed)

	header := http.Header{"Callback": {"<http://192.168.1.50:39500/notify>"}}

	code, body := f.do(t, MethodSubscribe, "/status", header)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, string(device.StatusMessage(device.StateClosed, f.id)), body)

	exp, ok := f.registry.Expiration("http://192.168.1.50:39500/notify")
	require.True(t, ok)
	assert.Equal(t, f.clock.now.Add(subscription.DefaultTTL), exp)

	f.clock.now = f.clock.now.Add(time.Hour)
	_, _ = f.do(t, MethodSubscribe, "/anything", header)

	assert.Equal(t, 1, f.registry.Len())
	exp, _ = f.registry.Expiration("http://192.168.1.50:39500/notify")
	assert.Equal(t, f.clock.now.Add(subscription.DefaultTTL), exp)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Subscriptions.WithLabelValues("added")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Subscriptions.WithLabelValues("refreshed")))
}

func TestSubscribeWithoutCallback(t *testing.T) {
	f := newFixture(t)
	_, _ = f.cell.Store(device.StateOpen)

	code, body := f.do(t, MethodSubscribe, "/", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, string(device.StatusMessage(device.StateOpen, f.id)), body)
	assert.Equal(t, 0, f.registry.Len())

	_, _ = f.do(t, MethodSubscribe, "/", http.Header{"Callback": {"<>"}})
	assert.Equal(t, 0, f.registry.Len(), "empty callback is ignored")
}

func TestMetricsRoute(t *testing.T) {
	f := newFixture(t)
	_, _ = f.do(t, http.MethodGet, "/status", nil)

	code, body := f.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, strings.Contains(body, `garage_http_requests_total{route="status"} 1`))
}

func TestParseCallback(t *testing.T) {
	tests := map[string]string{
		"<http://10.0.0.2:39500/notify>":   "http://10.0.0.2:39500/notify",
		" <http://10.0.0.2:39500/notify> ": "http://10.0.0.2:39500/notify",
		"http://10.0.0.2/plain":            "http://10.0.0.2/plain",
		"<>":                               "",
		"":                                 "",
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseCallback(in), in)
	}
}

func TestStartAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	s, err := New(Config{Cell: device.NewCell(), Registry: subscription.NewRegistry()})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Start(addr) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/status")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}
