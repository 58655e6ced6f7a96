package ssdp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpi-garage/garage-go/pkg/device"
)

func search(st string) []byte {
	msg := "M-SEARCH * HTTP/1.1\r\n" +
		"HOST: 239.255.255.250:1900\r\n" +
		"MAN: \"ssdp:discover\"\r\n" +
		"MX: 3\r\n"
	if st != "" {
		msg += "ST: " + st + "\r\n"
	}
	return []byte(msg + "\r\n")
}

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest(search("urn:schemas-upnp-org:device:RPi_Garage_Monitor:1"))
	require.NoError(t, err)

	assert.Equal(t, "M-SEARCH", req.Method)
	assert.Equal(t, "*", req.Target)
	assert.Equal(t, "urn:schemas-upnp-org:device:RPi_Garage_Monitor:1", req.SearchTarget())
	assert.Equal(t, "239.255.255.250:1900", req.Header("Host"))
	assert.Equal(t, `"ssdp:discover"`, req.Header("man"))
}

func TestParseRequestHeaderForms(t *testing.T) {
	data := []byte("M-SEARCH * HTTP/1.1\r\nst:no-space\r\nX-Weird\r\n\r\nMX: 1\r\n")
	req, err := ParseRequest(data)
	require.NoError(t, err)

	assert.Equal(t, "no-space", req.SearchTarget())
	assert.Len(t, req.Headers, 1, "line without colon is skipped")
	assert.Empty(t, req.Header("mx"), "headers after the blank line are ignored")
}

func TestParseRequestMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"no terminator", "M-SEARCH * HTTP/1.1\r\nST: x\r\n"},
		{"single field", "M-SEARCH\r\nST: x\r\n\r\n"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRequest([]byte(tt.data))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestMatches(t *testing.T) {
	target := device.DefaultIdentity(1).Target()

	tests := []struct {
		name string
		data string
		want bool
	}{
		{"exact target", string(search(target)), true},
		{"prefix of target", string(search("urn:schemas-upnp-org:device:RPi_Garage_Monitor")), true},
		{"no st header", string(search("")), true},
		{"other device", string(search("urn:schemas-upnp-org:device:RPi_Garage_Monitor:2")), false},
		{"ssdp all", string(search("ssdp:all")), false},
		{"root device", string(search("upnp:rootdevice")), false},
		{"notify method", "NOTIFY * HTTP/1.1\r\nST: " + target + "\r\n\r\n", false},
		{"non-wildcard target", "M-SEARCH /status HTTP/1.1\r\nST: " + target + "\r\n\r\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseRequest([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, Matches(req, target))
		})
	}

	assert.False(t, Matches(nil, target))
}

func TestBuildResponseFormat(t *testing.T) {
	id := device.DefaultIdentity(1)
	resp := BuildResponse("http://192.168.1.20:8080/status", id.Target(), id, "")

	want := "HTTP/1.1 200 OK\r\n" +
		"CACHE-CONTROL:max-age=30\r\n" +
		"EXT:\r\n" +
		"LOCATION:http://192.168.1.20:8080/status\r\n" +
		"SERVER:Linux, UPnP/1.0, Pi_Garage/1.0\r\n" +
		"ST:urn:schemas-upnp-org:device:RPi_Garage_Monitor:1\r\n" +
		"USN:uuid:d1c58eb4-9220-11e4-96fa-123b93f75cba::urn:schemas-upnp-org:device:RPi_Garage_Monitor:1"
	assert.Equal(t, want, string(resp))
	assert.False(t, strings.HasSuffix(string(resp), "\r\n"))
}

func TestResponseRoundTrip(t *testing.T) {
	id := device.DefaultIdentity(3)
	st := "urn:schemas-upnp-org:device:RPi_Garage_Monitor:3"

	resp, err := ParseResponse(BuildResponse(StatusURL("10.0.0.7", 9090), st, id, ""))
	require.NoError(t, err)

	assert.Equal(t, "HTTP/1.1", resp.Proto)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "OK", resp.Status)
	assert.Equal(t, st, resp.SearchTarget())
	assert.Equal(t, id.USN(), resp.USN())
	assert.Equal(t, "http://10.0.0.7:9090/status", resp.Location())
	assert.Equal(t, "", resp.Header("ext"))
	assert.Equal(t, DefaultServerID, resp.Header("server"))
}

func TestParseResponseMalformed(t *testing.T) {
	_, err := ParseResponse([]byte("garbage"))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = ParseResponse([]byte("HTTP/1.1 abc OK"))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestStatusURL(t *testing.T) {
	assert.Equal(t, "http://192.168.0.2:8080/status", StatusURL("192.168.0.2", 8080))
	assert.Equal(t, "http://[fe80::1]:8080/status", StatusURL("fe80::1", 8080))
}
