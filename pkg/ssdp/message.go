package ssdp

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/rpi-garage/garage-go/pkg/device"
)

// Protocol constants.
const (
	// MulticastAddr is the discovery multicast group.
	MulticastAddr = "239.255.255.250"

	// Port is the discovery port.
	Port = 1900

	// MethodSearch is the discovery request method.
	MethodSearch = "M-SEARCH"

	// TargetAll is the only request target answered.
	TargetAll = "*"

	// DefaultServerID is the SERVER header sent in responses.
	DefaultServerID = "Linux, UPnP/1.0, Pi_Garage/1.0"

	// CacheControl is the CACHE-CONTROL header sent in responses.
	CacheControl = "max-age=30"
)

// Parse errors.
var (
	ErrMalformed = errors.New("malformed discovery message")
)

var headerTerminator = []byte("\r\n\r\n")

// Request is a parsed discovery request.
type Request struct {
	Method string
	Target string

	// Headers holds header values keyed by lowercased name.
	Headers map[string]string
}

// Header returns the value of a header, matched case-insensitively.
func (r *Request) Header(name string) string {
	return r.Headers[strings.ToLower(name)]
}

// SearchTarget returns the ST header, or "" when absent.
func (r *Request) SearchTarget() string {
	return r.Header("st")
}

// ParseRequest parses a discovery datagram. Only the part before the first
// blank line is considered.
func ParseRequest(data []byte) (*Request, error) {
	head, _, found := bytes.Cut(data, headerTerminator)
	if !found {
		return nil, fmt.Errorf("%w: missing header terminator", ErrMalformed)
	}

	lines := strings.Split(string(head), "\r\n")
	fields := strings.Split(lines[0], " ")
	if len(fields) < 2 {
		return nil, fmt.Errorf("%w: bad request line %q", ErrMalformed, lines[0])
	}

	return &Request{
		Method:  fields[0],
		Target:  fields[1],
		Headers: parseHeaders(lines[1:]),
	}, nil
}

// parseHeaders reads "Name:value" lines. A single space after the colon is
// dropped, names are lowercased, and lines without a colon are skipped.
func parseHeaders(lines []string) map[string]string {
	headers := make(map[string]string, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		headers[strings.ToLower(name)] = strings.TrimPrefix(value, " ")
	}
	return headers
}

// Matches reports whether req is a search this device should answer.
func Matches(req *Request, deviceTarget string) bool {
	if req == nil {
		return false
	}
	return req.Method == MethodSearch &&
		req.Target == TargetAll &&
		strings.Contains(deviceTarget, req.SearchTarget())
}

// StatusURL returns the status endpoint URL for an address and port.
func StatusURL(host string, port int) string {
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/status"
}

// BuildResponse builds the unicast search response. st echoes the request's
// search target. An empty server selects DefaultServerID.
func BuildResponse(location, st string, id device.Identity, server string) []byte {
	if server == "" {
		server = DefaultServerID
	}

	var b bytes.Buffer
	b.WriteString("HTTP/1.1 200 OK\r\n")
	b.WriteString("CACHE-CONTROL:" + CacheControl + "\r\n")
	b.WriteString("EXT:\r\n")
	b.WriteString("LOCATION:" + location + "\r\n")
	b.WriteString("SERVER:" + server + "\r\n")
	b.WriteString("ST:" + st + "\r\n")
	b.WriteString("USN:" + id.USN())
	return b.Bytes()
}

// Response is a parsed search response.
type Response struct {
	Proto      string
	StatusCode int
	Status     string

	// Headers holds header values keyed by lowercased name.
	Headers map[string]string
}

// Header returns the value of a header, matched case-insensitively.
func (r *Response) Header(name string) string {
	return r.Headers[strings.ToLower(name)]
}

// Location returns the LOCATION header.
func (r *Response) Location() string { return r.Header("location") }

// SearchTarget returns the ST header.
func (r *Response) SearchTarget() string { return r.Header("st") }

// USN returns the USN header.
func (r *Response) USN() string { return r.Header("usn") }

// ParseResponse parses a search response as a hub would. The trailing blank
// line is optional.
func ParseResponse(data []byte) (*Response, error) {
	head, _, _ := bytes.Cut(data, headerTerminator)
	lines := strings.Split(string(head), "\r\n")

	proto, rest, ok := strings.Cut(lines[0], " ")
	if !ok || !strings.HasPrefix(proto, "HTTP/") {
		return nil, fmt.Errorf("%w: bad status line %q", ErrMalformed, lines[0])
	}
	codeText, status, _ := strings.Cut(rest, " ")
	code, err := strconv.Atoi(codeText)
	if err != nil {
		return nil, fmt.Errorf("%w: bad status code %q", ErrMalformed, codeText)
	}

	return &Response{
		Proto:      proto,
		StatusCode: code,
		Status:     status,
		Headers:    parseHeaders(lines[1:]),
	}, nil
}
