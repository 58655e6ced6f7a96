package log

import (
	"strings"
	"time"
)

// Event is a protocol event captured by any component.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred.
	Timestamp time.Time `cbor:"1,keyasint"`

	// Direction of the traffic, relative to this device.
	Direction Direction `cbor:"2,keyasint"`

	// Layer that captured the event.
	Layer Layer `cbor:"3,keyasint"`

	// Category classifies the event.
	Category Category `cbor:"4,keyasint"`

	// RemoteAddr is the peer address (host:port or URL).
	RemoteAddr string `cbor:"5,keyasint,omitempty"`

	// DeviceTarget is the device-target string of the emitting device.
	DeviceTarget string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Message     *MessageEvent     `cbor:"10,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"11,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"12,keyasint,omitempty"`
}

// Direction indicates traffic flow.
type Direction uint8

const (
	// DirectionIn is traffic received by the device.
	DirectionIn Direction = 0
	// DirectionOut is traffic sent by the device.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which component captured the event.
type Layer uint8

const (
	// LayerDiscovery is the multicast discovery responder.
	LayerDiscovery Layer = 0
	// LayerHTTP is the status endpoint.
	LayerHTTP Layer = 1
	// LayerNotify is the outbound notifier.
	LayerNotify Layer = 2
	// LayerSensor is the state monitor.
	LayerSensor Layer = 3
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerDiscovery:
		return "DISCOVERY"
	case LayerHTTP:
		return "HTTP"
	case LayerNotify:
		return "NOTIFY"
	case LayerSensor:
		return "SENSOR"
	default:
		return "UNKNOWN"
	}
}

// ParseLayer returns the layer for a case-insensitive name.
func ParseLayer(s string) (Layer, bool) {
	for _, l := range []Layer{LayerDiscovery, LayerHTTP, LayerNotify, LayerSensor} {
		if strings.EqualFold(l.String(), s) {
			return l, true
		}
	}
	return 0, false
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage is a protocol message.
	CategoryMessage Category = 0
	// CategoryState is a door state change.
	CategoryState Category = 1
	// CategoryError is a failure at any layer.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// MessageEvent describes a protocol message.
type MessageEvent struct {
	// Method is the request method (M-SEARCH, GET, SUBSCRIBE, POST).
	Method string `cbor:"1,keyasint"`

	// Target is the request target (path, "*" or callback URL).
	Target string `cbor:"2,keyasint,omitempty"`

	// SearchTarget is the ST header of discovery traffic.
	SearchTarget string `cbor:"3,keyasint,omitempty"`

	// Command is the status command carried in the body.
	Command string `cbor:"4,keyasint,omitempty"`

	// StatusCode is the HTTP status of a response, if one was seen.
	StatusCode int `cbor:"5,keyasint,omitempty"`

	// Result is a short outcome label (matched, ignored, added, expected, ...).
	Result string `cbor:"6,keyasint,omitempty"`
}

// StateChangeEvent captures a door state transition.
type StateChangeEvent struct {
	OldState string `cbor:"1,keyasint,omitempty"`
	NewState string `cbor:"2,keyasint"`
}

// ErrorEventData captures a failure.
type ErrorEventData struct {
	// Message is the error text.
	Message string `cbor:"1,keyasint"`

	// Context describes the operation that failed.
	Context string `cbor:"2,keyasint,omitempty"`
}
