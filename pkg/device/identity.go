package device

import (
	"fmt"

	"github.com/google/uuid"
)

// DefaultUUID is the device UUID used when none is configured.
const DefaultUUID = "d1c58eb4-9220-11e4-96fa-123b93f75cba"

// TargetPrefix is the device-target string without the trailing index.
const TargetPrefix = "urn:schemas-upnp-org:device:RPi_Garage_Monitor:"

// Identity is the immutable (UUID, device target) pair that tags every
// protocol message.
type Identity struct {
	uuid   uuid.UUID
	index  int
	target string
}

// NewIdentity builds an identity for the given UUID and device index.
func NewIdentity(id uuid.UUID, index int) Identity {
	return Identity{
		uuid:   id,
		index:  index,
		target: fmt.Sprintf("%s%d", TargetPrefix, index),
	}
}

// ParseIdentity parses a textual UUID and builds an identity.
// An empty string selects DefaultUUID.
func ParseIdentity(s string, index int) (Identity, error) {
	if s == "" {
		s = DefaultUUID
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid device uuid %q: %w", s, err)
	}
	return NewIdentity(id, index), nil
}

// DefaultIdentity returns the identity for DefaultUUID and the given index.
func DefaultIdentity(index int) Identity {
	return NewIdentity(uuid.MustParse(DefaultUUID), index)
}

// UUID returns the device UUID.
func (i Identity) UUID() uuid.UUID { return i.uuid }

// Index returns the device index the target was built from.
func (i Identity) Index() int { return i.index }

// Target returns the device-target string.
func (i Identity) Target() string { return i.target }

// USN returns the unique service name: uuid:<uuid>::<target>.
func (i Identity) USN() string {
	return fmt.Sprintf("uuid:%s::%s", i.uuid, i.target)
}

// String implements fmt.Stringer.
func (i Identity) String() string { return i.USN() }
