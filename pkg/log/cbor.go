package log

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// A .glog file is a plain concatenation of CBOR maps, one per Event, keyed by
// the small integers in the Event struct tags. Encoding is canonical so the
// same event always produces the same bytes.
var eventEncMode, eventDecMode = eventModes()

func eventModes() (cbor.EncMode, cbor.DecMode) {
	enc, err := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("garage event log: encoder options: %v", err))
	}

	// Logs written by older builds may carry keys this build does not know.
	dec, err := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("garage event log: decoder options: %v", err))
	}
	return enc, dec
}

// EncodeEvent returns the .glog record for event.
func EncodeEvent(event Event) ([]byte, error) {
	return eventEncMode.Marshal(event)
}

// DecodeEvent parses a single .glog record.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := eventDecMode.Unmarshal(data, &event); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return event, nil
}

func newEventDecoder(r io.Reader) *cbor.Decoder {
	return eventDecMode.NewDecoder(r)
}
