package audit

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// trailEncMode is the CBOR encoder mode for trail events.
// Deterministic encoding with nanosecond-precision timestamps.
var trailEncMode cbor.EncMode

// trailDecMode is the CBOR decoder mode for trail events.
var trailDecMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	trailEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create trail CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	trailDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create trail CBOR decoder mode: %v", err))
	}
}

// EncodeEvent encodes an Event to CBOR bytes.
func EncodeEvent(event Event) ([]byte, error) {
	return trailEncMode.Marshal(event)
}

// DecodeEvent decodes CBOR bytes into an Event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := trailDecMode.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

// NewEncoder creates a CBOR encoder for trail events that writes to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return trailEncMode.NewEncoder(w)
}

// NewDecoder creates a CBOR decoder for trail events that reads from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return trailDecMode.NewDecoder(r)
}
