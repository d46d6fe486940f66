package audit

import (
	"time"
)

// Event is one onboarding lifecycle event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// AttemptID uniquely identifies the onboarding attempt (UUID).
	AttemptID string `cbor:"2,keyasint"`

	// Kind classifies the event.
	Kind Kind `cbor:"3,keyasint"`

	// Step is the input step the attempt was on ("user" or
	// "zeroconf_confirm").
	Step string `cbor:"4,keyasint,omitempty"`

	// Host is the charger address the attempt targeted.
	Host string `cbor:"5,keyasint,omitempty"`

	// SerialNumber is the charger identity (populated once known).
	SerialNumber string `cbor:"6,keyasint,omitempty"`

	// ErrorCode is the recoverable error token ("cannot_connect",
	// "invalid_auth", "unknown").
	ErrorCode string `cbor:"7,keyasint,omitempty"`

	// AbortReason is the terminal abort token ("already_configured",
	// "no_serial_number").
	AbortReason string `cbor:"8,keyasint,omitempty"`
}

// Kind classifies an onboarding event.
type Kind uint8

const (
	// KindStarted indicates an attempt began.
	KindStarted Kind = 0
	// KindAuthFailed indicates a recoverable authentication failure.
	KindAuthFailed Kind = 1
	// KindCompleted indicates the attempt committed a registration.
	KindCompleted Kind = 2
	// KindAborted indicates the attempt ended without a registration.
	KindAborted Kind = 3
	// KindAbandoned indicates the user or an expiry timer gave up.
	KindAbandoned Kind = 4
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindStarted:
		return "STARTED"
	case KindAuthFailed:
		return "AUTH_FAILED"
	case KindCompleted:
		return "COMPLETED"
	case KindAborted:
		return "ABORTED"
	case KindAbandoned:
		return "ABANDONED"
	default:
		return "UNKNOWN"
	}
}

// Trail is the interface applications implement to receive onboarding
// events. Pass nil or NoopTrail to disable auditing.
type Trail interface {
	// Record captures one event. Implementations must be thread-safe.
	Record(event Event)
}

// NoopTrail discards all events. Safe for concurrent use as a zero value.
type NoopTrail struct{}

// Record discards the event.
func (NoopTrail) Record(Event) {}

var _ Trail = NoopTrail{}

// MultiTrail sends events to multiple trails, for example a console trail
// plus a file trail.
type MultiTrail struct {
	trails []Trail
}

// NewMultiTrail creates a MultiTrail over the given trails.
func NewMultiTrail(trails ...Trail) *MultiTrail {
	return &MultiTrail{trails: trails}
}

// Record sends the event to all configured trails.
func (m *MultiTrail) Record(event Event) {
	for _, t := range m.trails {
		t.Record(event)
	}
}

var _ Trail = (*MultiTrail)(nil)
