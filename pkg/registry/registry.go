package registry

import (
	"errors"
	"time"
)

// Registry errors.
var (
	ErrDuplicate   = errors.New("serial number already registered")
	ErrEmptySerial = errors.New("record has empty serial number")
)

// Record is a durable registration binding a charger identity to the hub.
// Records are created exactly once per serial number and never mutated by
// the onboarding flow.
type Record struct {
	// SerialNumber is the unique registration key.
	SerialNumber string `json:"serial_number"`

	// Host is the address the charger was onboarded at. The driver layer
	// may re-resolve it later; it is not part of the identity.
	Host string `json:"host"`

	// Port is the charger service port, zero for the well-known default.
	Port uint16 `json:"port,omitempty"`

	// Capabilities are the capability flags reported at onboarding time.
	Capabilities []string `json:"capabilities,omitempty"`

	// CredentialRef is an opaque reference to the stored credential.
	// It is derived from the password and never reveals it.
	CredentialRef string `json:"credential_ref"`

	// AddedAt is when the registration was committed.
	AddedAt time.Time `json:"added_at"`
}

// Validate checks that the record is storable.
func (r *Record) Validate() error {
	if r.SerialNumber == "" {
		return ErrEmptySerial
	}
	return nil
}

// Store is the durable registration store consumed by onboarding.
//
// Put must provide the per-serial critical section: of two concurrent Put
// calls for the same serial number, exactly one succeeds and the other
// returns ErrDuplicate.
type Store interface {
	// Exists reports whether a registration for the serial number exists.
	Exists(serialNumber string) (bool, error)

	// Put commits a new registration. Returns ErrDuplicate if one already
	// exists for the record's serial number.
	Put(record Record) error
}
