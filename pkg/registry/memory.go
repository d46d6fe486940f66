package registry

import (
	"sync"
	"time"
)

// MemoryRegistry is an in-process registration store. A single mutex covers
// the check-then-insert in Put, so concurrent commits for the same serial
// number serialize and the loser observes ErrDuplicate.
type MemoryRegistry struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{records: make(map[string]Record)}
}

// Exists reports whether a registration for the serial number exists.
func (m *MemoryRegistry) Exists(serialNumber string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.records[serialNumber]
	return ok, nil
}

// Put commits a new registration.
func (m *MemoryRegistry) Put(record Record) error {
	if err := record.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[record.SerialNumber]; ok {
		return ErrDuplicate
	}

	if record.AddedAt.IsZero() {
		record.AddedAt = time.Now()
	}
	m.records[record.SerialNumber] = record
	return nil
}

// Get returns the registration for a serial number, if present.
func (m *MemoryRegistry) Get(serialNumber string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[serialNumber]
	return rec, ok
}

// Len returns the number of stored registrations.
func (m *MemoryRegistry) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Ensure MemoryRegistry implements Store.
var _ Store = (*MemoryRegistry)(nil)
