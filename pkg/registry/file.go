package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileVersion is the current version of the registrations file format.
const FileVersion = 1

// fileState is the on-disk shape of the registry.
type fileState struct {
	// Version is the file format version.
	Version int `json:"version"`

	// SavedAt is when the file was last written.
	SavedAt time.Time `json:"saved_at"`

	// Records are the committed registrations.
	Records []Record `json:"records,omitempty"`
}

// FileRegistry stores registrations in a JSON file. A single mutex covers
// load-check-append-write in Put, which satisfies the per-serial critical
// section for every key at once; registration volume is a handful of
// devices, so coarse locking costs nothing.
type FileRegistry struct {
	mu   sync.Mutex
	path string
}

// NewFileRegistry creates a registry backed by the given file path.
// The file is created on first Put.
func NewFileRegistry(path string) *FileRegistry {
	return &FileRegistry{path: path}
}

// Exists reports whether a registration for the serial number exists.
func (f *FileRegistry) Exists(serialNumber string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, err := f.load()
	if err != nil {
		return false, err
	}

	for _, rec := range state.Records {
		if rec.SerialNumber == serialNumber {
			return true, nil
		}
	}
	return false, nil
}

// Put commits a new registration. The duplicate check is re-done under the
// lock so a concurrent attempt that won the race is detected here.
func (f *FileRegistry) Put(record Record) error {
	if err := record.Validate(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	state, err := f.load()
	if err != nil {
		return err
	}

	for _, rec := range state.Records {
		if rec.SerialNumber == record.SerialNumber {
			return ErrDuplicate
		}
	}

	if record.AddedAt.IsZero() {
		record.AddedAt = time.Now()
	}
	state.Records = append(state.Records, record)

	return f.save(state)
}

// Get returns the registration for a serial number, if present.
func (f *FileRegistry) Get(serialNumber string) (Record, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, err := f.load()
	if err != nil {
		return Record{}, false, err
	}

	for _, rec := range state.Records {
		if rec.SerialNumber == serialNumber {
			return rec, true, nil
		}
	}
	return Record{}, false, nil
}

// List returns all committed registrations.
func (f *FileRegistry) List() ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, err := f.load()
	if err != nil {
		return nil, err
	}
	return state.Records, nil
}

// load reads the registrations file. A missing file is an empty registry.
func (f *FileRegistry) load() (*fileState, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return &fileState{}, nil
	}
	if err != nil {
		return nil, err
	}

	state := &fileState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, err
	}
	return state, nil
}

// save writes the registrations file, creating parent directories.
func (f *FileRegistry) save(state *fileState) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	state.Version = FileVersion
	state.SavedAt = time.Now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(f.path, data, 0600)
}

// Ensure FileRegistry implements Store.
var _ Store = (*FileRegistry)(nil)
