package audit

import (
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileTrail writes onboarding events to a file in CBOR format.
// It is safe for concurrent use from multiple goroutines.
type FileTrail struct {
	file    *os.File
	encoder *cbor.Encoder
	mu      sync.Mutex
	closed  bool
}

// NewFileTrail creates a FileTrail that writes to the specified path.
// If the file exists, new events are appended. The file is created with
// permissions 0644 if it doesn't exist.
func NewFileTrail(path string) (*FileTrail, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &FileTrail{
		file:    f,
		encoder: NewEncoder(f),
	}, nil
}

// Record writes an event to the trail file.
// This method is safe for concurrent use.
func (t *FileTrail) Record(event Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}

	// Ignore encoding errors - auditing must not disrupt onboarding
	_ = t.encoder.Encode(event)
}

// Close closes the trail file.
// It is safe to call Close multiple times.
// After Close is called, subsequent Record calls are silently ignored.
func (t *FileTrail) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}

	t.closed = true
	return t.file.Close()
}

// Compile-time interface satisfaction check.
var _ Trail = (*FileTrail)(nil)
