package onboarding

import (
	"errors"
	"sync"
	"time"

	"github.com/voltlink/voltlink-go/pkg/discovery"
	"github.com/voltlink/voltlink-go/pkg/registry"
)

// Manager errors.
var (
	ErrFlowNotFound = errors.New("flow not found")
	ErrInvalidTTL   = errors.New("invalid flow TTL")
)

// Flow TTL limits.
const (
	// DefaultFlowTTL is how long an attempt may sit idle before it is
	// abandoned automatically.
	DefaultFlowTTL = 15 * time.Minute

	// MinFlowTTL is the minimum allowed TTL.
	MinFlowTTL = 1 * time.Second

	// MaxFlowTTL is the maximum allowed TTL.
	MaxFlowTTL = 24 * time.Hour
)

// ManagerConfig configures a flow manager.
type ManagerConfig struct {
	// TTL is the attempt lifetime; an attempt still awaiting input after
	// this long is abandoned (default: 15 minutes).
	TTL time.Duration

	// Flow is applied to every flow the manager creates.
	Flow Config
}

// Manager tracks concurrently running onboarding attempts by ID and
// abandons attempts that outlive their TTL. Each flow gets one expiry
// timer, armed at Begin and disarmed at Finish; an expired flow moves to
// Aborted exactly as if the user had walked away.
type Manager struct {
	auth   Authenticator
	store  registry.Store
	config ManagerConfig

	mu    sync.Mutex
	flows map[string]*flowEntry

	// Callback when a flow expires
	onExpiry func(id string)
}

type flowEntry struct {
	flow  *Flow
	timer *time.Timer
}

// NewManager creates a flow manager over the given device client and
// registration store.
func NewManager(auth Authenticator, store registry.Store, config ManagerConfig) (*Manager, error) {
	if config.TTL == 0 {
		config.TTL = DefaultFlowTTL
	}
	if config.TTL < MinFlowTTL || config.TTL > MaxFlowTTL {
		return nil, ErrInvalidTTL
	}

	return &Manager{
		auth:   auth,
		store:  store,
		config: config,
		flows:  make(map[string]*flowEntry),
	}, nil
}

// Begin creates and starts a new flow. The attempt expires if it is still
// running after the manager's TTL.
func (m *Manager) Begin(candidate *discovery.Candidate) (*Flow, Result, error) {
	flow := NewFlow(m.auth, m.store, m.config.Flow)

	result, err := flow.Start(candidate)
	if err != nil {
		return nil, result, err
	}

	id := flow.ID()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.flows[id] = &flowEntry{
		flow:  flow,
		timer: time.AfterFunc(m.config.TTL, func() { m.expire(id) }),
	}
	return flow, result, nil
}

// Get returns the flow with the given ID.
func (m *Manager) Get(id string) (*Flow, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.flows[id]
	if !ok {
		return nil, false
	}
	return entry.flow, true
}

// Finish releases a flow once it has reached a terminal state, disarming
// its expiry timer. Finishing an unknown ID returns ErrFlowNotFound.
func (m *Manager) Finish(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.flows[id]
	if !ok {
		return ErrFlowNotFound
	}

	entry.timer.Stop()
	delete(m.flows, id)
	return nil
}

// Count returns the number of active flows.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.flows)
}

// AbandonAll abandons every active flow, for example on shutdown.
func (m *Manager) AbandonAll() {
	m.mu.Lock()
	entries := make([]*flowEntry, 0, len(m.flows))
	for _, entry := range m.flows {
		entry.timer.Stop()
		entries = append(entries, entry)
	}
	m.flows = make(map[string]*flowEntry)
	m.mu.Unlock()

	for _, entry := range entries {
		entry.flow.Abandon()
	}
}

// OnExpiry sets the callback invoked after a flow expires.
func (m *Manager) OnExpiry(fn func(id string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpiry = fn
}

// expire handles TTL expiry for one flow.
func (m *Manager) expire(id string) {
	m.mu.Lock()

	entry, ok := m.flows[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.flows, id)
	callback := m.onExpiry

	m.mu.Unlock()

	// Abandon and notify outside the lock
	entry.flow.Abandon()
	if callback != nil {
		callback(id)
	}
}
