package onboarding_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltlink/voltlink-go/pkg/audit"
	"github.com/voltlink/voltlink-go/pkg/charger"
	"github.com/voltlink/voltlink-go/pkg/discovery"
	"github.com/voltlink/voltlink-go/pkg/onboarding"
	"github.com/voltlink/voltlink-go/pkg/registry"
)

// fakeAuthenticator scripts the device client's behavior for flow tests.
type fakeAuthenticator struct {
	mu       sync.Mutex
	identity *charger.Identity
	err      error
	calls    int
	lastHost string
	block    chan struct{} // if non-nil, Authenticate waits on it
}

func (f *fakeAuthenticator) Authenticate(ctx context.Context, candidate discovery.Candidate, credential *charger.Credential) (*charger.Identity, error) {
	f.mu.Lock()
	f.calls++
	f.lastHost = candidate.Host
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}

	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}

func (f *fakeAuthenticator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// failingStore wraps a store to inject registry faults.
type failingStore struct {
	registry.Store
	existsErr error
	putErr    error
}

func (s *failingStore) Exists(serial string) (bool, error) {
	if s.existsErr != nil {
		return false, s.existsErr
	}
	return s.Store.Exists(serial)
}

func (s *failingStore) Put(rec registry.Record) error {
	if s.putErr != nil {
		return s.putErr
	}
	return s.Store.Put(rec)
}

func newFlow(auth onboarding.Authenticator, store registry.Store) *onboarding.Flow {
	return onboarding.NewFlow(auth, store, onboarding.Config{})
}

func TestStartManualPath(t *testing.T) {
	flow := newFlow(&fakeAuthenticator{}, registry.NewMemoryRegistry())

	result, err := flow.Start(nil)
	require.NoError(t, err)

	assert.Equal(t, onboarding.StateAwaitingInput, result.State)
	assert.Equal(t, onboarding.StepUser, result.Step)
	assert.Equal(t, []onboarding.Field{onboarding.FieldHost, onboarding.FieldPassword}, result.Fields)
}

func TestStartDiscoveredPath(t *testing.T) {
	flow := newFlow(&fakeAuthenticator{}, registry.NewMemoryRegistry())

	cand := discovery.Candidate{Host: "192.168.1.51", Source: discovery.SourceDiscovered}
	result, err := flow.Start(&cand)
	require.NoError(t, err)

	assert.Equal(t, onboarding.StepZeroconfConfirm, result.Step)
	assert.Equal(t, []onboarding.Field{onboarding.FieldPassword}, result.Fields,
		"host is pre-filled and must not be re-requested")
}

func TestStartTwice(t *testing.T) {
	flow := newFlow(&fakeAuthenticator{}, registry.NewMemoryRegistry())

	_, err := flow.Start(nil)
	require.NoError(t, err)

	_, err = flow.Start(nil)
	assert.ErrorIs(t, err, onboarding.ErrAlreadyStarted)
}

// TestEmptyHostNeverAuthenticates: with an empty host the machine never
// enters Authenticating.
func TestEmptyHostNeverAuthenticates(t *testing.T) {
	auth := &fakeAuthenticator{}
	flow := newFlow(auth, registry.NewMemoryRegistry())

	_, err := flow.Start(nil)
	require.NoError(t, err)

	result, err := flow.Submit(context.Background(), onboarding.Input{Password: "secret"})
	assert.ErrorIs(t, err, onboarding.ErrIncompleteInput)
	assert.Equal(t, onboarding.StateAwaitingInput, result.State)
	assert.Equal(t, 0, auth.callCount(), "authenticator must not be invoked")
}

func TestEmptyPasswordNeverAuthenticates(t *testing.T) {
	auth := &fakeAuthenticator{}
	flow := newFlow(auth, registry.NewMemoryRegistry())

	_, err := flow.Start(nil)
	require.NoError(t, err)

	result, err := flow.Submit(context.Background(), onboarding.Input{Host: "192.168.1.50"})
	assert.ErrorIs(t, err, onboarding.ErrIncompleteInput)
	assert.Equal(t, onboarding.StateAwaitingInput, result.State)
	assert.Equal(t, 0, auth.callCount())
}

// TestConnectivityErrorRecoverable: a connectivity fault returns the flow
// to AwaitingInput with cannot_connect, and the attempt stays reusable.
func TestConnectivityErrorRecoverable(t *testing.T) {
	auth := &fakeAuthenticator{err: charger.ErrConnectivity}
	store := registry.NewMemoryRegistry()
	flow := newFlow(auth, store)

	_, err := flow.Start(nil)
	require.NoError(t, err)

	input := onboarding.Input{Host: "192.168.1.50", Password: "secret"}
	result, err := flow.Submit(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, onboarding.StateAwaitingInput, result.State)
	assert.Equal(t, onboarding.CodeCannotConnect, result.ErrorCode)
	assert.Equal(t, 0, store.Len())

	// Resubmission after the device becomes reachable completes the flow.
	auth.err = nil
	auth.identity = &charger.Identity{SerialNumber: "PBL123"}

	result, err = flow.Submit(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, onboarding.StateCompleted, result.State)
	assert.Equal(t, onboarding.CodeNone, result.ErrorCode, "stale error code must be cleared")
}

func TestAuthErrorRecoverable(t *testing.T) {
	auth := &fakeAuthenticator{err: charger.ErrAuth}
	flow := newFlow(auth, registry.NewMemoryRegistry())

	_, err := flow.Start(nil)
	require.NoError(t, err)

	result, err := flow.Submit(context.Background(), onboarding.Input{Host: "192.168.1.50", Password: "wrong"})
	require.NoError(t, err)

	assert.Equal(t, onboarding.StateAwaitingInput, result.State)
	assert.Equal(t, onboarding.CodeInvalidAuth, result.ErrorCode)
}

func TestUnclassifiedErrorIsUnknown(t *testing.T) {
	auth := &fakeAuthenticator{err: errors.New("something odd")}
	flow := newFlow(auth, registry.NewMemoryRegistry())

	_, err := flow.Start(nil)
	require.NoError(t, err)

	result, err := flow.Submit(context.Background(), onboarding.Input{Host: "192.168.1.50", Password: "secret"})
	require.NoError(t, err)

	assert.Equal(t, onboarding.StateAwaitingInput, result.State)
	assert.Equal(t, onboarding.CodeUnknown, result.ErrorCode)
}

// TestNoSerialNumberAborts: an authenticated device without a serial number
// aborts the attempt and the registry is never written.
func TestNoSerialNumberAborts(t *testing.T) {
	auth := &fakeAuthenticator{identity: &charger.Identity{SerialNumber: ""}}
	store := registry.NewMemoryRegistry()
	flow := newFlow(auth, store)

	_, err := flow.Start(nil)
	require.NoError(t, err)

	result, err := flow.Submit(context.Background(), onboarding.Input{Host: "192.168.1.50", Password: "secret"})
	require.NoError(t, err)

	assert.Equal(t, onboarding.StateAborted, result.State)
	assert.Equal(t, onboarding.ReasonNoSerialNumber, result.AbortReason)
	assert.Equal(t, 0, store.Len(), "registry must never be written")

	// Terminal: resubmission is rejected.
	_, err = flow.Submit(context.Background(), onboarding.Input{Host: "192.168.1.50", Password: "secret"})
	assert.ErrorIs(t, err, onboarding.ErrFlowTerminal)
}

// TestDuplicateAborts: an already-registered serial aborts the attempt and
// no second record is written.
func TestDuplicateAborts(t *testing.T) {
	store := registry.NewMemoryRegistry()
	require.NoError(t, store.Put(registry.Record{SerialNumber: "PBL123", Host: "192.168.1.40"}))

	auth := &fakeAuthenticator{identity: &charger.Identity{SerialNumber: "PBL123"}}
	flow := newFlow(auth, store)

	_, err := flow.Start(nil)
	require.NoError(t, err)

	result, err := flow.Submit(context.Background(), onboarding.Input{Host: "192.168.1.50", Password: "secret"})
	require.NoError(t, err)

	assert.Equal(t, onboarding.StateAborted, result.State)
	assert.Equal(t, onboarding.ReasonAlreadyConfigured, result.AbortReason)
	assert.Equal(t, 1, store.Len())

	rec, _ := store.Get("PBL123")
	assert.Equal(t, "192.168.1.40", rec.Host, "existing record must not be mutated")
}

func TestCompletedWritesRecord(t *testing.T) {
	auth := &fakeAuthenticator{identity: &charger.Identity{
		SerialNumber: "PBL123",
		Capabilities: []string{"charging"},
	}}
	store := registry.NewMemoryRegistry()
	flow := newFlow(auth, store)

	_, err := flow.Start(nil)
	require.NoError(t, err)

	result, err := flow.Submit(context.Background(), onboarding.Input{Host: "192.168.1.50", Password: "secret"})
	require.NoError(t, err)

	require.Equal(t, onboarding.StateCompleted, result.State)
	require.NotNil(t, result.Record)
	assert.Equal(t, "PBL123", result.Record.SerialNumber)
	assert.Equal(t, "192.168.1.50", result.Record.Host)
	assert.NotEmpty(t, result.Record.CredentialRef)
	assert.True(t, registry.VerifyCredentialRef(result.Record.CredentialRef, "secret", "PBL123"),
		"credential reference must be derived from the submitted password")

	exists, err := store.Exists("PBL123")
	require.NoError(t, err)
	assert.True(t, exists)
}

// TestZeroconfConfirmUsesCandidateHost: on the confirm step the discovered
// candidate supplies the address; submitted host fields are ignored.
func TestZeroconfConfirmUsesCandidateHost(t *testing.T) {
	auth := &fakeAuthenticator{identity: &charger.Identity{SerialNumber: "PBL123"}}
	store := registry.NewMemoryRegistry()
	flow := newFlow(auth, store)

	cand := discovery.Candidate{Host: "192.168.1.51", Port: 8743, Source: discovery.SourceDiscovered}
	_, err := flow.Start(&cand)
	require.NoError(t, err)

	result, err := flow.Submit(context.Background(), onboarding.Input{Host: "10.9.9.9", Password: "secret"})
	require.NoError(t, err)

	assert.Equal(t, onboarding.StateCompleted, result.State)
	assert.Equal(t, "192.168.1.51", auth.lastHost, "pre-filled host must be used")
	assert.Equal(t, "192.168.1.51", result.Record.Host)
}

func TestRegistryFaultDuringValidationAborts(t *testing.T) {
	auth := &fakeAuthenticator{identity: &charger.Identity{SerialNumber: "PBL123"}}
	store := &failingStore{Store: registry.NewMemoryRegistry(), existsErr: errors.New("store offline")}
	flow := newFlow(auth, store)

	_, err := flow.Start(nil)
	require.NoError(t, err)

	result, err := flow.Submit(context.Background(), onboarding.Input{Host: "192.168.1.50", Password: "secret"})
	require.NoError(t, err)

	assert.Equal(t, onboarding.StateAborted, result.State)
	assert.Equal(t, onboarding.CodeUnknown, result.ErrorCode)
}

// TestCommitFaultAborts: a failed registry write is terminal, reported as
// unknown - the flow does not retry persistence failures.
func TestCommitFaultAborts(t *testing.T) {
	auth := &fakeAuthenticator{identity: &charger.Identity{SerialNumber: "PBL123"}}
	store := &failingStore{Store: registry.NewMemoryRegistry(), putErr: errors.New("disk full")}
	flow := newFlow(auth, store)

	_, err := flow.Start(nil)
	require.NoError(t, err)

	result, err := flow.Submit(context.Background(), onboarding.Input{Host: "192.168.1.50", Password: "secret"})
	require.NoError(t, err)

	assert.Equal(t, onboarding.StateAborted, result.State)
	assert.Equal(t, onboarding.CodeUnknown, result.ErrorCode)
	assert.Equal(t, onboarding.ReasonNone, result.AbortReason)
}

// TestConcurrentSameSerial: two attempts resolving to the same serial -
// exactly one completes, the other aborts already_configured.
func TestConcurrentSameSerial(t *testing.T) {
	store := registry.NewMemoryRegistry()

	// Both authenticators block until released so the attempts overlap.
	release := make(chan struct{})
	authA := &fakeAuthenticator{identity: &charger.Identity{SerialNumber: "PBL123"}, block: release}
	authB := &fakeAuthenticator{identity: &charger.Identity{SerialNumber: "PBL123"}, block: release}

	flowA := newFlow(authA, store)
	flowB := newFlow(authB, store)
	_, err := flowA.Start(nil)
	require.NoError(t, err)
	_, err = flowB.Start(nil)
	require.NoError(t, err)

	input := onboarding.Input{Host: "192.168.1.50", Password: "secret"}
	results := make(chan onboarding.Result, 2)

	var wg sync.WaitGroup
	for _, flow := range []*onboarding.Flow{flowA, flowB} {
		wg.Add(1)
		go func(f *onboarding.Flow) {
			defer wg.Done()
			res, err := f.Submit(context.Background(), input)
			assert.NoError(t, err)
			results <- res
		}(flow)
	}

	close(release)
	wg.Wait()
	close(results)

	var completed, aborted int
	for res := range results {
		switch res.State {
		case onboarding.StateCompleted:
			completed++
		case onboarding.StateAborted:
			aborted++
			assert.Equal(t, onboarding.ReasonAlreadyConfigured, res.AbortReason)
		}
	}

	assert.Equal(t, 1, completed, "exactly one attempt must complete")
	assert.Equal(t, 1, aborted)
	assert.Equal(t, 1, store.Len())
}

// TestAbandonDuringAuthentication: an abandoned flow ends Aborted without
// touching the registry, even if the outstanding call later returns.
func TestAbandonDuringAuthentication(t *testing.T) {
	block := make(chan struct{})
	auth := &fakeAuthenticator{identity: &charger.Identity{SerialNumber: "PBL123"}, block: block}
	store := registry.NewMemoryRegistry()
	flow := newFlow(auth, store)

	_, err := flow.Start(nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := flow.Submit(context.Background(), onboarding.Input{Host: "192.168.1.50", Password: "secret"})
		done <- err
	}()

	// Wait for the attempt to reach Authenticating, then abandon it.
	for flow.State() != onboarding.StateAuthenticating {
		time.Sleep(time.Millisecond)
	}
	flow.Abandon()
	close(block)

	err = <-done
	assert.ErrorIs(t, err, onboarding.ErrFlowTerminal)
	assert.Equal(t, onboarding.StateAborted, flow.State())
	assert.Equal(t, 0, store.Len(), "abandonment must leave no durable state")
}

func TestAbandonAfterTerminalIsNoop(t *testing.T) {
	auth := &fakeAuthenticator{identity: &charger.Identity{SerialNumber: "PBL123"}}
	flow := newFlow(auth, registry.NewMemoryRegistry())

	_, err := flow.Start(nil)
	require.NoError(t, err)
	result, err := flow.Submit(context.Background(), onboarding.Input{Host: "192.168.1.50", Password: "secret"})
	require.NoError(t, err)
	require.Equal(t, onboarding.StateCompleted, result.State)

	flow.Abandon()
	assert.Equal(t, onboarding.StateCompleted, flow.State())
}

func TestSubmitBeforeStart(t *testing.T) {
	flow := newFlow(&fakeAuthenticator{}, registry.NewMemoryRegistry())

	_, err := flow.Submit(context.Background(), onboarding.Input{Host: "192.168.1.50", Password: "secret"})
	assert.ErrorIs(t, err, onboarding.ErrNotAwaitingInput)
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state onboarding.State
		want  string
	}{
		{onboarding.StateStart, "START"},
		{onboarding.StateAwaitingInput, "AWAITING_INPUT"},
		{onboarding.StateAuthenticating, "AUTHENTICATING"},
		{onboarding.StateValidating, "VALIDATING"},
		{onboarding.StateCommitting, "COMMITTING"},
		{onboarding.StateCompleted, "COMPLETED"},
		{onboarding.StateAborted, "ABORTED"},
		{onboarding.State(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

// captureTrail collects audit events for assertions.
type captureTrail struct {
	mu     sync.Mutex
	events []audit.Event
}

func (c *captureTrail) Record(event audit.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureTrail) kinds() []audit.Kind {
	c.mu.Lock()
	defer c.mu.Unlock()
	kinds := make([]audit.Kind, len(c.events))
	for i, e := range c.events {
		kinds[i] = e.Kind
	}
	return kinds
}

func TestFlowAuditTrail(t *testing.T) {
	trail := &captureTrail{}
	auth := &fakeAuthenticator{err: charger.ErrAuth}
	flow := onboarding.NewFlow(auth, registry.NewMemoryRegistry(), onboarding.Config{Audit: trail})

	_, err := flow.Start(nil)
	require.NoError(t, err)

	input := onboarding.Input{Host: "192.168.1.50", Password: "wrong"}
	_, err = flow.Submit(context.Background(), input)
	require.NoError(t, err)

	auth.err = nil
	auth.identity = &charger.Identity{SerialNumber: "PBL123"}
	input.Password = "right"
	_, err = flow.Submit(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, []audit.Kind{audit.KindStarted, audit.KindAuthFailed, audit.KindCompleted}, trail.kinds())

	last := trail.events[len(trail.events)-1]
	assert.Equal(t, flow.ID(), last.AttemptID)
	assert.Equal(t, "PBL123", last.SerialNumber)
	assert.Equal(t, "192.168.1.50", last.Host)
}

func TestFlowAuditAbandoned(t *testing.T) {
	trail := &captureTrail{}
	flow := onboarding.NewFlow(&fakeAuthenticator{}, registry.NewMemoryRegistry(), onboarding.Config{Audit: trail})

	_, err := flow.Start(nil)
	require.NoError(t, err)
	flow.Abandon()

	assert.Equal(t, []audit.Kind{audit.KindStarted, audit.KindAbandoned}, trail.kinds())
}

func TestRequiredFields(t *testing.T) {
	assert.Equal(t, []onboarding.Field{onboarding.FieldHost, onboarding.FieldPassword},
		onboarding.RequiredFields(onboarding.StepUser))
	assert.Equal(t, []onboarding.Field{onboarding.FieldPassword},
		onboarding.RequiredFields(onboarding.StepZeroconfConfirm))
}
