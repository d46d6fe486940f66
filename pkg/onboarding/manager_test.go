package onboarding_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltlink/voltlink-go/pkg/charger"
	"github.com/voltlink/voltlink-go/pkg/onboarding"
	"github.com/voltlink/voltlink-go/pkg/registry"
)

func TestManagerBeginAndFinish(t *testing.T) {
	mgr, err := onboarding.NewManager(&fakeAuthenticator{}, registry.NewMemoryRegistry(), onboarding.ManagerConfig{})
	require.NoError(t, err)

	flow, result, err := mgr.Begin(nil)
	require.NoError(t, err)
	assert.Equal(t, onboarding.StateAwaitingInput, result.State)
	assert.NotEmpty(t, flow.ID())
	assert.Equal(t, 1, mgr.Count())

	got, ok := mgr.Get(flow.ID())
	require.True(t, ok)
	assert.Same(t, flow, got)

	require.NoError(t, mgr.Finish(flow.ID()))
	assert.Equal(t, 0, mgr.Count())
	_, ok = mgr.Get(flow.ID())
	assert.False(t, ok)
}

func TestManagerFinishUnknown(t *testing.T) {
	mgr, err := onboarding.NewManager(&fakeAuthenticator{}, registry.NewMemoryRegistry(), onboarding.ManagerConfig{})
	require.NoError(t, err)

	assert.ErrorIs(t, mgr.Finish("nope"), onboarding.ErrFlowNotFound)
}

func TestManagerInvalidTTL(t *testing.T) {
	_, err := onboarding.NewManager(&fakeAuthenticator{}, registry.NewMemoryRegistry(),
		onboarding.ManagerConfig{TTL: time.Millisecond})
	assert.ErrorIs(t, err, onboarding.ErrInvalidTTL)

	_, err = onboarding.NewManager(&fakeAuthenticator{}, registry.NewMemoryRegistry(),
		onboarding.ManagerConfig{TTL: 48 * time.Hour})
	assert.ErrorIs(t, err, onboarding.ErrInvalidTTL)
}

// TestManagerExpiry: a flow idle past its TTL is abandoned and removed.
func TestManagerExpiry(t *testing.T) {
	mgr, err := onboarding.NewManager(&fakeAuthenticator{}, registry.NewMemoryRegistry(),
		onboarding.ManagerConfig{TTL: time.Second})
	require.NoError(t, err)

	expired := make(chan string, 1)
	mgr.OnExpiry(func(id string) { expired <- id })

	flow, _, err := mgr.Begin(nil)
	require.NoError(t, err)

	select {
	case id := <-expired:
		assert.Equal(t, flow.ID(), id)
	case <-time.After(5 * time.Second):
		t.Fatal("flow did not expire")
	}

	assert.Equal(t, onboarding.StateAborted, flow.State())
	assert.Equal(t, 0, mgr.Count())
}

// TestManagerFinishDisarmsExpiry: a finished flow must not be abandoned
// later by a stale timer.
func TestManagerFinishDisarmsExpiry(t *testing.T) {
	auth := &fakeAuthenticator{identity: &charger.Identity{SerialNumber: "PBL123"}}
	mgr, err := onboarding.NewManager(auth, registry.NewMemoryRegistry(),
		onboarding.ManagerConfig{TTL: time.Second})
	require.NoError(t, err)

	flow, _, err := mgr.Begin(nil)
	require.NoError(t, err)

	result, err := flow.Submit(context.Background(), onboarding.Input{Host: "192.168.1.50", Password: "secret"})
	require.NoError(t, err)
	require.Equal(t, onboarding.StateCompleted, result.State)
	require.NoError(t, mgr.Finish(flow.ID()))

	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, onboarding.StateCompleted, flow.State(), "stale timer must not touch a finished flow")
}

func TestManagerAbandonAll(t *testing.T) {
	mgr, err := onboarding.NewManager(&fakeAuthenticator{}, registry.NewMemoryRegistry(), onboarding.ManagerConfig{})
	require.NoError(t, err)

	first, _, err := mgr.Begin(nil)
	require.NoError(t, err)
	second, _, err := mgr.Begin(nil)
	require.NoError(t, err)
	require.Equal(t, 2, mgr.Count())

	mgr.AbandonAll()

	assert.Equal(t, 0, mgr.Count())
	assert.Equal(t, onboarding.StateAborted, first.State())
	assert.Equal(t, onboarding.StateAborted, second.State())
}
