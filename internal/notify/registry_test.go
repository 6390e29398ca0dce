package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	ep := &fakeEndpoint{}
	r.Register(7, ep)

	got, ok := r.Lookup(7)
	require.True(t, ok)
	assert.Same(t, ep, got.(*fakeEndpoint))
	assert.Equal(t, 1, r.Online())

	_, ok = r.Lookup(8)
	assert.False(t, ok)
}

func TestRegistryLastConnectionWins(t *testing.T) {
	r := NewRegistry()
	old, fresh := &fakeEndpoint{}, &fakeEndpoint{}
	r.Register(7, old)
	r.Register(7, fresh)

	got, ok := r.Lookup(7)
	require.True(t, ok)
	assert.Same(t, fresh, got.(*fakeEndpoint))
	assert.Equal(t, 1, r.Online())
}

func TestRegistryUnregisterIgnoresStaleEndpoint(t *testing.T) {
	r := NewRegistry()
	old, fresh := &fakeEndpoint{}, &fakeEndpoint{}
	r.Register(7, old)
	r.Register(7, fresh)

	// The old connection's teardown must not evict the new session.
	r.Unregister(7, old)
	got, ok := r.Lookup(7)
	require.True(t, ok)
	assert.Same(t, fresh, got.(*fakeEndpoint))

	r.Unregister(7, fresh)
	_, ok = r.Lookup(7)
	assert.False(t, ok)
}

func TestRegistryUnregisterNilEvicts(t *testing.T) {
	r := NewRegistry()
	r.Register(7, &fakeEndpoint{})

	r.Unregister(7, nil)
	_, ok := r.Lookup(7)
	assert.False(t, ok)
	assert.Zero(t, r.Online())
}
