package relay_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duochat/internal/app/relay"
)

func TestRegistryBindAndResolve(t *testing.T) {
	registry := relay.NewRegistry()
	conn := newFakeSession("")

	registry.Bind("alice@example.com", conn)

	resolved, ok := registry.Resolve("alice@example.com")
	require.True(t, ok)
	assert.Equal(t, conn.HandleID(), resolved.HandleID())
	assert.Equal(t, 1, registry.OnlineCount())

	_, ok = registry.Resolve("bob@example.com")
	assert.False(t, ok)
}

func TestRegistryBindReplacesExisting(t *testing.T) {
	registry := relay.NewRegistry()
	first := newFakeSession("")
	second := newFakeSession("")

	registry.Bind("alice@example.com", first)
	registry.Bind("alice@example.com", second)

	resolved, ok := registry.Resolve("alice@example.com")
	require.True(t, ok)
	assert.Equal(t, second.HandleID(), resolved.HandleID())
	assert.Equal(t, 1, registry.OnlineCount())

	// The replaced connection closing later must not evict the new binding.
	registry.Unbind(first)

	resolved, ok = registry.Resolve("alice@example.com")
	require.True(t, ok)
	assert.Equal(t, second.HandleID(), resolved.HandleID())
}

func TestRegistryUnbind(t *testing.T) {
	registry := relay.NewRegistry()
	conn := newFakeSession("")

	registry.Bind("alice@example.com", conn)
	registry.Unbind(conn)

	_, ok := registry.Resolve("alice@example.com")
	assert.False(t, ok)
	assert.Equal(t, 0, registry.OnlineCount())

	// Unbinding a connection that never bound is a no-op.
	registry.Unbind(newFakeSession(""))
	assert.Equal(t, 0, registry.OnlineCount())
}
