package relay_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duochat/internal/app/relay"
	"duochat/internal/pkg/errs"
)

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

func TestBlockUnblockRoundTrip(t *testing.T) {
	env := newTestEnv()
	gate := env.gateway.Blocks()
	ctx := testContext(t)

	require.Nil(t, gate.Block(ctx, "alice", "bob"))

	blocked, err := gate.IsBlocked(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, blocked)

	// The relation is directional.
	blocked, err = gate.IsBlocked(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.False(t, blocked)

	// Re-blocking is idempotent.
	require.Nil(t, gate.Block(ctx, "alice", "bob"))

	require.Nil(t, gate.Unblock(ctx, "alice", "bob"))
	blocked, err = gate.IsBlocked(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, blocked)

	// Unblocking a relation that does not exist succeeds.
	require.Nil(t, gate.Unblock(ctx, "alice", "bob"))
}

func TestBlockValidation(t *testing.T) {
	env := newTestEnv()
	gate := env.gateway.Blocks()
	ctx := testContext(t)

	customErr := gate.Block(ctx, "", "bob")
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrInvalidParams, customErr.Code)

	customErr = gate.Block(ctx, "alice", "alice")
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrInvalidParams, customErr.Code)

	_, customErr = gate.ListBlockedBy(ctx, "")
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrInvalidParams, customErr.Code)
}

func TestBlockNotifiesOnlyAffectedParties(t *testing.T) {
	env := newTestEnv()
	alice := env.join(t, "alice")
	bob := env.join(t, "bob")
	charlie := env.join(t, "charlie")

	require.Nil(t, env.gateway.Blocks().Block(testContext(t), "alice", "bob"))

	for _, s := range []*fakeSession{alice, bob} {
		changed := s.eventsOfType(relay.TypeRelationChanged)
		require.Len(t, changed, 1)

		var payload relay.RelationChangedPayload
		require.NoError(t, json.Unmarshal(changed[0].Payload, &payload))
		assert.Equal(t, "alice", payload.Blocker)
		assert.Equal(t, "bob", payload.Blocked)
		assert.Equal(t, "block", payload.Action)
	}

	// Bystanders never see other users' relation changes.
	assert.Empty(t, charlie.eventsOfType(relay.TypeRelationChanged))
}

func TestUnblockNotification(t *testing.T) {
	env := newTestEnv()
	alice := env.join(t, "alice")

	ctx := testContext(t)
	require.Nil(t, env.gateway.Blocks().Block(ctx, "alice", "bob"))
	require.Nil(t, env.gateway.Blocks().Unblock(ctx, "alice", "bob"))

	changed := alice.eventsOfType(relay.TypeRelationChanged)
	require.Len(t, changed, 2)

	var payload relay.RelationChangedPayload
	require.NoError(t, json.Unmarshal(changed[1].Payload, &payload))
	assert.Equal(t, "unblock", payload.Action)
}

func TestListBlockedBy(t *testing.T) {
	env := newTestEnv()
	gate := env.gateway.Blocks()
	ctx := testContext(t)

	require.Nil(t, gate.Block(ctx, "alice", "bob"))
	require.Nil(t, gate.Block(ctx, "alice", "charlie"))
	require.Nil(t, gate.Block(ctx, "bob", "alice"))

	blocked, customErr := gate.ListBlockedBy(ctx, "alice")
	require.Nil(t, customErr)
	assert.ElementsMatch(t, []string{"bob", "charlie"}, blocked)
}
