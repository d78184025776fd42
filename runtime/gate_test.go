package runtime

import (
	"context"
	"minimessenger/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFriendshipGate_Requires_Both_Directions(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, "alice", "bob")
	gate := NewFriendshipGate(testLog, f.users)

	// Strangers
	ok, err := gate.CanDeliver(ctx, "alice", "bob")
	req.NoError(err)
	req.False(ok)

	// One side only, as a half-applied legacy mutation would leave it
	req.NoError(f.users.AddFriend("alice", "bob"))
	ok, err = gate.CanDeliver(ctx, "alice", "bob")
	req.NoError(err)
	req.False(ok)
	ok, err = gate.CanDeliver(ctx, "bob", "alice")
	req.NoError(err)
	req.False(ok)

	// Both sides
	req.NoError(f.users.AddFriend("bob", "alice"))
	ok, err = gate.CanDeliver(ctx, "alice", "bob")
	req.NoError(err)
	req.True(ok)

	// Removal is visible on the very next check
	req.NoError(f.users.RemoveFriendship("alice", "bob"))
	ok, err = gate.CanDeliver(ctx, "bob", "alice")
	req.NoError(err)
	req.False(ok)
}

func TestFriendshipGate_Unknown_User(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, "alice")
	gate := NewFriendshipGate(testLog, f.users)

	ok, err := gate.CanDeliver(context.Background(), "alice", "ghost")
	req.False(ok)
	req.ErrorIs(err, errors.ErrUserNotFound)

	ok, err = gate.CanDeliver(context.Background(), "ghost", "alice")
	req.False(ok)
	req.ErrorIs(err, errors.ErrUserNotFound)
}

func TestFriendshipGate_Canceled_Context(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	f.befriend(t, "alice", "bob")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, err := NewFriendshipGate(testLog, f.users).CanDeliver(ctx, "alice", "bob")
	require.False(t, ok)
	require.ErrorIs(t, err, context.Canceled)
}
