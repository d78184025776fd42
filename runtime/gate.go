package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"minimessenger/errors"
	"minimessenger/repositories"
)

// FriendshipGate decides whether sender may message recipient.
// Both records are re-read on every call: a friendship added or removed
// a moment ago is honoured by the very next message.
type FriendshipGate struct {
	users repositories.IUserRepository
	log   *slog.Logger
}

func NewFriendshipGate(log *slog.Logger, users repositories.IUserRepository) *FriendshipGate {
	return &FriendshipGate{users: users, log: log}
}

// CanDeliver is true only when each user lists the other as a friend.
// A missing user yields false with ErrUserNotFound. A friendship recorded
// on one side only is logged as a symmetry violation and yields false.
func (g *FriendshipGate) CanDeliver(ctx context.Context, sender, recipient string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	from, err := g.users.GetUserByUsername(sender)
	if err != nil {
		return false, fmt.Errorf("sender %q: %w", sender, err)
	}
	to, err := g.users.GetUserByUsername(recipient)
	if err != nil {
		return false, fmt.Errorf("recipient %q: %w", recipient, err)
	}

	forward, backward := from.HasFriend(recipient), to.HasFriend(sender)
	if forward != backward {
		g.log.Warn("Friendship symmetry violation",
			"sender", sender,
			"recipient", recipient,
			"sender_lists_recipient", forward,
			"recipient_lists_sender", backward,
			"error", errors.ErrAsymmetricFriendship)
	}
	return forward && backward, nil
}
