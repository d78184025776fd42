// Package admin holds the offline maintenance operations behind chatctl.
package admin

import (
	"log/slog"
	"minimessenger/domain"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Asymmetry is a friend entry recorded on one side only.
// Dangling is set when the friend does not exist at all.
type Asymmetry struct {
	Owner    string
	Friend   string
	Dangling bool
}

// FriendRepairer is satisfied by repositories.UserRepository.
type FriendRepairer interface {
	AddFriend(owner, friend string) error
}

// Audit lists every friend entry lacking its reverse direction,
// sorted by owner then friend.
func Audit(users []domain.User) []Asymmetry {
	byName := lo.KeyBy(users, func(u domain.User) string { return u.Username })
	var found []Asymmetry
	for _, user := range users {
		for _, friend := range user.Friends {
			other, ok := byName[friend]
			switch {
			case !ok:
				found = append(found, Asymmetry{Owner: user.Username, Friend: friend, Dangling: true})
			case !other.HasFriend(user.Username):
				found = append(found, Asymmetry{Owner: user.Username, Friend: friend})
			}
		}
	}
	slices.SortFunc(found, func(a, b Asymmetry) int {
		if c := strings.Compare(a.Owner, b.Owner); c != 0 {
			return c
		}
		return strings.Compare(a.Friend, b.Friend)
	})
	return found
}

// Repair writes the missing reverse direction of every asymmetry.
// Dangling entries are left alone. It returns how many were fixed.
func Repair(log *slog.Logger, users FriendRepairer, asymmetries []Asymmetry) (int, error) {
	fixed := 0
	for _, a := range asymmetries {
		if a.Dangling {
			log.Warn("Dangling friend entry left as is", "owner", a.Owner, "friend", a.Friend)
			continue
		}
		if err := users.AddFriend(a.Friend, a.Owner); err != nil {
			return fixed, err
		}
		log.Info("Friendship repaired", "owner", a.Owner, "friend", a.Friend)
		fixed++
	}
	return fixed, nil
}
