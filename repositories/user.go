//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"fmt"
	"minimessenger/domain"
	"minimessenger/errors"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	userByIDPrefix   = "user:id:"
	userByNamePrefix = "user:name:"
	maxTxnAttempts   = 3
)

type IUserRepository interface {
	CreateUser(username, displayName, hashedPassword string, roles []string) (domain.User, error)
	GetUserByID(id string) (domain.User, error)
	GetUserByUsername(username string) (domain.User, error)
	SearchUsers(query string) ([]domain.User, error)
	ListUsers() ([]domain.User, error)
	AddFriendship(a, b string) error
	RemoveFriendship(a, b string) error
	AddFriend(owner, friend string) error
	ImportUser(user domain.User) (bool, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser persists a new user under two keys in one transaction:
// "user:id:{id}" holds the record and "user:name:{username}" points to the id.
func (u *UserRepository) CreateUser(username, displayName, hashedPassword string, roles []string) (domain.User, error) {
	user := domain.User{
		ID:           uuid.New().String(),
		Username:     username,
		DisplayName:  lo.Ternary(displayName == "", username, displayName),
		Friends:      []string{},
		Roles:        lo.Ternary(len(roles) == 0, []string{domain.RoleUser}, roles),
		PasswordHash: hashedPassword,
		CreatedAt:    time.Now().UTC(),
	}
	err := u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(nameKey(username)); err == nil {
			return errors.ErrUserAlreadyExists
		}
		return putUser(txn, user, true)
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// ImportUser inserts the user only if the username is free.
// It reports whether a record was written.
func (u *UserRepository) ImportUser(user domain.User) (bool, error) {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.DisplayName == "" {
		user.DisplayName = user.Username
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Friends = normalizeFriends(user.Friends)
	if len(user.Roles) == 0 {
		user.Roles = []string{domain.RoleUser}
	}

	inserted := false
	err := u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(nameKey(user.Username)); err == nil {
			return nil
		} else if !goerrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		inserted = true
		return putUser(txn, user, true)
	})
	return inserted, err
}

func (u *UserRepository) GetUserByID(id string) (domain.User, error) {
	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		var err error
		user, err = getByID(txn, id)
		return err
	})
	return user, err
}

func (u *UserRepository) GetUserByUsername(username string) (domain.User, error) {
	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		var err error
		user, err = getByUsername(txn, username)
		return err
	})
	return user, err
}

// SearchUsers matches the query as a case-insensitive substring of
// the username or the display name.
func (u *UserRepository) SearchUsers(query string) ([]domain.User, error) {
	users, err := u.ListUsers()
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	return lo.Filter(users, func(user domain.User, _ int) bool {
		return strings.Contains(strings.ToLower(user.Username), q) ||
			strings.Contains(strings.ToLower(user.DisplayName), q)
	}), nil
}

// ListUsers scans every user record, sorted by username.
func (u *UserRepository) ListUsers() ([]domain.User, error) {
	var users []domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		prefix := []byte(userByIDPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var user domain.User
				if err := json.Unmarshal(val, &user); err != nil {
					return err
				}
				users = append(users, user)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	slices.SortFunc(users, func(a, b domain.User) int { return strings.Compare(a.Username, b.Username) })
	return users, err
}

// AddFriendship records both directions of the friendship inside a single
// transaction, so the pair is either fully befriended or untouched.
func (u *UserRepository) AddFriendship(a, b string) error {
	if a == b {
		return errors.ErrSelfFriendship
	}
	return u.updateWithRetry(func(txn *badger.Txn) error {
		userA, userB, err := getPair(txn, a, b)
		if err != nil {
			return err
		}
		userA.Friends = normalizeFriends(append(userA.Friends, b))
		userB.Friends = normalizeFriends(append(userB.Friends, a))
		if err = putUser(txn, userA, false); err != nil {
			return err
		}
		return putUser(txn, userB, false)
	})
}

// RemoveFriendship drops both directions inside a single transaction.
// Message history between the pair is left untouched.
func (u *UserRepository) RemoveFriendship(a, b string) error {
	return u.updateWithRetry(func(txn *badger.Txn) error {
		userA, userB, err := getPair(txn, a, b)
		if err != nil {
			return err
		}
		userA.Friends = lo.Without(userA.Friends, b)
		userB.Friends = lo.Without(userB.Friends, a)
		if err = putUser(txn, userA, false); err != nil {
			return err
		}
		return putUser(txn, userB, false)
	})
}

// AddFriend writes a single direction only. It is the primitive legacy
// data was built with and what the repair tool uses to restore symmetry.
func (u *UserRepository) AddFriend(owner, friend string) error {
	if owner == friend {
		return errors.ErrSelfFriendship
	}
	return u.updateWithRetry(func(txn *badger.Txn) error {
		user, err := getByUsername(txn, owner)
		if err != nil {
			return err
		}
		if _, err = getByUsername(txn, friend); err != nil {
			return err
		}
		user.Friends = normalizeFriends(append(user.Friends, friend))
		return putUser(txn, user, false)
	})
}

// updateWithRetry reruns fn when badger detects a write conflict with
// a concurrent transaction. The whole transaction is replayed, never a part of it.
func (u *UserRepository) updateWithRetry(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxTxnAttempts; attempt++ {
		err = u.db.Update(fn)
		if !goerrors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("friendship update: %w", err)
}

func getPair(txn *badger.Txn, a, b string) (domain.User, domain.User, error) {
	userA, err := getByUsername(txn, a)
	if err != nil {
		return domain.User{}, domain.User{}, err
	}
	userB, err := getByUsername(txn, b)
	if err != nil {
		return domain.User{}, domain.User{}, err
	}
	return userA, userB, nil
}

func getByUsername(txn *badger.Txn, username string) (domain.User, error) {
	item, err := txn.Get(nameKey(username))
	if err != nil {
		return domain.User{}, notFound(err)
	}
	id, err := item.ValueCopy(nil)
	if err != nil {
		return domain.User{}, err
	}
	return getByID(txn, string(id))
}

func getByID(txn *badger.Txn, id string) (domain.User, error) {
	item, err := txn.Get(idKey(id))
	if err != nil {
		return domain.User{}, notFound(err)
	}
	var user domain.User
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &user)
	})
	return user, err
}

func putUser(txn *badger.Txn, user domain.User, withIndex bool) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	if err = txn.Set(idKey(user.ID), data); err != nil {
		return err
	}
	if withIndex {
		return txn.Set(nameKey(user.Username), []byte(user.ID))
	}
	return nil
}

func notFound(err error) error {
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return errors.ErrUserNotFound
	}
	return err
}

func normalizeFriends(friends []string) []string {
	res := lo.Uniq(lo.Compact(friends))
	slices.Sort(res)
	return res
}

func idKey(id string) []byte {
	return []byte(userByIDPrefix + id)
}

func nameKey(username string) []byte {
	return []byte(userByNamePrefix + username)
}
