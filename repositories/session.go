//go:generate go run go.uber.org/mock/mockgen -source=session.go -destination=../mocks/mock_session_repository.go -package=mocks
package repositories

import (
	goerrors "errors"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const revokedSessionPrefix = "session:revoked:"

// ISessionRepository keeps track of logged-out tokens until they expire on their own.
type ISessionRepository interface {
	Revoke(tokenID string, expiresAt time.Time) error
	IsRevoked(tokenID string) (bool, error)
}

type SessionRepository struct {
	db *badger.DB
}

func NewSessionRepository(db *badger.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Revoke stores a tombstone with a TTL matching the token's remaining life,
// badger drops it once the token could no longer be used anyway.
func (s *SessionRepository) Revoke(tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(revokedSessionPrefix+tokenID), []byte{1}).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
}

func (s *SessionRepository) IsRevoked(tokenID string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(revokedSessionPrefix + tokenID))
		return err
	})
	switch {
	case err == nil:
		return true, nil
	case goerrors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}
