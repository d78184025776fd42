package repositories

import (
	"minimessenger/domain"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func domainMessage(from, to, text string, at time.Time) domain.Message {
	return domain.Message{ID: uuid.New(), From: from, To: to, Text: text, Timestamp: at.UTC()}
}
