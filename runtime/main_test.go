package runtime

import (
	"log/slog"
	"minimessenger/repositories"
	"os"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

var testLog = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

type fixture struct {
	users    *repositories.UserRepository
	messages *repositories.MessageRepository
	registry *Registry
	pipeline *Pipeline
}

// newFixture wires a pipeline over real badger stores.
// Every username given is created up front.
func newFixture(t *testing.T, usernames ...string) *fixture {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	users := repositories.NewUserRepository(db)
	messages, err := repositories.NewMessageRepository(db, testLog)
	require.NoError(t, err)
	t.Cleanup(func() { _ = messages.Close() })

	for _, username := range usernames {
		_, err := users.CreateUser(username, "", "hash", nil)
		require.NoError(t, err)
	}

	registry := NewRegistry()
	gate := NewFriendshipGate(testLog, users)
	return &fixture{
		users:    users,
		messages: messages,
		registry: registry,
		pipeline: NewPipeline(testLog, users, gate, messages, registry, nil),
	}
}

func (f *fixture) befriend(t *testing.T, a, b string) {
	t.Helper()
	require.NoError(t, f.users.AddFriendship(a, b))
}

func (f *fixture) connect(username string) *stubChannel {
	channel := newStubChannel(username)
	f.registry.Register(username, channel)
	return channel
}
