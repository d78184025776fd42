package repositories

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newMessageRepository(t *testing.T) *MessageRepository {
	t.Helper()
	repository, err := NewMessageRepository(openDB(t), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repository.Close() })
	return repository
}

func Test_Store_Assigns_Id_And_Timestamp(t *testing.T) {
	req := require.New(t)
	repository := newMessageRepository(t)

	message, err := repository.StoreMessage("alice", "bob", "hi")
	req.NoError(err)

	req.NotEqual(uuid.Nil, message.ID)
	req.False(message.Timestamp.IsZero())
	req.Equal("alice", message.From)
	req.Equal("bob", message.To)
	req.Equal("hi", message.Text)
}

func Test_Conversation_Is_Unordered_Pair_Sorted_By_Time(t *testing.T) {
	req := require.New(t)
	repository := newMessageRepository(t)

	// Given messages in both directions and one in another conversation
	m1, err := repository.StoreMessage("alice", "bob", "1")
	req.NoError(err)
	_, err = repository.StoreMessage("alice", "carol", "other")
	req.NoError(err)
	m2, err := repository.StoreMessage("bob", "alice", "2")
	req.NoError(err)
	m3, err := repository.StoreMessage("alice", "bob", "3")
	req.NoError(err)

	// When fetching from either side
	fromAlice, err := repository.GetConversation("alice", "bob")
	req.NoError(err)
	fromBob, err := repository.GetConversation("bob", "alice")
	req.NoError(err)

	// Then both sides see the same ordered history
	req.Equal(fromAlice, fromBob)
	req.Len(fromAlice, 3)
	req.Equal(m1.ID, fromAlice[0].ID)
	req.Equal(m2.ID, fromAlice[1].ID)
	req.Equal(m3.ID, fromAlice[2].ID)
}

func Test_Equal_Timestamps_Keep_Insertion_Order(t *testing.T) {
	req := require.New(t)
	frozen := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	repository := newMessageRepository(t).WithClock(func() time.Time { return frozen })

	var ids []uuid.UUID
	for i := 0; i < 20; i++ {
		m, err := repository.StoreMessage("alice", "bob", fmt.Sprintf("msg %d", i))
		req.NoError(err)
		ids = append(ids, m.ID)
	}

	history, err := repository.GetConversation("alice", "bob")
	req.NoError(err)
	req.Len(history, 20)
	for i, m := range history {
		req.Equal(ids[i], m.ID)
		req.Equal(frozen, m.Timestamp)
	}
}

func Test_Timestamp_Never_Goes_Backwards(t *testing.T) {
	req := require.New(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := []time.Time{now, now.Add(-time.Minute), now.Add(time.Second)}
	i := 0
	repository := newMessageRepository(t).WithClock(func() time.Time {
		at := clock[i]
		i++
		return at
	})

	first, err := repository.StoreMessage("alice", "bob", "a")
	req.NoError(err)
	second, err := repository.StoreMessage("alice", "bob", "b")
	req.NoError(err)
	third, err := repository.StoreMessage("alice", "bob", "c")
	req.NoError(err)

	// The clock stepped back but the stored timestamp did not
	req.Equal(first.Timestamp, second.Timestamp)
	req.True(third.Timestamp.After(second.Timestamp))
}

func Test_Import_Is_Idempotent_By_Id(t *testing.T) {
	req := require.New(t)
	repository := newMessageRepository(t)
	legacy := domainMessage("alice", "bob", "from data.json", time.UnixMilli(1700000000000))

	inserted, err := repository.ImportMessage(legacy)
	req.NoError(err)
	req.True(inserted)

	inserted, err = repository.ImportMessage(legacy)
	req.NoError(err)
	req.False(inserted)

	history, err := repository.GetConversation("bob", "alice")
	req.NoError(err)
	req.Len(history, 1)
	req.Equal(legacy.ID, history[0].ID)
	req.True(legacy.Timestamp.Equal(history[0].Timestamp))
}

func Test_Empty_Conversation(t *testing.T) {
	req := require.New(t)
	repository := newMessageRepository(t)

	history, err := repository.GetConversation("alice", "nobody")
	req.NoError(err)
	req.Empty(history)
}

func Test_Reader_Reads_But_Refuses_Writes(t *testing.T) {
	req := require.New(t)
	db := openDB(t)
	writer, err := NewMessageRepository(db, slog.Default())
	req.NoError(err)
	t.Cleanup(func() { _ = writer.Close() })
	_, err = writer.StoreMessage("alice", "bob", "hi")
	req.NoError(err)

	reader := NewMessageReader(db, slog.Default())
	history, err := reader.GetConversation("bob", "alice")
	req.NoError(err)
	req.Len(history, 1)

	_, err = reader.StoreMessage("alice", "bob", "again")
	req.ErrorIs(err, errReadOnly)
	req.NoError(reader.Close())

	count, err := writer.Count()
	req.NoError(err)
	req.Equal(1, count)
}

func Test_Timestamps_Stay_Monotonic_Across_Restarts(t *testing.T) {
	req := require.New(t)
	db := openDB(t)
	later := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	earlier := later.Add(-time.Hour)

	// Given a message stored before a restart
	first, err := NewMessageRepository(db, slog.Default())
	req.NoError(err)
	m1, err := first.WithClock(func() time.Time { return later }).StoreMessage("alice", "bob", "before")
	req.NoError(err)
	req.NoError(first.Close())

	// When the process comes back with a clock that went backwards
	second, err := NewMessageRepository(db, slog.Default())
	req.NoError(err)
	t.Cleanup(func() { _ = second.Close() })
	m2, err := second.WithClock(func() time.Time { return earlier }).StoreMessage("bob", "alice", "after")
	req.NoError(err)

	// Then the new message never sorts before the old one
	req.Equal(later, m2.Timestamp)
	history, err := second.GetConversation("alice", "bob")
	req.NoError(err)
	req.Len(history, 2)
	req.Equal(m1.ID, history[0].ID)
	req.Equal(m2.ID, history[1].ID)
}
