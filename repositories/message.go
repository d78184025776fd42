//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"fmt"
	"log/slog"
	"minimessenger/domain"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	messagePrefix     = "msg:"
	messageIDPrefix   = "msgid:"
	messageSequence   = "seq:msg"
	sequenceBandwidth = 128
)

var errReadOnly = goerrors.New("message repository opened read-only")

type IMessageRepository interface {
	StoreMessage(from, to, text string) (domain.Message, error)
	GetConversation(a, b string) ([]domain.Message, error)
	ImportMessage(message domain.Message) (bool, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
	seq *badger.Sequence
	now func() time.Time

	mu   sync.Mutex
	last time.Time
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) (*MessageRepository, error) {
	seq, err := db.GetSequence([]byte(messageSequence), sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("message sequence: %w", err)
	}
	last, err := latestStamp(db)
	if err != nil {
		_ = seq.Release()
		return nil, fmt.Errorf("latest message timestamp: %w", err)
	}
	return &MessageRepository{db: db, log: log, seq: seq, now: time.Now, last: last}, nil
}

// latestStamp returns the newest timestamp already stored so the clamp in
// stamp survives a restart with a clock that moved back.
// Only keys are read.
func latestStamp(db *badger.DB) (time.Time, error) {
	var latest int64
	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(messagePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			parts := strings.Split(string(it.Item().Key()), ":")
			if len(parts) < 4 {
				continue
			}
			at, err := strconv.ParseInt(parts[len(parts)-2], 10, 64)
			if err != nil {
				continue
			}
			latest = max(latest, at)
		}
		return nil
	})
	if err != nil || latest == 0 {
		return time.Time{}, err
	}
	return time.Unix(0, latest).UTC(), nil
}

// NewMessageReader returns a repository for read-only stores: it can read
// conversations but refuses writes since no sequence can be leased.
func NewMessageReader(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log, now: time.Now}
}

// WithClock replaces the wall clock, tests use it to force equal timestamps.
func (m *MessageRepository) WithClock(now func() time.Time) *MessageRepository {
	m.now = now
	return m
}

// Close releases the leased sequence range back to badger.
func (m *MessageRepository) Close() error {
	if m.seq == nil {
		return nil
	}
	return m.seq.Release()
}

type DiskMessage struct {
	ID   uuid.UUID `json:"id"`
	From string    `json:"from"`
	To   string    `json:"to"`
	Text string    `json:"text"`
	At   int64     `json:"at"`
	Seq  uint64    `json:"seq"`
}

// StoreMessage assigns a fresh id and timestamp then persists the message.
// The key is formatted as "msg:{conversation}:{timestamp_padded}:{sequence_padded}" to:
//  1. Keep a conversation contiguous so it is read with one prefix scan.
//  2. Sort chronologically using 19-digit zero padding (lexicographical order).
//  3. Break timestamp ties by insertion order through the badger sequence.
//
// Timestamps never go backwards, even if the wall clock does.
// Record and id index are written in one transaction: all or nothing.
func (m *MessageRepository) StoreMessage(from, to, text string) (domain.Message, error) {
	at, seq, err := m.stamp()
	if err != nil {
		return domain.Message{}, err
	}
	disk := DiskMessage{ID: uuid.New(), From: from, To: to, Text: text, At: at.UnixNano(), Seq: seq}
	if err = m.write(disk); err != nil {
		return domain.Message{}, err
	}
	return toMessage(disk), nil
}

// ImportMessage inserts a message with its original id and timestamp
// unless a message with the same id already exists.
func (m *MessageRepository) ImportMessage(message domain.Message) (bool, error) {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	if m.seq == nil {
		return false, errReadOnly
	}
	seq, err := m.seq.Next()
	if err != nil {
		return false, err
	}
	disk := fromMessage(message, seq)
	inserted := false
	err = m.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(messageIDPrefix + disk.ID.String())); err == nil {
			return nil
		} else if !goerrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		inserted = true
		return setMessage(txn, disk)
	})
	return inserted, err
}

// GetConversation returns every message exchanged between a and b,
// oldest first.
func (m *MessageRepository) GetConversation(a, b string) ([]domain.Message, error) {
	var diskMessages []DiskMessage
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(conversationPrefix(domain.NewConversation(a, b)))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var dm DiskMessage
				if err := json.Unmarshal(val, &dm); err != nil {
					return err
				}
				diskMessages = append(diskMessages, dm)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.log.Debug("Conversation loaded", "a", a, "b", b, "count", len(diskMessages))
	return lo.Map(diskMessages, func(dm DiskMessage, _ int) domain.Message {
		return toMessage(dm)
	}), nil
}

func (m *MessageRepository) stamp() (time.Time, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seq == nil {
		return time.Time{}, 0, errReadOnly
	}
	at := m.now().UTC()
	if at.Before(m.last) {
		at = m.last
	}
	seq, err := m.seq.Next()
	if err != nil {
		return time.Time{}, 0, err
	}
	m.last = at
	return at, seq, nil
}

func (m *MessageRepository) write(disk DiskMessage) error {
	return m.db.Update(func(txn *badger.Txn) error {
		return setMessage(txn, disk)
	})
}

func setMessage(txn *badger.Txn, disk DiskMessage) error {
	data, err := json.Marshal(disk)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	key := messageKey(disk)
	if err = txn.Set([]byte(key), data); err != nil {
		return err
	}
	return txn.Set([]byte(messageIDPrefix+disk.ID.String()), []byte(key))
}

func messageKey(disk DiskMessage) string {
	return fmt.Sprintf("%s%019d:%020d",
		conversationPrefix(domain.NewConversation(disk.From, disk.To)),
		disk.At,
		disk.Seq,
	)
}

func conversationPrefix(c domain.Conversation) string {
	return messagePrefix + c.Key() + ":"
}

func fromMessage(message domain.Message, seq uint64) DiskMessage {
	return DiskMessage{
		ID:   message.ID,
		From: message.From,
		To:   message.To,
		Text: message.Text,
		At:   message.Timestamp.UnixNano(),
		Seq:  seq,
	}
}

func toMessage(dm DiskMessage) domain.Message {
	return domain.Message{
		ID:        dm.ID,
		From:      dm.From,
		To:        dm.To,
		Text:      dm.Text,
		Timestamp: time.Unix(0, dm.At).UTC(),
	}
}

// Count returns how many messages are stored, using the id index.
func (m *MessageRepository) Count() (int, error) {
	count := 0
	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(messageIDPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}
