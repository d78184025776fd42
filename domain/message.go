// Package domain contains core concepts of the chat system.
// This file defines Message records and related rules.
// Messages are immutable once persisted.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is a persisted direct message between two friends.
type Message struct {
	ID        uuid.UUID `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation returns the unordered pair the message belongs to.
func (m Message) Conversation() Conversation {
	return NewConversation(m.From, m.To)
}
