package domain

import "strings"

// ConversationSeparator joins both usernames in a conversation key.
// Usernames are validated so they never contain it.
const ConversationSeparator = "|"

// Conversation is the unordered pair of usernames identifying a message history.
// A and B are always kept in lexical order so {alice,bob} == {bob,alice}.
type Conversation struct {
	A string
	B string
}

func NewConversation(x, y string) Conversation {
	if y < x {
		x, y = y, x
	}
	return Conversation{A: x, B: y}
}

func (c Conversation) Key() string {
	return c.A + ConversationSeparator + c.B
}

func (c Conversation) Includes(username string) bool {
	return c.A == username || c.B == username
}

// Peer returns the other side of the conversation as seen by username.
func (c Conversation) Peer(username string) string {
	if c.A == username {
		return c.B
	}
	return c.A
}

func ParseConversation(key string) (Conversation, bool) {
	a, b, ok := strings.Cut(key, ConversationSeparator)
	if !ok || a == "" || b == "" {
		return Conversation{}, false
	}
	return NewConversation(a, b), true
}
