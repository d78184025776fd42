package domain

// EventType names the events exchanged on a real-time channel.
type EventType string

const (
	EventSendMessage      EventType = "send-message"
	EventMessageDelivered EventType = "message-delivered"
	EventSendError        EventType = "send-error"
)

// SendIntent is what a client asks for. The sender is never part of it:
// it comes from the channel the intent arrived on.
type SendIntent struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// Envelope is the single JSON frame shape used by every transport.
type Envelope struct {
	Type    EventType `json:"type"`
	To      string    `json:"to,omitempty"`
	Text    string    `json:"text,omitempty"`
	Message *Message  `json:"message,omitempty"`
	Reason  string    `json:"reason,omitempty"`
}

func (e Envelope) Intent() SendIntent {
	return SendIntent{To: e.To, Text: e.Text}
}

func SendMessage(intent SendIntent) Envelope {
	return Envelope{Type: EventSendMessage, To: intent.To, Text: intent.Text}
}

func MessageDelivered(m Message) Envelope {
	return Envelope{Type: EventMessageDelivered, Message: &m}
}

func SendError(reason string) Envelope {
	return Envelope{Type: EventSendError, Reason: reason}
}
