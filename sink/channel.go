package sink

import (
	"context"
	"log/slog"
	"minimessenger/domain"
	"minimessenger/errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Channel is the outbox of one live connection. The pipeline pushes into
// it and the transport owning the connection drains Events.
//
// The events channel is never closed: a push racing with Close either lands
// in the buffer or sees done, and never panics.
type Channel struct {
	id       string
	identity domain.Identity
	events   chan domain.Envelope
	done     chan struct{}
	once     sync.Once
	timeout  time.Duration
	log      *slog.Logger
}

func NewChannel(log *slog.Logger, identity domain.Identity, bufferSize int, deliveryTimeout time.Duration) *Channel {
	return &Channel{
		id:       uuid.NewString(),
		identity: identity,
		events:   make(chan domain.Envelope, bufferSize),
		done:     make(chan struct{}),
		timeout:  deliveryTimeout,
		log:      log,
	}
}

func (c *Channel) ID() string       { return c.id }
func (c *Channel) Username() string { return c.identity.Username }
func (c *Channel) Actor() string    { return c.identity.Actor }

func (c *Channel) Identity() domain.Identity { return c.identity }

// Push queues e for the connection. It waits at most the delivery timeout
// for buffer room, then gives up with ErrChannelBackpressure.
// Pushing to a closed channel is a no-op reported as ErrChannelClosed.
func (c *Channel) Push(ctx context.Context, e domain.Envelope) error {
	select {
	case <-c.done:
		return errors.ErrChannelClosed
	default:
	}

	// Fast path: room in the buffer
	select {
	case c.events <- e:
		return nil
	default:
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case c.events <- e:
		return nil
	case <-c.done:
		return errors.ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		c.log.Warn("Outbox full, event dropped", "username", c.Username(), "channel", c.id, "type", e.Type)
		return errors.ErrChannelBackpressure
	}
}

// Events is drained by the transport writing to the connection.
func (c *Channel) Events() <-chan domain.Envelope {
	return c.events
}

// Done is closed once the connection is gone.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Close marks the channel as gone. It is safe to call more than once.
func (c *Channel) Close() {
	c.once.Do(func() { close(c.done) })
}
