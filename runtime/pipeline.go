package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"minimessenger/contract"
	"minimessenger/domain"
	"minimessenger/errors"
	"minimessenger/observability"
	"minimessenger/repositories"
)

// Pipeline carries a send intent through Received, Validated, Persisted
// and then either Delivered or Rejected.
//
// The sender is always the username bound to the originating channel.
// Sends from the same sender are serialized, so the order in which one
// user submits messages is the order in which they are persisted and pushed.
// Nothing is retried: a failed send is reported once to its origin.
type Pipeline struct {
	users    repositories.IUserRepository
	gate     contract.IFriendshipGate
	messages repositories.IMessageRepository
	registry contract.IRegistry
	metrics  *observability.Metrics
	filter   contract.ITextFilter
	locks    *KeyedMutex
	log      *slog.Logger
}

func NewPipeline(log *slog.Logger,
	users repositories.IUserRepository,
	gate contract.IFriendshipGate,
	messages repositories.IMessageRepository,
	registry contract.IRegistry,
	metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		users:    users,
		gate:     gate,
		messages: messages,
		registry: registry,
		metrics:  metrics,
		locks:    NewKeyedMutex(),
		log:      log,
	}
}

// WithFilter masks text with filter before persistence.
func (p *Pipeline) WithFilter(filter contract.ITextFilter) *Pipeline {
	p.filter = filter
	return p
}

func (p *Pipeline) Send(ctx context.Context, origin contract.Channel, intent domain.SendIntent) (domain.Message, error) {
	sender := origin.Username()
	log := p.log.With("sender", sender, "recipient", intent.To, "channel", origin.ID())
	if actor := origin.Actor(); actor != "" {
		log = log.With("actor", actor)
		log.Info("Send issued through impersonation")
	}

	// Held through fan-out so recipients see one sender's messages in
	// persistence order. A full outbox delays the next send by at most
	// the channel delivery timeout.
	unlock := p.locks.Lock(sender)
	defer unlock()

	// Events already accepted are pushed even if the origin goes away meanwhile
	pushCtx := context.WithoutCancel(ctx)

	if err := p.validate(ctx, sender, intent.To); err != nil {
		return domain.Message{}, p.reject(pushCtx, origin, log, err)
	}

	text := intent.Text
	if p.filter != nil {
		text = p.filter.Apply(text)
	}
	message, err := p.messages.StoreMessage(sender, intent.To, text)
	if err != nil {
		return domain.Message{}, p.reject(pushCtx, origin, log, fmt.Errorf("%w: %v", errors.ErrStorageFailure, err))
	}

	delivered := domain.MessageDelivered(message)
	recipients := p.registry.ChannelsFor(intent.To)
	for _, channel := range recipients {
		p.push(pushCtx, channel, delivered, log)
	}
	p.push(pushCtx, origin, delivered, log)

	p.metrics.Delivered()
	log.Debug("Message delivered", "id", message.ID, "live_channels", len(recipients))
	return message, nil
}

func (p *Pipeline) validate(ctx context.Context, sender, recipient string) error {
	if _, err := p.users.GetUserByUsername(recipient); err != nil {
		return fmt.Errorf("recipient %q: %w", recipient, err)
	}
	ok, err := p.gate.CanDeliver(ctx, sender, recipient)
	if err != nil {
		return err
	}
	if !ok {
		return errors.ErrNotFriends
	}
	return nil
}

// reject reports the failure to the originating channel only.
func (p *Pipeline) reject(ctx context.Context, origin contract.Channel, log *slog.Logger, err error) error {
	reason := errors.ReasonFor(err)
	log.Info("Send rejected", "reason", reason, "error", err)
	p.metrics.Rejected(string(reason))
	p.push(ctx, origin, domain.SendError(string(reason)), log)
	return err
}

func (p *Pipeline) push(ctx context.Context, channel contract.Channel, e domain.Envelope, log *slog.Logger) {
	err := channel.Push(ctx, e)
	p.metrics.Pushed(err)
	if err != nil {
		log.Debug("Push skipped", "target", channel.Username(), "channel", channel.ID(), "type", e.Type, "error", err)
	}
}
