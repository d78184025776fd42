package services

import (
	"context"
	"log/slog"
	"minimessenger/contract"
	"minimessenger/domain"
	"minimessenger/repositories"
)

// ChatService is the entry point transports use for real-time channels
// and conversation history.
type ChatService struct {
	registry contract.IRegistry
	pipeline contract.IPipeline
	messages repositories.IMessageRepository
	users    repositories.IUserRepository
	log      *slog.Logger
}

func NewChatService(log *slog.Logger, registry contract.IRegistry, pipeline contract.IPipeline,
	messages repositories.IMessageRepository, users repositories.IUserRepository) *ChatService {
	return &ChatService{registry: registry, pipeline: pipeline, messages: messages, users: users, log: log}
}

func (s *ChatService) Connect(channel contract.Channel) {
	s.registry.Register(channel.Username(), channel)
	s.log.Info("Channel connected", "username", channel.Username(), "channel", channel.ID(), "actor", channel.Actor())
}

func (s *ChatService) Disconnect(channel contract.Channel) {
	s.registry.Unregister(channel)
	s.log.Info("Channel disconnected", "username", channel.Username(), "channel", channel.ID())
}

func (s *ChatService) Send(ctx context.Context, channel contract.Channel, intent domain.SendIntent) (domain.Message, error) {
	return s.pipeline.Send(ctx, channel, intent)
}

// Conversation returns the history between username and peer, oldest first.
// It does not require the pair to still be friends.
func (s *ChatService) Conversation(username, peer string) ([]domain.Message, error) {
	if _, err := s.users.GetUserByUsername(peer); err != nil {
		return nil, err
	}
	messages, err := s.messages.GetConversation(username, peer)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return messages, nil
}
