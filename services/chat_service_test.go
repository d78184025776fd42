package services_test

import (
	"context"
	"minimessenger/domain"
	"minimessenger/errors"
	"minimessenger/mocks"
	"minimessenger/services"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestChatService_Connect_And_Disconnect(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockIRegistry(ctrl)
	channel := mocks.NewMockChannel(ctrl)
	svc := services.NewChatService(testLog, registry, mocks.NewMockIPipeline(ctrl),
		mocks.NewMockIMessageRepository(ctrl), mocks.NewMockIUserRepository(ctrl))

	channel.EXPECT().Username().Return("alice").AnyTimes()
	channel.EXPECT().ID().Return("c-1").AnyTimes()
	channel.EXPECT().Actor().Return("").AnyTimes()

	gomock.InOrder(
		registry.EXPECT().Register("alice", channel),
		registry.EXPECT().Unregister(channel),
	)

	svc.Connect(channel)
	svc.Disconnect(channel)
}

func TestChatService_Send_Delegates_To_Pipeline(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	pipeline := mocks.NewMockIPipeline(ctrl)
	channel := mocks.NewMockChannel(ctrl)
	svc := services.NewChatService(testLog, mocks.NewMockIRegistry(ctrl), pipeline,
		mocks.NewMockIMessageRepository(ctrl), mocks.NewMockIUserRepository(ctrl))

	intent := domain.SendIntent{To: "bob", Text: "hi"}
	pipeline.EXPECT().Send(gomock.Any(), channel, intent).Return(domain.Message{From: "alice", To: "bob", Text: "hi"}, nil)

	m, err := svc.Send(context.Background(), channel, intent)
	req.NoError(err)
	req.Equal("hi", m.Text)
}

func TestChatService_Conversation(t *testing.T) {
	t.Run("should return an empty history rather than nil", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		messages := mocks.NewMockIMessageRepository(ctrl)
		users := mocks.NewMockIUserRepository(ctrl)
		svc := services.NewChatService(testLog, mocks.NewMockIRegistry(ctrl), mocks.NewMockIPipeline(ctrl), messages, users)

		users.EXPECT().GetUserByUsername("bob").Return(domain.User{Username: "bob"}, nil)
		messages.EXPECT().GetConversation("alice", "bob").Return(nil, nil)

		history, err := svc.Conversation("alice", "bob")
		req.NoError(err)
		req.NotNil(history)
		req.Empty(history)
	})

	t.Run("should refuse an unknown peer", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		users := mocks.NewMockIUserRepository(ctrl)
		svc := services.NewChatService(testLog, mocks.NewMockIRegistry(ctrl), mocks.NewMockIPipeline(ctrl),
			mocks.NewMockIMessageRepository(ctrl), users)

		users.EXPECT().GetUserByUsername("ghost").Return(domain.User{}, errors.ErrUserNotFound)

		_, err := svc.Conversation("alice", "ghost")
		req.ErrorIs(err, errors.ErrUserNotFound)
	})
}
