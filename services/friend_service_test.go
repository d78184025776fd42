package services_test

import (
	"minimessenger/domain"
	"minimessenger/errors"
	"minimessenger/mocks"
	"minimessenger/services"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestFriendService_AddFriend(t *testing.T) {
	t.Run("should return the updated friend list", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		users := mocks.NewMockIUserRepository(ctrl)
		svc := services.NewFriendService(testLog, users)

		gomock.InOrder(
			users.EXPECT().AddFriendship("alice", "bob").Return(nil),
			users.EXPECT().GetUserByUsername("alice").Return(domain.User{Username: "alice", Friends: []string{"bob"}}, nil),
		)

		friends, err := svc.AddFriend("alice", "bob")
		req.NoError(err)
		req.Equal([]string{"bob"}, friends)
	})

	t.Run("should propagate an unknown peer", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		users := mocks.NewMockIUserRepository(ctrl)
		svc := services.NewFriendService(testLog, users)

		users.EXPECT().AddFriendship("alice", "ghost").Return(errors.ErrUserNotFound)

		_, err := svc.AddFriend("alice", "ghost")
		req.ErrorIs(err, errors.ErrUserNotFound)
	})
}

func TestFriendService_RemoveFriend(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	users := mocks.NewMockIUserRepository(ctrl)
	svc := services.NewFriendService(testLog, users)

	users.EXPECT().RemoveFriendship("alice", "bob").Return(nil)
	users.EXPECT().GetUserByUsername("alice").Return(domain.User{Username: "alice", Friends: []string{}}, nil)

	friends, err := svc.RemoveFriend("alice", "bob")
	req.NoError(err)
	req.Empty(friends)
}

func TestFriendService_Friends_Skips_Dangling_Entries(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	users := mocks.NewMockIUserRepository(ctrl)
	svc := services.NewFriendService(testLog, users)

	users.EXPECT().GetUserByUsername("alice").Return(domain.User{Username: "alice", Friends: []string{"bob", "gone"}}, nil)
	users.EXPECT().GetUserByUsername("bob").Return(domain.User{Username: "bob", DisplayName: "Bob"}, nil)
	users.EXPECT().GetUserByUsername("gone").Return(domain.User{}, errors.ErrUserNotFound)

	friends, err := svc.Friends("alice")
	req.NoError(err)
	req.Len(friends, 1)
	req.Equal("Bob", friends[0].DisplayName)
}

func TestFriendService_Search(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	users := mocks.NewMockIUserRepository(ctrl)
	svc := services.NewFriendService(testLog, users)

	users.EXPECT().SearchUsers("bo").Return([]domain.User{{Username: "bob"}}, nil)

	found, err := svc.Search("  bo ")
	req.NoError(err)
	req.Len(found, 1)
}
