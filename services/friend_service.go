package services

import (
	goerrors "errors"
	"log/slog"
	"minimessenger/domain"
	"minimessenger/errors"
	"minimessenger/repositories"
	"strings"
)

type FriendService struct {
	users repositories.IUserRepository
	log   *slog.Logger
}

func NewFriendService(log *slog.Logger, users repositories.IUserRepository) *FriendService {
	return &FriendService{users: users, log: log}
}

// Friends resolves the friend usernames of a user into their records.
// A friend whose record vanished is skipped.
func (s *FriendService) Friends(username string) ([]domain.User, error) {
	user, err := s.users.GetUserByUsername(username)
	if err != nil {
		return nil, err
	}
	friends := make([]domain.User, 0, len(user.Friends))
	for _, name := range user.Friends {
		friend, err := s.users.GetUserByUsername(name)
		if goerrors.Is(err, errors.ErrUserNotFound) {
			s.log.Warn("Dangling friend entry", "username", username, "friend", name)
			continue
		}
		if err != nil {
			return nil, err
		}
		friends = append(friends, friend)
	}
	return friends, nil
}

// AddFriend befriends both users at once and returns the caller's friend list.
func (s *FriendService) AddFriend(username, friend string) ([]string, error) {
	if err := s.users.AddFriendship(username, friend); err != nil {
		return nil, err
	}
	s.log.Info("Friendship added", "username", username, "friend", friend)
	return s.friendNames(username)
}

// RemoveFriend drops the friendship in both directions. Their conversation
// history stays readable.
func (s *FriendService) RemoveFriend(username, friend string) ([]string, error) {
	if err := s.users.RemoveFriendship(username, friend); err != nil {
		return nil, err
	}
	s.log.Info("Friendship removed", "username", username, "friend", friend)
	return s.friendNames(username)
}

func (s *FriendService) Search(query string) ([]domain.User, error) {
	return s.users.SearchUsers(strings.TrimSpace(query))
}

func (s *FriendService) friendNames(username string) ([]string, error) {
	user, err := s.users.GetUserByUsername(username)
	if err != nil {
		return nil, err
	}
	return user.Friends, nil
}
