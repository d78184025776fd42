//go:generate go run go.uber.org/mock/mockgen -source=services.go -destination=../mocks/mock_services.go -package=mocks
package services

import (
	"context"
	"minimessenger/auth"
	"minimessenger/contract"
	"minimessenger/domain"
	"time"
)

// Session is what a successful login, registration or impersonation returns.
type Session struct {
	Token     string          `json:"token"`
	Identity  domain.Identity `json:"user"`
	ExpiresAt time.Time       `json:"expires_at"`
}

type IAuthService interface {
	Register(req auth.RegisterRequest) (Session, error)
	Login(req auth.LoginRequest) (Session, error)
	Logout(token string) error
	Impersonate(admin domain.Identity, username string) (Session, error)
}

type IFriendService interface {
	Friends(username string) ([]domain.User, error)
	AddFriend(username, friend string) ([]string, error)
	RemoveFriend(username, friend string) ([]string, error)
	Search(query string) ([]domain.User, error)
}

type IChatService interface {
	Connect(channel contract.Channel)
	Disconnect(channel contract.Channel)
	Send(ctx context.Context, channel contract.Channel, intent domain.SendIntent) (domain.Message, error)
	Conversation(username, peer string) ([]domain.Message, error)
}
