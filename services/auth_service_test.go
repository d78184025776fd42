package services_test

import (
	"log/slog"
	"minimessenger/auth"
	"minimessenger/domain"
	"minimessenger/errors"
	"minimessenger/mocks"
	"minimessenger/services"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var testLog = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

func newAuthService(ctrl *gomock.Controller) (*services.AuthService, *mocks.MockIUserRepository, *mocks.MockISessionRepository, *auth.TokenIssuer) {
	users := mocks.NewMockIUserRepository(ctrl)
	sessions := mocks.NewMockISessionRepository(ctrl)
	tokens := auth.NewTokenIssuer("test-secret", 24*time.Hour)
	return services.NewAuthService(testLog, users, sessions, tokens, []string{"root"}), users, sessions, tokens
}

func TestAuthService_Register(t *testing.T) {
	t.Run("should register successfully when input is valid", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		svc, users, _, tokens := newAuthService(ctrl)

		// Expect CreateUser to be called with a hashed password (not the plain one)
		users.EXPECT().
			CreateUser("alice", "Alice", gomock.Not("ComplexPass123!"), []string{domain.RoleUser}).
			Return(domain.User{ID: "u-alice", Username: "alice", DisplayName: "Alice", Roles: []string{domain.RoleUser}}, nil).
			Times(1)

		session, err := svc.Register(auth.RegisterRequest{Username: "alice", Password: "ComplexPass123!", DisplayName: "Alice"})
		req.NoError(err)
		req.NotEmpty(session.Token)
		req.Equal("alice", session.Identity.Username)

		claims, err := tokens.ValidateToken(session.Token)
		req.NoError(err)
		req.Equal("u-alice", claims.UserID)
	})

	t.Run("should grant the admin role to configured usernames", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		svc, users, _, _ := newAuthService(ctrl)

		users.EXPECT().
			CreateUser("root", "", gomock.Any(), []string{domain.RoleUser, domain.RoleAdmin}).
			Return(domain.User{ID: "u-root", Username: "root", Roles: []string{domain.RoleUser, domain.RoleAdmin}}, nil)

		session, err := svc.Register(auth.RegisterRequest{Username: "root", Password: "ComplexPass123!"})
		req.NoError(err)
		req.True(session.Identity.HasRole(domain.RoleAdmin))
	})

	t.Run("should fail when password complexity is not met", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		svc, users, _, _ := newAuthService(ctrl)

		// Repository should never be called
		users.EXPECT().CreateUser(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		session, err := svc.Register(auth.RegisterRequest{Username: "alice", Password: "nocomplexity"})
		req.ErrorIs(err, errors.ErrInvalidPassword)
		req.Empty(session.Token)
	})

	t.Run("should fail when user already exists in repository", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		svc, users, _, _ := newAuthService(ctrl)

		users.EXPECT().
			CreateUser("alice", gomock.Any(), gomock.Any(), gomock.Any()).
			Return(domain.User{}, errors.ErrUserAlreadyExists)

		_, err := svc.Register(auth.RegisterRequest{Username: "alice", Password: "ComplexPass123!"})
		req.ErrorIs(err, errors.ErrUserAlreadyExists)
	})
}

func TestAuthService_Login(t *testing.T) {
	hashedPassword, err := auth.HashPassword("Secret123456!")
	require.NoError(t, err)
	stored := domain.User{ID: "u-alice", Username: "alice", PasswordHash: hashedPassword, Roles: []string{domain.RoleUser}}

	t.Run("should login successfully with correct credentials", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		svc, users, _, _ := newAuthService(ctrl)

		users.EXPECT().GetUserByUsername("alice").Return(stored, nil)

		session, err := svc.Login(auth.LoginRequest{Username: "alice", Password: "Secret123456!"})
		req.NoError(err)
		req.NotEmpty(session.Token)
		req.True(session.ExpiresAt.After(time.Now()))
	})

	t.Run("should return invalid credentials on wrong password", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		svc, users, _, _ := newAuthService(ctrl)

		users.EXPECT().GetUserByUsername("alice").Return(stored, nil)

		_, err := svc.Login(auth.LoginRequest{Username: "alice", Password: "WrongPassword1!"})
		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})

	t.Run("should not reveal whether the user exists", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		svc, users, _, _ := newAuthService(ctrl)

		users.EXPECT().GetUserByUsername("ghost").Return(domain.User{}, errors.ErrUserNotFound)

		_, err := svc.Login(auth.LoginRequest{Username: "ghost", Password: "Whatever123!"})
		req.ErrorIs(err, errors.ErrInvalidCredentials)
		req.NotErrorIs(err, errors.ErrUserNotFound)
	})
}

func TestAuthService_Logout(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	svc, _, sessions, tokens := newAuthService(ctrl)

	token, claims, err := tokens.GenerateToken(domain.Identity{UserID: "u-alice", Username: "alice"})
	req.NoError(err)

	sessions.EXPECT().Revoke(claims.ID, claims.ExpiresAt.Time).Return(nil)
	req.NoError(svc.Logout(token))

	req.ErrorIs(svc.Logout("garbage"), errors.ErrUnauthenticated)
}

func TestAuthService_Impersonate(t *testing.T) {
	admin := domain.Identity{UserID: "u-root", Username: "root", Roles: []string{domain.RoleUser, domain.RoleAdmin}}
	bob := domain.User{ID: "u-bob", Username: "bob", DisplayName: "Bob", Roles: []string{domain.RoleUser}}

	t.Run("should issue an act-as session for an admin", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		svc, users, _, tokens := newAuthService(ctrl)

		users.EXPECT().GetUserByUsername("bob").Return(bob, nil)

		session, err := svc.Impersonate(admin, "bob")
		req.NoError(err)
		req.Equal("bob", session.Identity.Username)
		req.Equal("root", session.Identity.Actor)

		claims, err := tokens.ValidateToken(session.Token)
		req.NoError(err)
		req.Equal("root", claims.Actor)
		req.Equal("u-bob", claims.UserID)
	})

	t.Run("should refuse a regular user", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		svc, users, _, _ := newAuthService(ctrl)

		users.EXPECT().GetUserByUsername(gomock.Any()).Times(0)

		_, err := svc.Impersonate(domain.IdentityOf(bob), "alice")
		req.ErrorIs(err, errors.ErrForbidden)
	})

	t.Run("should refuse to chain impersonations", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		svc, _, _, _ := newAuthService(ctrl)

		actingAs := admin
		actingAs.Username = "carol"
		actingAs.Actor = "root"
		_, err := svc.Impersonate(actingAs, "bob")
		req.ErrorIs(err, errors.ErrForbidden)
	})

	t.Run("should report an unknown target", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		svc, users, _, _ := newAuthService(ctrl)

		users.EXPECT().GetUserByUsername("ghost").Return(domain.User{}, errors.ErrUserNotFound)

		_, err := svc.Impersonate(admin, "ghost")
		req.ErrorIs(err, errors.ErrUserNotFound)
	})
}
