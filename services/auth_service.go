package services

import (
	"fmt"
	"log/slog"
	"minimessenger/auth"
	"minimessenger/domain"
	"minimessenger/errors"
	"minimessenger/repositories"
	"slices"
)

type AuthService struct {
	users    repositories.IUserRepository
	sessions repositories.ISessionRepository
	tokens   *auth.TokenIssuer
	admins   []string
	log      *slog.Logger
}

// NewAuthService builds the account use cases. Usernames listed in admins
// receive the admin role when they register.
func NewAuthService(log *slog.Logger, users repositories.IUserRepository,
	sessions repositories.ISessionRepository, tokens *auth.TokenIssuer, admins []string) *AuthService {
	return &AuthService{users: users, sessions: sessions, tokens: tokens, admins: admins, log: log}
}

func (s *AuthService) Register(req auth.RegisterRequest) (Session, error) {
	// 1. Validate business rules before any expensive cryptographic operation
	if err := auth.ValidateRegister(req); err != nil {
		return Session{}, err
	}

	// 2. Hash here so the repository never sees a plain password
	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return Session{}, fmt.Errorf("hashing failed: %w", err)
	}

	roles := []string{domain.RoleUser}
	if slices.Contains(s.admins, req.Username) {
		roles = append(roles, domain.RoleAdmin)
	}

	// 3. Propagates ErrUserAlreadyExists if the username is taken
	user, err := s.users.CreateUser(req.Username, req.DisplayName, hashedPassword, roles)
	if err != nil {
		return Session{}, err
	}
	s.log.Info("User registered", "username", user.Username, "roles", user.Roles)

	return s.issue(domain.IdentityOf(user))
}

func (s *AuthService) Login(req auth.LoginRequest) (Session, error) {
	if err := auth.ValidateLogin(req); err != nil {
		return Session{}, err
	}
	user, err := s.users.GetUserByUsername(req.Username)
	if err != nil {
		// Generic error to prevent user enumeration
		return Session{}, errors.ErrInvalidCredentials
	}
	match, err := auth.ComparePassword(req.Password, user.PasswordHash)
	if err != nil || !match {
		return Session{}, errors.ErrInvalidCredentials
	}
	return s.issue(domain.IdentityOf(user))
}

// Logout revokes the token until its natural expiry.
func (s *AuthService) Logout(token string) error {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrUnauthenticated, err)
	}
	if err = s.sessions.Revoke(claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrStorageFailure, err)
	}
	s.log.Info("Session revoked", "username", claims.Username)
	return nil
}

// Impersonate issues an act-as token for username. This is the only place
// where a role is checked: the resulting session behaves exactly like the
// target user and carries the admin's name as actor.
func (s *AuthService) Impersonate(admin domain.Identity, username string) (Session, error) {
	if !admin.HasRole(domain.RoleAdmin) || admin.IsActingAs() {
		return Session{}, errors.ErrForbidden
	}
	user, err := s.users.GetUserByUsername(username)
	if err != nil {
		return Session{}, err
	}
	identity := domain.IdentityOf(user)
	identity.Actor = admin.Username
	s.log.Warn("Impersonation session issued", "actor", admin.Username, "username", user.Username)
	return s.issue(identity)
}

func (s *AuthService) issue(identity domain.Identity) (Session, error) {
	token, claims, err := s.tokens.GenerateToken(identity)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", errors.ErrTokenGeneration, err)
	}
	return Session{Token: token, Identity: identity, ExpiresAt: claims.ExpiresAt.Time}, nil
}
