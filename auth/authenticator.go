package auth

import (
	"context"
	"fmt"
	"log/slog"
	"minimessenger/domain"
	"minimessenger/errors"
	"minimessenger/repositories"
	"strings"
)

// Authenticator resolves a session token into the identity of a live user.
// Any failure is reported as ErrUnauthenticated so callers can drop the
// connection without looking further.
type Authenticator struct {
	tokens   *TokenIssuer
	sessions repositories.ISessionRepository
	users    repositories.IUserRepository
	log      *slog.Logger
}

func NewAuthenticator(log *slog.Logger, tokens *TokenIssuer,
	sessions repositories.ISessionRepository, users repositories.IUserRepository) *Authenticator {
	return &Authenticator{tokens: tokens, sessions: sessions, users: users, log: log}
}

func (a *Authenticator) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	if err := ctx.Err(); err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", errors.ErrUnauthenticated, err)
	}
	claims, err := a.Claims(token)
	if err != nil {
		return domain.Identity{}, err
	}

	// Display name and roles are re-read, only the binding to the user id comes from the token
	user, err := a.users.GetUserByID(claims.UserID)
	if err != nil {
		a.log.Debug("Token for unknown user", "user_id", claims.UserID, "error", err)
		return domain.Identity{}, fmt.Errorf("%w: %v", errors.ErrUnauthenticated, err)
	}
	identity := domain.IdentityOf(user)
	identity.Actor = claims.Actor
	return identity, nil
}

// Claims validates the token signature, expiry and revocation status.
func (a *Authenticator) Claims(token string) (*CustomClaims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: token is missing", errors.ErrUnauthenticated)
	}
	claims, err := a.tokens.ValidateToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrUnauthenticated, err)
	}
	revoked, err := a.sessions.IsRevoked(claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrUnauthenticated, err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: token revoked", errors.ErrUnauthenticated)
	}
	return claims, nil
}

// BearerToken strips the "Bearer " scheme from an Authorization value.
func BearerToken(header string) string {
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return ""
	}
	return strings.TrimSpace(token)
}
