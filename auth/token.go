package auth

import (
	"fmt"
	"minimessenger/domain"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "minimessenger"

// CustomClaims defines the structure of the data stored inside the JWT.
// Actor is only set on act-as tokens issued to an administrator.
type CustomClaims struct {
	UserID      string   `json:"user_id"`
	Username    string   `json:"username"`
	DisplayName string   `json:"display"`
	Roles       []string `json:"roles"`
	Actor       string   `json:"act,omitempty"`
	jwt.RegisteredClaims
}

func (c CustomClaims) Identity() domain.Identity {
	return domain.Identity{
		UserID:      c.UserID,
		Username:    c.Username,
		DisplayName: c.DisplayName,
		Roles:       c.Roles,
		Actor:       c.Actor,
	}
}

// TokenIssuer signs and validates HS256 session tokens.
type TokenIssuer struct {
	key      []byte
	duration time.Duration
	now      func() time.Time
}

func NewTokenIssuer(secret string, duration time.Duration) *TokenIssuer {
	return &TokenIssuer{key: []byte(secret), duration: duration, now: time.Now}
}

// GenerateToken creates a signed JWT for the identity. Every token carries
// a unique id so it can be revoked individually on logout.
func (t *TokenIssuer) GenerateToken(identity domain.Identity) (string, *CustomClaims, error) {
	now := t.now()
	claims := &CustomClaims{
		UserID:      identity.UserID,
		Username:    identity.Username,
		DisplayName: identity.DisplayName,
		Roles:       identity.Roles,
		Actor:       identity.Actor,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(t.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// ValidateToken parses and validates the signature and expiration of a JWT string.
func (t *TokenIssuer) ValidateToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return t.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token: %w", jwt.ErrSignatureInvalid)
}
