package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionRepository_Revoke(t *testing.T) {
	req := require.New(t)
	repository := NewSessionRepository(openDB(t))

	revoked, err := repository.IsRevoked("jti-1")
	req.NoError(err)
	req.False(revoked)

	req.NoError(repository.Revoke("jti-1", time.Now().Add(time.Hour)))

	revoked, err = repository.IsRevoked("jti-1")
	req.NoError(err)
	req.True(revoked)
}

func TestSessionRepository_Expired_Token_Is_Not_Stored(t *testing.T) {
	req := require.New(t)
	repository := NewSessionRepository(openDB(t))

	req.NoError(repository.Revoke("jti-old", time.Now().Add(-time.Minute)))

	revoked, err := repository.IsRevoked("jti-old")
	req.NoError(err)
	req.False(revoked)
}
