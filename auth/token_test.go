package auth

import (
	"testing"
	"time"

	"chatify/errors"

	"github.com/stretchr/testify/require"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	req := require.New(t)
	tokens := NewTokenManager([]byte("test-signing-key"), time.Hour)

	token, err := tokens.Generate("user-1")
	req.NoError(err)
	req.NotEmpty(token)

	userID, err := tokens.Verify(token)
	req.NoError(err)
	req.Equal("user-1", userID)
}

func TestTokenManager_Wrong_Key_Is_Rejected(t *testing.T) {
	req := require.New(t)
	tokens := NewTokenManager([]byte("test-signing-key"), time.Hour)
	other := NewTokenManager([]byte("another-key"), time.Hour)

	foreign, err := other.Generate("user-1")
	req.NoError(err)

	_, err = tokens.Verify(foreign)
	req.ErrorIs(err, errors.ErrInvalidToken)
}

func TestTokenManager_Expired_Token_Is_Rejected(t *testing.T) {
	req := require.New(t)
	tokens := NewTokenManager([]byte("test-signing-key"), -time.Minute)

	expired, err := tokens.Generate("user-1")
	req.NoError(err)

	_, err = tokens.Verify(expired)
	req.ErrorIs(err, errors.ErrInvalidToken)
}

func TestTokenManager_Garbage_Is_Rejected(t *testing.T) {
	req := require.New(t)
	tokens := NewTokenManager([]byte("test-signing-key"), time.Hour)

	_, err := tokens.Verify("not.a.token")
	req.ErrorIs(err, errors.ErrInvalidToken)
}
