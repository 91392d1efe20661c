package auth

import (
	"time"

	"chatify/errors"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "chatify"

// Claims carried inside an access token. UserID is the only field the
// services trust; everything else is derived from storage per request.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies access tokens with an injected HMAC key,
// so tests and deployments choose their own secret.
type TokenManager struct {
	key      []byte
	lifetime time.Duration
}

func NewTokenManager(key []byte, lifetime time.Duration) *TokenManager {
	return &TokenManager{key: key, lifetime: lifetime}
}

func (m *TokenManager) Generate(userID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.key)
	if err != nil {
		return "", errors.ErrTokenGeneration
	}
	return signed, nil
}

// Verify parses the token, checks its signature and expiry, and returns
// the authenticated user id.
func (m *TokenManager) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.key, nil
	})
	if err != nil {
		return "", errors.ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", errors.ErrInvalidToken
	}
	return claims.UserID, nil
}
