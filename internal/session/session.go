// Package session carries the signed-in user's identity explicitly, so
// components that need "is this the current user" get it injected instead of
// reading global app storage.
package session

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNoSubject is returned when a token carries no user id.
	ErrNoSubject = errors.New("session token has no subject")

	// ErrInvalidToken is returned when a token fails verification.
	ErrInvalidToken = errors.New("invalid session token")
)

// Identity is the signed-in user.
type Identity struct {
	UserID   string
	Username string
	Token    string
}

// IsCurrentUser reports whether userID is the signed-in user.
func (id *Identity) IsCurrentUser(userID string) bool {
	return id != nil && id.UserID != "" && id.UserID == userID
}

// Claims is the JWT payload issued by the recipe service.
type Claims struct {
	Username string `json:"username,omitempty"`
	gojwt.RegisteredClaims
}

// FromToken reads the identity from a bearer token without verifying its
// signature; the client trusts the server to reject a forged token.
func FromToken(token string) (*Identity, error) {
	parser := gojwt.NewParser()
	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse session token: %w", err)
	}
	if claims.Subject == "" {
		return nil, ErrNoSubject
	}
	return &Identity{UserID: claims.Subject, Username: claims.Username, Token: token}, nil
}

// Sign issues an HS256 token for userID. Used by the development backend and
// the `token` command.
func Sign(secret []byte, userID, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: username,
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:  userID,
			IssuedAt: gojwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = gojwt.NewNumericDate(now.Add(ttl))
	}
	signed, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify checks an HS256 token against secret and returns its identity.
func Verify(secret []byte, token string) (*Identity, error) {
	claims := &Claims{}
	_, err := gojwt.ParseWithClaims(token, claims, func(t *gojwt.Token) (any, error) {
		return secret, nil
	}, gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, ErrNoSubject
	}
	return &Identity{UserID: claims.Subject, Username: claims.Username, Token: token}, nil
}
