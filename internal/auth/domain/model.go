// Package domain contains core types for request authentication.
package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

// User is the caller identified by a bearer token issued by the HR Docs app.
type User struct {
	ID    string
	Email string
}

// Admin is an operator identified by a configured API key.
type Admin struct {
	KeyID string
	Role  string
}

// Actor is the authorization subject for the admin.
func (a Admin) Actor() string { return "admin_key:" + a.KeyID }

type Service interface {
	AuthenticateUser(ctx context.Context, rawToken string) (User, error)
	AuthenticateAdmin(ctx context.Context, rawKey string) (Admin, error)
	IssueUserToken(user User, ttl time.Duration) (string, error)
}

var (
	ErrMissingToken  = errors.New("missing_token")
	ErrInvalidToken  = errors.New("invalid_token")
	ErrTokenExpired  = errors.New("token_expired")
	ErrNotConfigured = errors.New("auth_not_configured")
	ErrInvalidAPIKey = errors.New("invalid_api_key")
)

// HashAPIKey returns the hex sha256 of a raw key.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}
