package auth

import (
	"context"
	"time"
)

// Credential is the authentication view of a user account. The auth
// package reads it but never owns the underlying record.
type Credential struct {
	UserID       string
	Username     string
	PasswordHash string
	// TOTPSecret is empty when no secret has been generated.
	TOTPSecret  string
	TOTPEnabled bool
	CreatedAt   time.Time
}

// CredentialStore is the data-access interface the auth service needs.
// Lookups return ErrCredentialNotFound when no account matches; any other
// error is treated as an internal failure.
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (*Credential, error)
	FindByID(ctx context.Context, id string) (*Credential, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	// UpdateTOTP stores secret and enabled together. An empty secret
	// clears it.
	UpdateTOTP(ctx context.Context, id, secret string, enabled bool) error
}
