package blog

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/jmcleod/phantom/auth"
)

var _ auth.CredentialStore = (*Store)(nil)

// CreateUser adds an author account. passwordHash must already be a
// bcrypt digest.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, invalid("username", "is required")
	}
	if passwordHash == "" {
		return nil, invalid("password", "is required")
	}
	var existing int64
	if err := s.db.WithContext(ctx).Model(&User{}).Where("username = ?", username).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrConflict
	}
	u := &User{Username: username, PasswordHash: passwordHash}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// GetUser returns the account with the given id.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// FindByUsername implements auth.CredentialStore.
func (s *Store) FindByUsername(ctx context.Context, username string) (*auth.Credential, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, "username = ?", username).Error; err != nil {
		return nil, credentialErr(err)
	}
	return credentialOf(&u), nil
}

// FindByID implements auth.CredentialStore.
func (s *Store) FindByID(ctx context.Context, id string) (*auth.Credential, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, credentialErr(err)
	}
	return credentialOf(&u), nil
}

// UpdatePasswordHash implements auth.CredentialStore.
func (s *Store) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return s.updateUser(ctx, id, map[string]any{"password_hash": hash})
}

// UpdateTOTP implements auth.CredentialStore.
func (s *Store) UpdateTOTP(ctx context.Context, id, secret string, enabled bool) error {
	return s.updateUser(ctx, id, map[string]any{"totp_secret": secret, "totp_enabled": enabled})
}

func (s *Store) updateUser(ctx context.Context, id string, values map[string]any) error {
	res := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return auth.ErrCredentialNotFound
	}
	return nil
}

func credentialErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return auth.ErrCredentialNotFound
	}
	return err
}

func credentialOf(u *User) *auth.Credential {
	return &auth.Credential{
		UserID:       u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		TOTPSecret:   u.TOTPSecret,
		TOTPEnabled:  u.TOTPEnabled,
		CreatedAt:    u.CreatedAt,
	}
}
