// Package store is the credential store. Every lookup hands out the public
// view of a user, the password hash only leaves through the Credentials* methods.
package store

import (
	"context"
	"errors"
	"time"

	"jobber/auth-api/internal/model"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("username or email already taken")
)

// Credentials pairs a user with the stored hash, used only for sign in
type Credentials struct {
	User         *model.PublicUser
	PasswordHash string
}

type CredentialStore interface {
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.PublicUser, error)
	FindByUsername(ctx context.Context, username string) (*model.PublicUser, error)
	FindByEmail(ctx context.Context, email string) (*model.PublicUser, error)
	FindByID(ctx context.Context, id string) (*model.PublicUser, error)
	FindByVerificationToken(ctx context.Context, token string) (*model.PublicUser, error)
	FindByResetToken(ctx context.Context, token string, now time.Time) (*model.PublicUser, error)

	CredentialsByUsername(ctx context.Context, username string) (*Credentials, error)
	CredentialsByEmail(ctx context.Context, email string) (*Credentials, error)

	Create(ctx context.Context, u *model.AuthUser) (*model.PublicUser, error)
	UpdateVerification(ctx context.Context, id string, verified int, token string) error
	UpdateResetToken(ctx context.Context, id, token string, expires time.Time) error
	UpdatePassword(ctx context.Context, id, hash string, now time.Time) error
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) first(ctx context.Context, query string, args ...any) (*model.AuthUser, error) {
	var u model.AuthUser

	err := s.db.WithContext(ctx).
		Where(query, args...).
		First(&u).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return &u, nil
}

func (s *Store) public(ctx context.Context, query string, args ...any) (*model.PublicUser, error) {
	u, err := s.first(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return u.Public(), nil
}

func (s *Store) FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.PublicUser, error) {
	return s.public(ctx, "username = ? OR email = ?", model.NormalizeUsername(username), email)
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*model.PublicUser, error) {
	return s.public(ctx, "username = ?", model.NormalizeUsername(username))
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*model.PublicUser, error) {
	return s.public(ctx, "email = ?", email)
}

func (s *Store) FindByID(ctx context.Context, id string) (*model.PublicUser, error) {
	return s.public(ctx, "id = ?", id)
}

func (s *Store) FindByVerificationToken(ctx context.Context, token string) (*model.PublicUser, error) {
	// Consumed tokens are stored as "", which must never match
	if token == "" {
		return nil, ErrNotFound
	}

	return s.public(ctx, "email_verification_token = ?", token)
}

func (s *Store) FindByResetToken(ctx context.Context, token string, now time.Time) (*model.PublicUser, error) {
	if token == "" {
		return nil, ErrNotFound
	}

	return s.public(ctx, "password_reset_token = ? AND password_reset_expires > ?", token, now)
}

func (s *Store) credentials(ctx context.Context, query string, args ...any) (*Credentials, error) {
	u, err := s.first(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &Credentials{User: u.Public(), PasswordHash: u.Password}, nil
}

func (s *Store) CredentialsByUsername(ctx context.Context, username string) (*Credentials, error) {
	return s.credentials(ctx, "username = ?", model.NormalizeUsername(username))
}

func (s *Store) CredentialsByEmail(ctx context.Context, email string) (*Credentials, error) {
	return s.credentials(ctx, "email = ?", email)
}

func (s *Store) Create(ctx context.Context, u *model.AuthUser) (*model.PublicUser, error) {
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrConflict
		}

		return nil, err
	}

	return u.Public(), nil
}

func (s *Store) update(ctx context.Context, id string, fields map[string]any) error {
	r := s.db.WithContext(ctx).
		Model(&model.AuthUser{}).
		Where("id = ?", id).
		Updates(fields)
	if r.Error != nil {
		return r.Error
	}

	if r.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *Store) UpdateVerification(ctx context.Context, id string, verified int, token string) error {
	return s.update(ctx, id, map[string]any{
		"email_verified":           verified,
		"email_verification_token": token,
	})
}

func (s *Store) UpdateResetToken(ctx context.Context, id, token string, expires time.Time) error {
	return s.update(ctx, id, map[string]any{
		"password_reset_token":   token,
		"password_reset_expires": expires,
	})
}

// UpdatePassword stores a new hash and marks any pending reset token as used
func (s *Store) UpdatePassword(ctx context.Context, id, hash string, now time.Time) error {
	return s.update(ctx, id, map[string]any{
		"password":               hash,
		"password_reset_token":   "",
		"password_reset_expires": now,
	})
}

func (s *Store) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	r := s.db.WithContext(ctx).
		Model(&model.AuthUser{}).
		Where("password_reset_token <> '' AND password_reset_expires < ?", now).
		Update("password_reset_token", "")

	return r.RowsAffected, r.Error
}

var _ CredentialStore = (*Store)(nil)
