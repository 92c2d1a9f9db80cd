// Package service holds the account lifecycle: signup, sign in, email
// verification and the password flows, plus the jobs around them.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jobber/auth-api/internal/model"
	"jobber/auth-api/internal/storage"
	"jobber/auth-api/internal/store"
	"jobber/auth-api/pkg/security"
	"jobber/auth-api/validators"

	"github.com/google/uuid"
)

type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, payload any, logMessage string)
}

type PasswordHasher interface {
	Hash(p string) (string, error)
	Compare(p, encoded string) (bool, error)
}

type SessionSigner interface {
	Sign(id, email, username string) (string, error)
}

type LifecycleDeps struct {
	Store    store.CredentialStore
	Hasher   PasswordHasher
	Sessions SessionSigner
	Events   EventPublisher
	Pictures storage.ProfileStorage

	// ClientURL is the web client base, links in emails point there
	ClientURL string
}

type Lifecycle struct {
	store     store.CredentialStore
	hasher    PasswordHasher
	sessions  SessionSigner
	events    EventPublisher
	pictures  storage.ProfileStorage
	clientURL string

	now      func() time.Time
	newToken func() (string, error)
}

type Option func(*Lifecycle)

// WithClock replaces time.Now, tests use it to pin token expiry. Readings
// are still stored as UTC.
func WithClock(now func() time.Time) Option {
	return func(l *Lifecycle) {
		if now != nil {
			l.now = func() time.Time { return now().UTC() }
		}
	}
}

// utcNow is the clock behind every stored timestamp. sqlite compares times
// as text, so they must all carry the same offset.
func utcNow() time.Time {
	return time.Now().UTC()
}

func NewLifecycle(d LifecycleDeps, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		store:     d.Store,
		hasher:    d.Hasher,
		sessions:  d.Sessions,
		events:    d.Events,
		pictures:  d.Pictures,
		clientURL: d.ClientURL,
		now:       utcNow,
		newToken:  security.GenerateToken,
	}

	if l.pictures == nil {
		l.pictures = storage.Passthrough{}
	}

	for _, o := range opts {
		o(l)
	}

	return l
}

// Signup registers a new unverified account and asks the notification
// service to send the confirmation link
func (l *Lifecycle) Signup(ctx context.Context, req SignupRequest) (*AuthResult, error) {
	username := model.NormalizeUsername(req.Username)

	_, err := l.store.FindByUsernameOrEmail(ctx, username, req.Email)
	if err == nil {
		return nil, ErrDuplicateIdentity
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to check if user exists, %w", err)
	}

	publicID := uuid.NewString()

	picture, err := l.pictures.Upload(ctx, req.ProfilePicture, publicID)
	if err != nil {
		return nil, fmt.Errorf("%w, %w", ErrUploadFailure, err)
	}

	hash, err := l.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password, %w", err)
	}

	token, err := l.newToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification token, %w", err)
	}

	u, err := l.createAccount(ctx, &model.AuthUser{
		ID:                     uuid.NewString(),
		Username:               username,
		Email:                  req.Email,
		Password:               hash,
		Country:                req.Country,
		ProfilePicture:         picture,
		ProfilePublicID:        publicID,
		EmailVerified:          0,
		EmailVerificationToken: token,
		CreatedAt:              l.now(),
	})
	if err != nil {
		return nil, err
	}

	l.sendVerificationEmail(ctx, u.Email, token)

	return l.authResult(u)
}

// createAccount persists u and announces it to the buyer projection. Two
// signups racing past the existence check end up here, the unique indexes
// let only one through.
func (l *Lifecycle) createAccount(ctx context.Context, u *model.AuthUser) (*model.PublicUser, error) {
	created, err := l.store.Create(ctx, u)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrDuplicateIdentity
		}

		return nil, fmt.Errorf("failed to create user, %w", err)
	}

	l.events.Publish(ctx, ExchangeBuyerUpdate, RoutingKeyUserBuyer, AccountCreated{
		Username:       created.Username,
		Email:          created.Email,
		ProfilePicture: created.ProfilePicture,
		Country:        created.Country,
		CreatedAt:      created.CreatedAt,
		Type:           "auth",
	}, "Buyer details sent to buyer service")

	return created, nil
}

// SignIn accepts a username or an email. Unknown users and wrong passwords
// produce the same error.
func (l *Lifecycle) SignIn(ctx context.Context, req SignInRequest) (*AuthResult, error) {
	var creds *store.Credentials
	var err error

	if validators.IsEmail(req.Username) {
		creds, err = l.store.CredentialsByEmail(ctx, req.Username)
	} else {
		creds, err = l.store.CredentialsByUsername(ctx, req.Username)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}

		return nil, fmt.Errorf("failed to find user, %w", err)
	}

	ok, err := l.hasher.Compare(req.Password, creds.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password, %w", err)
	}

	if !ok {
		return nil, ErrInvalidCredentials
	}

	return l.authResult(creds.User)
}

// VerifyEmail consumes a verification token. Tokens are single use, a replay
// fails like an unknown token.
func (l *Lifecycle) VerifyEmail(ctx context.Context, token string) (*model.PublicUser, error) {
	u, err := l.store.FindByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidOrUsedToken
		}

		return nil, fmt.Errorf("failed to find verification token, %w", err)
	}

	if err := l.store.UpdateVerification(ctx, u.ID, 1, ""); err != nil {
		return nil, fmt.Errorf("failed to mark email as verified, %w", err)
	}

	return l.store.FindByID(ctx, u.ID)
}

// ResendVerification replaces the verification token of accountID and mails
// a new link. The email has to belong to accountID.
func (l *Lifecycle) ResendVerification(ctx context.Context, email, accountID string) (*model.PublicUser, error) {
	u, err := l.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnknownEmail
		}

		return nil, fmt.Errorf("failed to find user by email, %w", err)
	}

	if accountID != "" && u.ID != accountID {
		return nil, ErrUnknownEmail
	}

	token, err := l.newToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification token, %w", err)
	}

	if err := l.store.UpdateVerification(ctx, u.ID, 0, token); err != nil {
		return nil, fmt.Errorf("failed to store verification token, %w", err)
	}

	l.sendVerificationEmail(ctx, u.Email, token)

	return l.store.FindByID(ctx, u.ID)
}

func (l *Lifecycle) sendVerificationEmail(ctx context.Context, email, token string) {
	l.events.Publish(ctx, ExchangeEmailNotification, RoutingKeyAuthEmail, VerificationRequested{
		ReceiverEmail: email,
		VerifyLink:    l.clientURL + "/confirm_email?v_token=" + token,
		Template:      TemplateVerifyEmail,
	}, "Verify email message has been sent to notification service")
}

// ForgotPassword starts a reset, the link is valid for ResetTokenTTL
func (l *Lifecycle) ForgotPassword(ctx context.Context, email string) error {
	u, err := l.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUnknownEmail
		}

		return fmt.Errorf("failed to find user by email, %w", err)
	}

	token, err := l.newToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token, %w", err)
	}

	if err := l.store.UpdateResetToken(ctx, u.ID, token, security.ResetExpiry(l.now())); err != nil {
		return fmt.Errorf("failed to store reset token, %w", err)
	}

	l.events.Publish(ctx, ExchangeEmailNotification, RoutingKeyAuthEmail, PasswordResetRequested{
		ReceiverEmail: u.Email,
		ResetLink:     l.clientURL + "/reset_password?token=" + token,
		Username:      u.Username,
		Template:      TemplateForgotPassword,
	}, "Forgot password message sent to notification service")

	return nil
}

// ResetPassword finishes a reset started by ForgotPassword
func (l *Lifecycle) ResetPassword(ctx context.Context, token string, req ResetPasswordRequest) error {
	if req.Password != req.ConfirmPassword {
		return ErrPasswordMismatch
	}

	now := l.now()

	u, err := l.store.FindByResetToken(ctx, token, now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrExpiredOrInvalidToken
		}

		return fmt.Errorf("failed to find reset token, %w", err)
	}

	if err := l.setPassword(ctx, u, req.Password, now); err != nil {
		return err
	}

	l.sendPasswordChanged(ctx, u.Username, "Reset password message sent to notification service")
	return nil
}

// ChangePassword sets a new password for an already authenticated user.
// CurrentPassword is not checked against the stored hash, the session is
// the only proof of identity here.
func (l *Lifecycle) ChangePassword(ctx context.Context, username string, req ChangePasswordRequest) error {
	if req.CurrentPassword == req.NewPassword {
		return ErrPasswordReuse
	}

	u, err := l.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}

		return fmt.Errorf("failed to find user, %w", err)
	}

	if err := l.setPassword(ctx, u, req.NewPassword, l.now()); err != nil {
		return err
	}

	l.sendPasswordChanged(ctx, u.Username, "Change password message sent to notification service")
	return nil
}

func (l *Lifecycle) setPassword(ctx context.Context, u *model.PublicUser, password string, now time.Time) error {
	hash, err := l.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password, %w", err)
	}

	if err := l.store.UpdatePassword(ctx, u.ID, hash, now); err != nil {
		return fmt.Errorf("failed to update password, %w", err)
	}

	return nil
}

func (l *Lifecycle) sendPasswordChanged(ctx context.Context, username, logMessage string) {
	l.events.Publish(ctx, ExchangeEmailNotification, RoutingKeyAuthEmail, PasswordChanged{
		Username: username,
		Template: TemplateResetPasswordSuccess,
	}, logMessage)
}

// CurrentUser returns nil without an error when the account is gone
func (l *Lifecycle) CurrentUser(ctx context.Context, id string) (*model.PublicUser, error) {
	u, err := l.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to find user, %w", err)
	}

	return u, nil
}

// RefreshToken signs a fresh session token for username
func (l *Lifecycle) RefreshToken(ctx context.Context, username string) (*AuthResult, error) {
	u, err := l.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}

		return nil, fmt.Errorf("failed to find user, %w", err)
	}

	return l.authResult(u)
}

func (l *Lifecycle) authResult(u *model.PublicUser) (*AuthResult, error) {
	token, err := l.sessions.Sign(u.ID, u.Email, u.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token, %w", err)
	}

	return &AuthResult{User: u, Token: token}, nil
}
