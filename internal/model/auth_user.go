// Package model defines database models
package model

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// AuthUser is the identity record. The password column holds an argon2id
// hash and must never leave the store layer, use Public() instead.
type AuthUser struct {
	ID                     string     `gorm:"primaryKey;type:varchar(36)"`
	Username               string     `gorm:"uniqueIndex;not null"`
	Email                  string     `gorm:"uniqueIndex;not null"`
	Password               string     `gorm:"not null"`
	Country                string     `gorm:"not null"`
	ProfilePicture         string     `gorm:"not null"`
	ProfilePublicID        string     `gorm:"index"`
	EmailVerified          int        `gorm:"default:0"`
	EmailVerificationToken string     `gorm:"index"`
	PasswordResetToken     string     `gorm:"index"`
	PasswordResetExpires   *time.Time // Always set together with PasswordResetToken
	CreatedAt              time.Time
}

func (AuthUser) TableName() string {
	return "auths"
}

// PublicUser is what callers get to see of an AuthUser
type PublicUser struct {
	ID                     string     `json:"id"`
	Username               string     `json:"username"`
	Email                  string     `json:"email"`
	Country                string     `json:"country"`
	ProfilePicture         string     `json:"profilePicture"`
	ProfilePublicID        string     `json:"profilePublicId"`
	EmailVerified          int        `json:"emailVerified"`
	EmailVerificationToken string     `json:"emailVerificationToken,omitempty"`
	PasswordResetExpires   *time.Time `json:"passwordResetExpires,omitempty"`
	CreatedAt              time.Time  `json:"createdAt"`
}

func (u *AuthUser) Public() *PublicUser {
	if u == nil {
		return nil
	}

	return &PublicUser{
		ID:                     u.ID,
		Username:               u.Username,
		Email:                  u.Email,
		Country:                u.Country,
		ProfilePicture:         u.ProfilePicture,
		ProfilePublicID:        u.ProfilePublicID,
		EmailVerified:          u.EmailVerified,
		EmailVerificationToken: u.EmailVerificationToken,
		PasswordResetExpires:   u.PasswordResetExpires,
		CreatedAt:              u.CreatedAt,
	}
}

// NormalizeUsername lowercases a username and capitalizes its first letter,
// which is the form usernames are stored in.
func NormalizeUsername(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return s
	}

	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
