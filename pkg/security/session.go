package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrSessionInvalid = errors.New("session token invalid")

// SessionClaims is what a signed session token carries
type SessionClaims struct {
	UserID   string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type SessionSigner struct {
	secret []byte
	now    func() time.Time
}

func NewSessionSigner(secret string) *SessionSigner {
	return &SessionSigner{
		secret: []byte(secret),
		now:    time.Now,
	}
}

func (s *SessionSigner) Sign(id, email, username string) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &SessionClaims{
		UserID:   id,
		Email:    email,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(s.now()),
		},
	})

	return t.SignedString(s.secret)
}

func (s *SessionSigner) Parse(tokenStr string) (*SessionClaims, error) {
	claims := &SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}

		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w, %w", ErrSessionInvalid, err)
	}

	if !token.Valid || claims.UserID == "" {
		return nil, ErrSessionInvalid
	}

	return claims, nil
}
