package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync/atomic"

	"jobber/auth-api/internal/model"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

const (
	seedPassword    = "supersecure"
	seedWorkers     = 4
	seedNameCharset = "abcdefghijklmnopqrstuvwxyz0123456789"
)

var seedCountries = []string{"Germany", "India", "Brazil", "Kenya", "Canada", "Japan", "Poland", "Mexico"}

// Seed creates count fake accounts for local development and returns how
// many were actually inserted. Name collisions are skipped.
func (l *Lifecycle) Seed(ctx context.Context, count int) (int, error) {
	if count <= 0 {
		return 0, nil
	}

	// One hash for every seeded account, argon is too slow to run per user
	hash, err := l.hasher.Hash(seedPassword)
	if err != nil {
		return 0, fmt.Errorf("failed to hash seed password, %w", err)
	}

	var created atomic.Int64

	p := pool.New().
		WithContext(ctx).
		WithMaxGoroutines(seedWorkers).
		WithCancelOnError()

	for range count {
		p.Go(func(ctx context.Context) error {
			u, err := l.fakeUser(hash)
			if err != nil {
				return err
			}

			if _, err := l.createAccount(ctx, u); err != nil {
				if errors.Is(err, ErrDuplicateIdentity) {
					zap.L().Debug("Skipping duplicate seed user", zap.String("username", u.Username))
					return nil
				}

				return err
			}

			created.Add(1)
			return nil
		})
	}

	err = p.Wait()
	return int(created.Load()), err
}

func (l *Lifecycle) fakeUser(hash string) (*model.AuthUser, error) {
	name, err := gonanoid.Generate(seedNameCharset, 10)
	if err != nil {
		return nil, fmt.Errorf("failed to generate username, %w", err)
	}

	token, err := l.newToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification token, %w", err)
	}

	publicID := uuid.NewString()

	return &model.AuthUser{
		ID:                     uuid.NewString(),
		Username:               model.NormalizeUsername(name),
		Email:                  strings.ToLower(name) + "@seed.jobber.local",
		Password:               hash,
		Country:                seedCountries[rand.IntN(len(seedCountries))],
		ProfilePicture:         "https://picsum.photos/seed/" + publicID + "/200",
		ProfilePublicID:        publicID,
		EmailVerified:          rand.IntN(2),
		EmailVerificationToken: token,
		CreatedAt:              l.now(),
	}, nil
}
