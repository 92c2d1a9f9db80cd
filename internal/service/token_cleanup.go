package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type expiredTokenStore interface {
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// TokenCleanup schedules a job that blanks password reset tokens whose
// expiry has passed. The returned scheduler is already running, stop it
// on shutdown.
func TokenCleanup(t time.Duration, s expiredTokenStore) (*cron.Cron, error) {
	if t < time.Second {
		return nil, fmt.Errorf("cleanup interval must be at least a second, got %s", t)
	}

	c := cron.New()

	_, err := c.AddFunc(fmt.Sprintf("@every %s", t), func() {
		clearExpiredTokens(context.Background(), s, utcNow())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule token cleanup, %w", err)
	}

	zap.L().Debug("Token cleanup attached", zap.Duration("tick_every", t))

	c.Start()
	return c, nil
}

func clearExpiredTokens(ctx context.Context, s expiredTokenStore, now time.Time) int64 {
	n, err := s.ClearExpiredResetTokens(ctx, now)
	if err != nil {
		zap.L().Error("Failed to cleanup expired reset tokens", zap.Error(err))
		return 0
	}

	if n > 0 {
		zap.L().Debug("Cleaned up expired reset tokens", zap.Int64("count", n))
	}

	return n
}
