package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const lockTTL = time.Hour

// SweepLock elects a single instance to run the monthly credit reset sweep.
// Key format: sweep:credits_reset:<year>-<month>
type SweepLock struct {
	client *redis.Client
}

// NewSweepLock creates a SweepLock wrapping the given Redis client.
func NewSweepLock(client *redis.Client) *SweepLock {
	return &SweepLock{client: client}
}

// Acquire claims the sweep for the given period. It returns true for exactly
// one caller per period; everyone else sees false and skips the sweep. The
// claim expires after lockTTL so a crashed holder does not block the next
// month.
func (l *SweepLock) Acquire(ctx context.Context, period time.Time) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(period), "1", lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("acquire sweep lock: %w", err)
	}
	return ok, nil
}

func (l *SweepLock) key(period time.Time) string {
	return fmt.Sprintf("sweep:credits_reset:%d-%02d", period.Year(), int(period.Month()))
}
