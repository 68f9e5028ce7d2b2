// Package scheduler runs the monthly credit reset sweep: a time-driven
// maintenance job that is independent of request traffic and touches only
// the credit ledger.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/craftly/studio-api/internal/api/metrics"
)

const (
	defaultWorkers = 8
	queueBuffer    = 256
)

// Ledger is the slice of the credit service the sweep needs.
type Ledger interface {
	ResetCredits(ctx context.Context, userID string) (int, error)
	NextResetDate(now time.Time) time.Time
}

// AccountLister enumerates every account due for a reset.
type AccountLister interface {
	ListUserIDs(ctx context.Context) ([]string, error)
}

// SweepLock elects one instance per period to run the sweep. A nil lock
// means single-instance deployment: always run.
type SweepLock interface {
	Acquire(ctx context.Context, period time.Time) (bool, error)
}

// ResetScheduler fires at the start of each calendar month and restores
// every account's balance to its plan limit. Each account is independent: a
// failure resetting one is logged and the sweep continues.
type ResetScheduler struct {
	ledger   Ledger
	accounts AccountLister
	lock     SweepLock
	workers  int
	logger   zerolog.Logger

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewResetScheduler(ledger Ledger, accounts AccountLister, lock SweepLock, workers int, logger zerolog.Logger) *ResetScheduler {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &ResetScheduler{
		ledger:   ledger,
		accounts: accounts,
		lock:     lock,
		workers:  workers,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start launches the scheduling loop. Call Stop during shutdown.
func (s *ResetScheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop terminates the scheduling loop and waits for it to exit. An in-flight
// sweep finishes its current accounts first.
func (s *ResetScheduler) Stop() {
	close(s.stop)
	s.wg.Wait()
}

func (s *ResetScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	for {
		next := s.ledger.NextResetDate(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.stop:
			timer.Stop()
			return
		case <-timer.C:
			count, err := s.RunSweep(ctx, next)
			if err != nil {
				s.logger.Error().Err(err).Msg("monthly credit reset sweep failed")
				continue
			}
			s.logger.Info().Int("accounts_reset", count).Msg("monthly credit reset sweep completed")
		}
	}
}

// RunSweep resets every account once for the given period and returns how
// many were reset. Per-account failures are logged and skipped; only a
// failure to enumerate accounts (or to win the leader election) aborts.
func (s *ResetScheduler) RunSweep(ctx context.Context, period time.Time) (int, error) {
	if s.lock != nil {
		won, err := s.lock.Acquire(ctx, period)
		if err != nil {
			return 0, err
		}
		if !won {
			s.logger.Info().Time("period", period).Msg("sweep already claimed by another instance")
			return 0, nil
		}
	}

	ids, err := s.accounts.ListUserIDs(ctx)
	if err != nil {
		return 0, err
	}

	queue := make(chan string, queueBuffer)
	var reset atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for userID := range queue {
				if _, err := s.ledger.ResetCredits(ctx, userID); err != nil {
					metrics.AccountsResetTotal.WithLabelValues("error").Inc()
					s.logger.Error().Err(err).Str("user_id", userID).Msg("account reset failed, continuing sweep")
					continue
				}
				metrics.AccountsResetTotal.WithLabelValues("ok").Inc()
				reset.Add(1)
			}
		}()
	}

	for _, id := range ids {
		queue <- id
	}
	close(queue)
	wg.Wait()

	return int(reset.Load()), nil
}
