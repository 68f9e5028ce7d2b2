package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/craftly/studio-api/internal/api/metrics"
	"github.com/craftly/studio-api/internal/core/domain"
	"github.com/craftly/studio-api/internal/core/ports"
)

// setCreditsRetries bounds the optimistic-concurrency loop in AddCredits.
const setCreditsRetries = 3

// resetZone is the reference time zone for the monthly reset schedule.
var resetZone = time.UTC

type CreditService struct {
	repo   ports.AccountRepository
	costs  CostTable
	logger zerolog.Logger
}

func NewCreditService(repo ports.AccountRepository, costs CostTable, logger zerolog.Logger) *CreditService {
	return &CreditService{repo: repo, costs: costs, logger: logger}
}

// CheckCredits reports whether the account can afford cost. It never mutates
// state; callers must not assume the answer still holds by deduction time.
func (s *CreditService) CheckCredits(ctx context.Context, userID string, cost int) (bool, error) {
	account, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return false, err
	}
	return account.Credits >= cost, nil
}

// DeductCredits subtracts cost from the persisted balance and records it
// against reason. The balance is re-validated inside a single conditional
// write, so a concurrent deduction that already spent the credits surfaces
// here as ErrInsufficientCredits even after an earlier successful check.
func (s *CreditService) DeductCredits(ctx context.Context, userID string, cost int, reason string) (int, error) {
	account, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}

	newBalance, err := s.repo.DeductCredits(ctx, userID, cost, reason)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			// Guard failed: either the balance was already short or a
			// concurrent deduction spent it first. Reread for an accurate
			// message, falling back to the stale balance if the read fails.
			if fresh, ferr := s.repo.FindByUserID(ctx, userID); ferr == nil {
				account = fresh
			}
			return 0, s.insufficientErr(account.Credits, cost)
		}
		return 0, err
	}

	metrics.CreditsDeductedTotal.WithLabelValues(reason).Add(float64(cost))
	s.logger.Info().
		Str("user_id", userID).
		Str("reason", reason).
		Int("cost", cost).
		Int("new_balance", newBalance).
		Msg("credits deducted")

	return newBalance, nil
}

// AddCredits grants credits to the account, clamped at the plan limit so
// bonuses never push the balance above it. Returns the new balance.
func (s *CreditService) AddCredits(ctx context.Context, userID string, amount int, reason string) (int, error) {
	for attempt := 0; attempt < setCreditsRetries; attempt++ {
		account, err := s.repo.FindByUserID(ctx, userID)
		if err != nil {
			return 0, err
		}

		newBalance := account.Credits + amount
		if newBalance > account.CreditsLimit {
			newBalance = account.CreditsLimit
		}

		ok, err := s.repo.SetCredits(ctx, userID, account.Credits, newBalance)
		if err != nil {
			return 0, err
		}
		if ok {
			s.logger.Info().
				Str("user_id", userID).
				Str("reason", reason).
				Int("amount", amount).
				Int("new_balance", newBalance).
				Msg("credits added")
			return newBalance, nil
		}
		// Balance moved under us; reread and clamp again.
	}
	return 0, fmt.Errorf("add credits: balance for user %s kept changing", userID)
}

// ResetCredits restores the balance to the plan limit and stamps last_reset.
// A full reset, not additive, and idempotent.
func (s *CreditService) ResetCredits(ctx context.Context, userID string) (int, error) {
	account, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}

	if err := s.repo.ResetCredits(ctx, userID, time.Now().In(resetZone)); err != nil {
		return 0, err
	}

	s.logger.Info().
		Str("user_id", userID).
		Int("new_balance", account.CreditsLimit).
		Msg("credits reset")

	return account.CreditsLimit, nil
}

// GetBalance returns the caller-facing view of the account's credit state,
// including the cost table and the next scheduled reset.
func (s *CreditService) GetBalance(ctx context.Context, userID string) (*ports.Balance, error) {
	account, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &ports.Balance{
		Credits:      account.Credits,
		CreditsLimit: account.CreditsLimit,
		LastReset:    account.LastReset,
		NextReset:    s.NextResetDate(time.Now().In(resetZone)),
		Costs: map[string]int{
			ReasonTextGeneration:  s.costs.Text,
			ReasonImageGeneration: s.costs.Image,
		},
	}, nil
}

// GetUsageStats derives consumption figures and projected operation counts
// from the current balance.
func (s *CreditService) GetUsageStats(ctx context.Context, userID string) (*ports.UsageStats, error) {
	account, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	used := account.CreditsLimit - account.Credits
	percentage := 0
	if account.CreditsLimit > 0 {
		percentage = int(math.Round(float64(used) / float64(account.CreditsLimit) * 100))
	}

	return &ports.UsageStats{
		CreditsUsed:               used,
		CreditsRemaining:          account.Credits,
		CreditsLimit:              account.CreditsLimit,
		PercentageUsed:            percentage,
		LastReset:                 account.LastReset,
		NextReset:                 s.NextResetDate(time.Now().In(resetZone)),
		EstimatedTextGenerations:  account.Credits / s.costs.Text,
		EstimatedImageGenerations: account.Credits / s.costs.Image,
	}, nil
}

// Cost returns the credit price of one operation of the given kind.
func (s *CreditService) Cost(kind domain.GenerationKind) int {
	return s.costs.Cost(kind)
}

// NextResetDate returns midnight on the first day of the month following now,
// in the reference zone. Pure function of its argument.
func (s *CreditService) NextResetDate(now time.Time) time.Time {
	now = now.In(resetZone)
	return time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, resetZone)
}

func (s *CreditService) insufficientErr(balance, cost int) error {
	return domain.InsufficientCreditsError(balance, cost, s.NextResetDate(time.Now().In(resetZone)))
}
