package ports

import (
	"context"
	"time"

	"github.com/craftly/studio-api/internal/core/domain"
)

// Balance is the caller-facing view of an account's credit state.
type Balance struct {
	Credits      int
	CreditsLimit int
	LastReset    *time.Time
	NextReset    time.Time
	Costs        map[string]int
}

// UsageStats reports consumption against the plan limit plus projections of
// how many operations the remaining balance covers.
type UsageStats struct {
	CreditsUsed               int
	CreditsRemaining          int
	CreditsLimit              int
	PercentageUsed            int
	LastReset                 *time.Time
	NextReset                 time.Time
	EstimatedTextGenerations  int
	EstimatedImageGenerations int
}

// CreditService is the credit ledger: the single authority over balances,
// usage counters and the monthly reset.
type CreditService interface {
	// CheckCredits reports whether the account can afford cost. Read-only.
	CheckCredits(ctx context.Context, userID string, cost int) (bool, error)

	// DeductCredits re-validates the persisted balance and subtracts cost,
	// recording it against reason. Returns the new balance.
	DeductCredits(ctx context.Context, userID string, cost int, reason string) (int, error)

	// AddCredits grants credits, clamped at the plan limit. Returns the new
	// balance.
	AddCredits(ctx context.Context, userID string, amount int, reason string) (int, error)

	// ResetCredits restores the balance to the plan limit. Idempotent.
	ResetCredits(ctx context.Context, userID string) (int, error)

	GetBalance(ctx context.Context, userID string) (*Balance, error)
	GetUsageStats(ctx context.Context, userID string) (*UsageStats, error)

	// Cost returns the credit price of one operation of the given kind.
	Cost(kind domain.GenerationKind) int

	// NextResetDate returns the first instant of the month following now in
	// the reference zone. Pure function.
	NextResetDate(now time.Time) time.Time
}
