package ports

import (
	"context"
	"time"

	"github.com/craftly/studio-api/internal/core/domain"
)

// AccountRepository defines persistence operations on the credit fields of
// user accounts. Accounts are created and destroyed elsewhere; this port
// only reads and mutates balances, limits and usage counters.
type AccountRepository interface {
	// FindByUserID returns the account or domain.ErrAccountNotFound.
	FindByUserID(ctx context.Context, userID string) (*domain.Account, error)

	// DeductCredits atomically subtracts cost from the balance and adds cost
	// to the per-reason usage counter, but only when the persisted balance is
	// still >= cost. Returns the post-deduction balance. Returns
	// domain.ErrInsufficientCredits when the guard fails and
	// domain.ErrAccountNotFound when the account does not exist.
	DeductCredits(ctx context.Context, userID string, cost int, reason string) (int, error)

	// SetCredits writes a new balance only if the persisted balance still
	// equals expected (optimistic concurrency for the add-credits clamp).
	// Returns domain.ErrInsufficientCredits-free semantics: a concurrent
	// modification surfaces as matched==false via the bool return.
	SetCredits(ctx context.Context, userID string, expected, newBalance int) (bool, error)

	// ResetCredits sets the balance back to the account's limit and stamps
	// last_reset. Idempotent.
	ResetCredits(ctx context.Context, userID string, at time.Time) error

	// ListUserIDs returns the ids of every account, for the monthly sweep.
	ListUserIDs(ctx context.Context) ([]string, error)
}
