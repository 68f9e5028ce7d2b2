package domain

import (
	"errors"
	"fmt"
	"time"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// DefaultCreditsLimit is applied to accounts whose plan never set one.
const DefaultCreditsLimit = 100

var ErrAccountNotFound = errors.New("account not found")
var ErrInsufficientCredits = errors.New("insufficient credits")
var ErrForbidden = errors.New("access forbidden")

// InsufficientCreditsError wraps ErrInsufficientCredits with everything the
// user needs to understand the rejection: current balance, required cost and
// the next reset date.
func InsufficientCreditsError(balance, cost int, nextReset time.Time) error {
	return fmt.Errorf("%w: you have %d credits but need %d; credits reset on %s",
		ErrInsufficientCredits, balance, cost, nextReset.Format("2006-01-02"))
}

// Account is the billing/quota projection of a user. It is owned by the
// identity subsystem; this core only mutates the credit fields.
type Account struct {
	UserID       string         `json:"user_id" bson:"id"`
	Credits      int            `json:"credits" bson:"ai_credits"`
	CreditsLimit int            `json:"credits_limit" bson:"ai_credits_limit"`
	LastReset    *time.Time     `json:"last_reset,omitempty" bson:"ai_credits_last_reset,omitempty"`
	Usage        map[string]int `json:"usage,omitempty" bson:"ai_usage,omitempty"`
}
