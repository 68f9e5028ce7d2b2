package ports

import (
	"context"
	"time"

	"github.com/craftly/studio-api/internal/core/domain"
)

// ListGenerationsFilter carries all query parameters for listing generations.
// UserID is always enforced by the service layer.
type ListGenerationsFilter struct {
	UserID string
	Kind   domain.GenerationKind // empty = both kinds
	Page   int                   // 1-based
	Limit  int                   // max rows per page (clamped to 100 by service)
}

// GenerationRepository defines persistence operations for generation records.
type GenerationRepository interface {
	// Create inserts a new record. The status is forced to processing
	// regardless of what the caller set.
	Create(ctx context.Context, g *domain.Generation) error

	// MarkCompleted transitions a record to completed with its result and
	// stamps completed_at.
	MarkCompleted(ctx context.Context, id string, variants []string, imageID, imageURL string, at time.Time) error

	// MarkFailed transitions a record to failed with the upstream error
	// detail and stamps completed_at.
	MarkFailed(ctx context.Context, id string, errorMessage string, at time.Time) error

	// FindByID retrieves a record owned by userID. Returns
	// domain.ErrGenerationNotFound when absent or owned by someone else.
	FindByID(ctx context.Context, userID, id string) (*domain.Generation, error)

	// List returns a page of records ordered by created_at descending and
	// the total count matching the filter.
	List(ctx context.Context, filter ListGenerationsFilter) ([]*domain.Generation, int64, error)
}
