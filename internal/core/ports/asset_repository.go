package ports

import (
	"context"

	"github.com/craftly/studio-api/internal/core/domain"
)

// AssetRepository persists metadata for stored generated images. The media
// subsystem owns the records afterwards.
type AssetRepository interface {
	Create(ctx context.Context, a *domain.Asset) error
}
