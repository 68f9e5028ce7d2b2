package service

import "github.com/craftly/studio-api/internal/core/domain"

// Deduction reasons recorded in the per-account usage counters.
const (
	ReasonTextGeneration  = "text_generation"
	ReasonImageGeneration = "image_generation"
)

// CostTable prices each generation kind in credits. It is configuration, not
// code: the defaults mirror the free plan but deployments may override them.
type CostTable struct {
	Text  int `env:"COST_TEXT_GENERATION,  default=1"`
	Image int `env:"COST_IMAGE_GENERATION, default=5"`
}

// DefaultCostTable returns the standard pricing: 1 credit per text request
// (regardless of variant count), 5 per image.
func DefaultCostTable() CostTable {
	return CostTable{Text: 1, Image: 5}
}

// Cost returns the price of one operation of the given kind.
func (t CostTable) Cost(kind domain.GenerationKind) int {
	if kind == domain.KindImage {
		return t.Image
	}
	return t.Text
}
