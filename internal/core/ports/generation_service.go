package ports

import (
	"context"

	"github.com/craftly/studio-api/internal/core/domain"
)

// GenerateTextInput carries one text generation request.
type GenerateTextInput struct {
	UserID string
	Prompt string
	Tone   string // professional|friendly|casual|formal|humorous, unknown falls back
	Length string // short|medium|long, unknown falls back
}

// GenerateTextResult is returned after a completed text generation.
type GenerateTextResult struct {
	GenerationID     string
	Variants         []string
	CreditsRemaining int
}

// GenerateImageInput carries one image generation request.
type GenerateImageInput struct {
	UserID string
	Prompt string
	Width  int // 0 = default 1024
	Height int // 0 = default 1024
}

// GenerateImageResult is returned after a completed image generation.
type GenerateImageResult struct {
	GenerationID     string
	ImageID          string
	ImageURL         string
	CreditsRemaining int
}

// ListGenerationsInput carries the parameters of the read-side listing.
type ListGenerationsInput struct {
	UserID string
	Kind   string // "text", "image", or empty for both
	Page   int
	Limit  int
}

// ListGenerationsResult is one page of generation records plus pagination.
type ListGenerationsResult struct {
	Items      []*domain.Generation
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// GenerationService orchestrates the generation lifecycle: credit check,
// record creation, provider calls with fallback, result persistence and the
// final deduction.
type GenerationService interface {
	GenerateText(ctx context.Context, input GenerateTextInput) (*GenerateTextResult, error)
	GenerateImage(ctx context.Context, input GenerateImageInput) (*GenerateImageResult, error)
	GetGeneration(ctx context.Context, userID, id string) (*domain.Generation, error)
	ListGenerations(ctx context.Context, input ListGenerationsInput) (*ListGenerationsResult, error)
}
