package handler

import (
	"time"

	"github.com/craftly/studio-api/internal/core/domain"
)

type generateTextRequest struct {
	Prompt string `json:"prompt" validate:"required"`
	Tone   string `json:"tone"   validate:"omitempty,oneof=professional friendly casual formal humorous"`
	Length string `json:"length" validate:"omitempty,oneof=short medium long"`
}

type generateTextResponse struct {
	Variants         []string `json:"variants"`
	GenerationID     string   `json:"generation_id"`
	CreditsRemaining int      `json:"credits_remaining"`
}

type generateImageRequest struct {
	Prompt string `json:"prompt" validate:"required"`
	Width  int    `json:"width"  validate:"omitempty,min=100,max=4000"`
	Height int    `json:"height" validate:"omitempty,min=100,max=4000"`
}

type generateImageResponse struct {
	Status           string `json:"status"`
	GenerationID     string `json:"generation_id"`
	ImageID          string `json:"image_id"`
	ImageURL         string `json:"image_url"`
	CreditsRemaining int    `json:"credits_remaining"`
}

type generationResponse struct {
	ID           string            `json:"id"`
	Type         string            `json:"type"`
	Prompt       string            `json:"prompt"`
	Parameters   map[string]string `json:"parameters,omitempty"`
	Status       string            `json:"status"`
	Variants     []string          `json:"result_variants,omitempty"`
	ImageID      string            `json:"result_media_id,omitempty"`
	ImageURL     string            `json:"result_image_url,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
}

type paginationResponse struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type listGenerationsResponse struct {
	Generations []generationResponse `json:"generations"`
	Pagination  paginationResponse   `json:"pagination"`
}

func toGenerationResponse(g *domain.Generation) generationResponse {
	return generationResponse{
		ID:           g.ID,
		Type:         string(g.Kind),
		Prompt:       g.Prompt,
		Parameters:   g.Parameters,
		Status:       string(g.Status),
		Variants:     g.Variants,
		ImageID:      g.ImageID,
		ImageURL:     g.ImageURL,
		ErrorMessage: g.ErrorMessage,
		CreatedAt:    g.CreatedAt,
		CompletedAt:  g.CompletedAt,
	}
}
