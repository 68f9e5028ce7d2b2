package domain

import (
	"errors"
	"time"
)

// GenerationKind distinguishes the two billable operations.
type GenerationKind string

const (
	KindText  GenerationKind = "text"
	KindImage GenerationKind = "image"
)

// GenerationStatus represents the lifecycle state of a generation attempt.
type GenerationStatus string

const (
	StatusPending    GenerationStatus = "pending"
	StatusProcessing GenerationStatus = "processing"
	StatusCompleted  GenerationStatus = "completed"
	StatusFailed     GenerationStatus = "failed"
)

var ErrGenerationNotFound = errors.New("generation not found")
var ErrGenerationFailed = errors.New("generation failed")
var ErrEmptyGenerationResult = errors.New("provider returned no usable variants")
var ErrImageGenerationFailed = errors.New("all image providers failed")
var ErrProviderUnavailable = errors.New("provider unavailable")
var ErrInvalidProviderResponse = errors.New("invalid provider response")

// IsTerminal reports whether the status admits no further transitions.
func (s GenerationStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Generation is the audit record of one generation attempt. Records are
// created in `processing`, move exactly once to `completed` or `failed`,
// and are immutable afterwards.
type Generation struct {
	ID         string            `json:"id" bson:"id"`
	UserID     string            `json:"user_id" bson:"user_id"`
	Kind       GenerationKind    `json:"type" bson:"type"`
	Prompt     string            `json:"prompt" bson:"prompt"`
	Parameters map[string]string `json:"parameters,omitempty" bson:"parameters,omitempty"`
	Status     GenerationStatus  `json:"status" bson:"status"`

	// Result variants: text generations fill Variants, image generations
	// fill ImageID and ImageURL.
	Variants []string `json:"result_variants,omitempty" bson:"result_variants,omitempty"`
	ImageID  string   `json:"result_media_id,omitempty" bson:"result_media_id,omitempty"`
	ImageURL string   `json:"result_image_url,omitempty" bson:"result_image_url,omitempty"`

	ErrorMessage string     `json:"error_message,omitempty" bson:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at" bson:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}
