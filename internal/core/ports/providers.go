package ports

import "context"

// TextProvider is the chat-completion backend used for text generation and
// for the short visual descriptions of the enhanced placeholder tier.
type TextProvider interface {
	// Complete sends one chat-completion request and returns n candidate
	// completions for the prompt under the given system instruction.
	Complete(ctx context.Context, systemPrompt, userPrompt string, n int) ([]string, error)
}

// ImageAttempt is the result of one image provider tier.
type ImageAttempt struct {
	Data        []byte
	ContentType string
}

// ImageProvider is one tier of the image generation fallback chain. The
// orchestrator walks an ordered slice of these, stopping at the first
// success.
type ImageProvider interface {
	// Name identifies the tier in logs and metrics.
	Name() string

	// Attempt renders the prompt at the requested pixel dimensions. Providers
	// may substitute the nearest dimensions they support.
	Attempt(ctx context.Context, prompt string, width, height int) (*ImageAttempt, error)
}
