package openai

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"github.com/craftly/studio-api/internal/core/domain"
	"github.com/craftly/studio-api/internal/core/ports"
)

// supportedSizes enumerates the dimensions the image model accepts. Caller
// dimensions are snapped to the nearest entry by area, so arbitrary sizes
// never reach the API unchanged.
var supportedSizes = []struct {
	w, h int
	name string
}{
	{256, 256, openai.CreateImageSize256x256},
	{512, 512, openai.CreateImageSize512x512},
	{1024, 1024, openai.CreateImageSize1024x1024},
	{1792, 1024, openai.CreateImageSize1792x1024},
	{1024, 1792, openai.CreateImageSize1024x1792},
}

// ImageClient is the primary tier of the image fallback chain.
type ImageClient struct {
	client *openai.Client
	model  string
	logger zerolog.Logger
}

func NewImageClient(cfg Config, logger zerolog.Logger) (*ImageClient, error) {
	client, cfg, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &ImageClient{client: client, model: cfg.ImageModel, logger: logger}, nil
}

func (c *ImageClient) Name() string { return "openai" }

// Attempt renders the prompt with the dedicated image model and returns the
// decoded image bytes.
func (c *ImageClient) Attempt(ctx context.Context, prompt string, width, height int) (*ports.ImageAttempt, error) {
	size := snapSize(width, height)

	resp, err := c.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          c.model,
		Size:           size,
		N:              1,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: image generation: %v", domain.ErrProviderUnavailable, err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("%w: image response missing data", domain.ErrInvalidProviderResponse)
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("%w: image payload not valid base64: %v", domain.ErrInvalidProviderResponse, err)
	}

	c.logger.Debug().
		Str("model", c.model).
		Str("size", size).
		Int("bytes", len(data)).
		Msg("image generated")

	return &ports.ImageAttempt{Data: data, ContentType: "image/png"}, nil
}

// snapSize picks the supported size closest in area to the requested
// dimensions, preferring the same orientation on ties.
func snapSize(width, height int) string {
	best := supportedSizes[0]
	bestDiff := -1
	requested := width * height
	for _, s := range supportedSizes {
		diff := s.w*s.h - requested
		if diff < 0 {
			diff = -diff
		}
		sameOrientation := (s.w >= s.h) == (width >= height)
		if bestDiff < 0 || diff < bestDiff || (diff == bestDiff && sameOrientation) {
			best = s
			bestDiff = diff
		}
	}
	return best.name
}
