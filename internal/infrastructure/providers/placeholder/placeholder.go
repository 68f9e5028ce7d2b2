// Package placeholder implements the two fallback tiers that render
// placeholder images when the primary provider is unavailable: one labelled
// with a short model-written description of the prompt, one with a fixed
// generic label.
package placeholder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/craftly/studio-api/internal/core/domain"
	"github.com/craftly/studio-api/internal/core/ports"
)

const (
	basicLabel = "Image"

	// describePrompt asks the text provider for the short label rendered on
	// the enhanced placeholder.
	describePrompt = "Describe the following image request in 2-3 words, suitable as a caption. Reply with only those words."

	maxDescriptionWords = 3

	defaultHTTPTimeout = 15 * time.Second

	// maxImageBytes caps how much of a placeholder response is read.
	maxImageBytes = 16 << 20
)

// Client fetches rendered placeholder images from a placehold.co-style
// service. With a describer it implements the enhanced tier; without one it
// is the basic, fixed-label tier.
type Client struct {
	name      string
	baseURL   string
	http      *http.Client
	describer ports.TextProvider
	logger    zerolog.Logger
}

// NewDescribed builds the enhanced placeholder tier: the prompt is first
// condensed to a 2-3 word description by the text provider, then rendered.
func NewDescribed(baseURL string, describer ports.TextProvider, logger zerolog.Logger) *Client {
	return &Client{
		name:      "described_placeholder",
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: defaultHTTPTimeout},
		describer: describer,
		logger:    logger,
	}
}

// NewBasic builds the last-resort tier rendering the fixed "Image" label.
func NewBasic(baseURL string, logger zerolog.Logger) *Client {
	return &Client{
		name:    "basic_placeholder",
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultHTTPTimeout},
		logger:  logger,
	}
}

func (c *Client) Name() string { return c.name }

// Attempt renders a placeholder at the requested dimensions.
func (c *Client) Attempt(ctx context.Context, prompt string, width, height int) (*ports.ImageAttempt, error) {
	label := basicLabel
	if c.describer != nil {
		described, err := c.describe(ctx, prompt)
		if err != nil {
			return nil, err
		}
		label = described
	}
	return c.fetch(ctx, label, width, height)
}

// describe asks the text provider for the short caption.
func (c *Client) describe(ctx context.Context, prompt string) (string, error) {
	variants, err := c.describer.Complete(ctx, describePrompt, prompt, 1)
	if err != nil {
		return "", fmt.Errorf("describe prompt: %w", err)
	}

	description := ""
	for _, v := range variants {
		if strings.TrimSpace(v) != "" {
			description = strings.TrimSpace(v)
			break
		}
	}
	if description == "" {
		return "", fmt.Errorf("%w: empty description", domain.ErrInvalidProviderResponse)
	}

	words := strings.Fields(description)
	if len(words) > maxDescriptionWords {
		words = words[:maxDescriptionWords]
	}
	return strings.Join(words, " "), nil
}

// fetch downloads the rendered placeholder.
func (c *Client) fetch(ctx context.Context, label string, width, height int) (*ports.ImageAttempt, error) {
	endpoint := fmt.Sprintf("%s/%dx%d.png?text=%s", c.baseURL, width, height, url.QueryEscape(label))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("placeholder request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: placeholder fetch: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: placeholder service returned %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read placeholder body: %v", domain.ErrProviderUnavailable, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: placeholder service returned empty body", domain.ErrInvalidProviderResponse)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}

	c.logger.Debug().
		Str("tier", c.name).
		Str("label", label).
		Int("bytes", len(data)).
		Msg("placeholder fetched")

	return &ports.ImageAttempt{Data: data, ContentType: contentType}, nil
}
