package service

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/craftly/studio-api/internal/api/metrics"
	"github.com/craftly/studio-api/internal/core/domain"
	"github.com/craftly/studio-api/internal/core/ports"
)

const (
	// textVariantCount is how many variants a single text generation
	// requests from the provider. Billed as one operation regardless.
	textVariantCount = 3

	defaultImageWidth  = 1024
	defaultImageHeight = 1024

	defaultListPage  = 1
	defaultListLimit = 20
	maxListLimit     = 100

	defaultProviderTimeout = 90 * time.Second
)

// GenerationService orchestrates the generation lifecycle: credit check,
// audit record, provider call(s) with fallback, result persistence, and the
// final deduction. Deduction is strictly the last step: a failed generation
// never costs credits unless StrictReserve is enabled, in which case credits
// are reserved up front and refunded on failure.
type GenerationService struct {
	credits        ports.CreditService
	generations    ports.GenerationRepository
	assets         ports.AssetRepository
	blobs          ports.BlobStore
	text           ports.TextProvider
	imageProviders []ports.ImageProvider

	strictReserve   bool
	providerTimeout time.Duration
	logger          zerolog.Logger
}

// GenerationServiceOptions tunes orchestrator behaviour.
type GenerationServiceOptions struct {
	// StrictReserve closes the check-then-act window: credits are deducted
	// before the provider call and refunded when generation fails. The
	// default (false) accepts the documented over-commit window instead.
	StrictReserve bool
	// ProviderTimeout bounds every upstream provider call.
	ProviderTimeout time.Duration
}

func NewGenerationService(
	credits ports.CreditService,
	generations ports.GenerationRepository,
	assets ports.AssetRepository,
	blobs ports.BlobStore,
	text ports.TextProvider,
	imageProviders []ports.ImageProvider,
	opts GenerationServiceOptions,
	logger zerolog.Logger,
) *GenerationService {
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = defaultProviderTimeout
	}
	return &GenerationService{
		credits:         credits,
		generations:     generations,
		assets:          assets,
		blobs:           blobs,
		text:            text,
		imageProviders:  imageProviders,
		strictReserve:   opts.StrictReserve,
		providerTimeout: opts.ProviderTimeout,
		logger:          logger,
	}
}

// GenerateText runs one text generation end to end.
func (s *GenerationService) GenerateText(ctx context.Context, input ports.GenerateTextInput) (*ports.GenerateTextResult, error) {
	start := time.Now()
	cost := s.credits.Cost(domain.KindText)

	// 1. Pre-flight credit check. Fails the request before any record is
	// written or any provider is called.
	if err := s.ensureCredits(ctx, input.UserID, cost); err != nil {
		return nil, err
	}

	tone, length := normalizeStyle(input.Tone, input.Length)

	// 2. Audit record, created already processing.
	record := &domain.Generation{
		ID:     uuid.NewString(),
		UserID: input.UserID,
		Kind:   domain.KindText,
		Prompt: input.Prompt,
		Parameters: map[string]string{
			"tone":   tone,
			"length": length,
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.generations.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("create generation record: %w", err)
	}

	reservedBalance, reserved, err := s.maybeReserve(ctx, record, input.UserID, cost, ReasonTextGeneration)
	if err != nil {
		return nil, err
	}

	// 3. Single provider call requesting all variants at once.
	callCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()

	raw, err := s.text.Complete(callCtx, buildTextSystemPrompt(tone, length), input.Prompt, textVariantCount)
	if err != nil {
		return nil, s.failGeneration(ctx, record, reserved, input.UserID, cost,
			fmt.Errorf("text provider: %w", err))
	}

	// 4. Discard empty and whitespace-only variants.
	variants := make([]string, 0, len(raw))
	for _, v := range raw {
		if strings.TrimSpace(v) != "" {
			variants = append(variants, v)
		}
	}
	if len(variants) == 0 {
		return nil, s.failGeneration(ctx, record, reserved, input.UserID, cost,
			domain.ErrEmptyGenerationResult)
	}

	// 5. Deduction strictly after a validated result.
	balance := reservedBalance
	if !reserved {
		balance, err = s.credits.DeductCredits(ctx, input.UserID, cost, ReasonTextGeneration)
		if err != nil {
			s.markFailed(ctx, record, err)
			metrics.GenerationsTotal.WithLabelValues(string(domain.KindText), "failed").Inc()
			return nil, err
		}
	}

	// 6. Terminal transition.
	if err := s.generations.MarkCompleted(context.WithoutCancel(ctx), record.ID, variants, "", "", time.Now().UTC()); err != nil {
		if _, refundErr := s.credits.AddCredits(ctx, input.UserID, cost, "refund_"+ReasonTextGeneration); refundErr != nil {
			s.logger.Error().Err(refundErr).Str("generation_id", record.ID).Msg("refund after failed completion write")
		}
		return nil, s.failGeneration(ctx, record, false, input.UserID, cost,
			fmt.Errorf("persist result: %w", err))
	}

	metrics.GenerationsTotal.WithLabelValues(string(domain.KindText), "completed").Inc()
	metrics.GenerationDuration.WithLabelValues(string(domain.KindText)).Observe(time.Since(start).Seconds())
	s.logger.Info().
		Str("generation_id", record.ID).
		Str("user_id", input.UserID).
		Int("variants", len(variants)).
		Msg("text generation completed")

	return &ports.GenerateTextResult{
		GenerationID:     record.ID,
		Variants:         variants,
		CreditsRemaining: balance,
	}, nil
}

// GenerateImage runs one image generation through the provider fallback
// chain: first tier to succeed wins; only exhaustion of every tier fails the
// request.
func (s *GenerationService) GenerateImage(ctx context.Context, input ports.GenerateImageInput) (*ports.GenerateImageResult, error) {
	start := time.Now()
	cost := s.credits.Cost(domain.KindImage)

	if err := s.ensureCredits(ctx, input.UserID, cost); err != nil {
		return nil, err
	}

	width, height := input.Width, input.Height
	if width <= 0 {
		width = defaultImageWidth
	}
	if height <= 0 {
		height = defaultImageHeight
	}

	record := &domain.Generation{
		ID:     uuid.NewString(),
		UserID: input.UserID,
		Kind:   domain.KindImage,
		Prompt: input.Prompt,
		Parameters: map[string]string{
			"width":  strconv.Itoa(width),
			"height": strconv.Itoa(height),
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.generations.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("create generation record: %w", err)
	}

	reservedBalance, reserved, err := s.maybeReserve(ctx, record, input.UserID, cost, ReasonImageGeneration)
	if err != nil {
		return nil, err
	}

	attempt, err := s.attemptImageTiers(ctx, input.Prompt, width, height)
	if err != nil {
		return nil, s.failGeneration(ctx, record, reserved, input.UserID, cost, err)
	}

	// Stream the winning tier's bytes to durable storage and register the
	// asset before any deduction.
	assetID := uuid.NewString()
	filename := fmt.Sprintf("ai_generated_%s%s", assetID, extensionFor(attempt.ContentType))
	key, url, size, err := s.blobs.Put(context.WithoutCancel(ctx), filename, attempt.ContentType, bytes.NewReader(attempt.Data))
	if err != nil {
		return nil, s.failGeneration(ctx, record, reserved, input.UserID, cost,
			fmt.Errorf("store image: %w", err))
	}

	asset := &domain.Asset{
		ID:          assetID,
		UserID:      input.UserID,
		Filename:    filename,
		ContentType: attempt.ContentType,
		ByteSize:    size,
		StorageKey:  key,
		URL:         url,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.assets.Create(context.WithoutCancel(ctx), asset); err != nil {
		return nil, s.failGeneration(ctx, record, reserved, input.UserID, cost,
			fmt.Errorf("register asset: %w", err))
	}

	balance := reservedBalance
	if !reserved {
		balance, err = s.credits.DeductCredits(ctx, input.UserID, cost, ReasonImageGeneration)
		if err != nil {
			s.markFailed(ctx, record, err)
			metrics.GenerationsTotal.WithLabelValues(string(domain.KindImage), "failed").Inc()
			return nil, err
		}
	}

	if err := s.generations.MarkCompleted(context.WithoutCancel(ctx), record.ID, nil, assetID, url, time.Now().UTC()); err != nil {
		if _, refundErr := s.credits.AddCredits(ctx, input.UserID, cost, "refund_"+ReasonImageGeneration); refundErr != nil {
			s.logger.Error().Err(refundErr).Str("generation_id", record.ID).Msg("refund after failed completion write")
		}
		return nil, s.failGeneration(ctx, record, false, input.UserID, cost,
			fmt.Errorf("persist result: %w", err))
	}

	metrics.GenerationsTotal.WithLabelValues(string(domain.KindImage), "completed").Inc()
	metrics.GenerationDuration.WithLabelValues(string(domain.KindImage)).Observe(time.Since(start).Seconds())
	s.logger.Info().
		Str("generation_id", record.ID).
		Str("user_id", input.UserID).
		Str("image_id", assetID).
		Msg("image generation completed")

	return &ports.GenerateImageResult{
		GenerationID:     record.ID,
		ImageID:          assetID,
		ImageURL:         url,
		CreditsRemaining: balance,
	}, nil
}

// attemptImageTiers walks the fallback chain in priority order and returns
// the first successful attempt. No retries happen within a tier.
func (s *GenerationService) attemptImageTiers(ctx context.Context, prompt string, width, height int) (*ports.ImageAttempt, error) {
	var lastErr error
	for _, provider := range s.imageProviders {
		callCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
		attempt, err := provider.Attempt(callCtx, prompt, width, height)
		cancel()
		if err != nil {
			lastErr = err
			metrics.ImageTierFailuresTotal.WithLabelValues(provider.Name()).Inc()
			s.logger.Warn().Err(err).Str("tier", provider.Name()).Msg("image tier failed, falling through")
			continue
		}
		metrics.ImageTierSuccessTotal.WithLabelValues(provider.Name()).Inc()
		return attempt, nil
	}
	return nil, fmt.Errorf("%w: last tier error: %v", domain.ErrImageGenerationFailed, lastErr)
}

// GetGeneration returns one record owned by userID.
func (s *GenerationService) GetGeneration(ctx context.Context, userID, id string) (*domain.Generation, error) {
	return s.generations.FindByID(ctx, userID, id)
}

// ListGenerations returns a page of the caller's records, newest first.
func (s *GenerationService) ListGenerations(ctx context.Context, input ports.ListGenerationsInput) (*ports.ListGenerationsResult, error) {
	page := input.Page
	if page < 1 {
		page = defaultListPage
	}
	limit := input.Limit
	if limit < 1 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var kind domain.GenerationKind
	switch input.Kind {
	case string(domain.KindText):
		kind = domain.KindText
	case string(domain.KindImage):
		kind = domain.KindImage
	}

	items, total, err := s.generations.List(ctx, ports.ListGenerationsFilter{
		UserID: input.UserID,
		Kind:   kind,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &ports.ListGenerationsResult{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// ensureCredits is the fast-fail pre-flight check. Ledger errors abort the
// request before any provider call.
func (s *GenerationService) ensureCredits(ctx context.Context, userID string, cost int) error {
	ok, err := s.credits.CheckCredits(ctx, userID, cost)
	if err != nil {
		return err
	}
	if !ok {
		balance, berr := s.credits.GetBalance(ctx, userID)
		if berr != nil {
			return domain.ErrInsufficientCredits
		}
		return domain.InsufficientCreditsError(balance.Credits, cost, balance.NextReset)
	}
	return nil
}

// maybeReserve deducts up front when strict reservation is on. A failed
// reservation terminates the record immediately.
func (s *GenerationService) maybeReserve(ctx context.Context, record *domain.Generation, userID string, cost int, reason string) (int, bool, error) {
	if !s.strictReserve {
		return 0, false, nil
	}
	balance, err := s.credits.DeductCredits(ctx, userID, cost, reason)
	if err != nil {
		s.markFailed(ctx, record, err)
		return 0, false, err
	}
	return balance, true, nil
}

// failGeneration terminates the record as failed, refunds a strict-mode
// reservation, and converts the cause into the caller-visible generic
// failure. The full provider detail stays on the record.
func (s *GenerationService) failGeneration(ctx context.Context, record *domain.Generation, reserved bool, userID string, cost int, cause error) error {
	s.markFailed(ctx, record, cause)

	if reserved {
		reason := "refund_" + ReasonTextGeneration
		if record.Kind == domain.KindImage {
			reason = "refund_" + ReasonImageGeneration
		}
		if _, err := s.credits.AddCredits(ctx, userID, cost, reason); err != nil {
			s.logger.Error().Err(err).Str("generation_id", record.ID).Msg("failed to refund reserved credits")
		}
	}

	metrics.GenerationsTotal.WithLabelValues(string(record.Kind), "failed").Inc()
	s.logger.Error().Err(cause).
		Str("generation_id", record.ID).
		Str("user_id", userID).
		Str("kind", string(record.Kind)).
		Msg("generation failed")

	return fmt.Errorf("%w: %v", domain.ErrGenerationFailed, cause)
}

// markFailed writes the terminal failed status. It deliberately survives a
// cancelled request context so a handled timeout still leaves a terminal
// record.
func (s *GenerationService) markFailed(ctx context.Context, record *domain.Generation, cause error) {
	if err := s.generations.MarkFailed(context.WithoutCancel(ctx), record.ID, cause.Error(), time.Now().UTC()); err != nil {
		s.logger.Error().Err(err).Str("generation_id", record.ID).Msg("failed to mark generation as failed")
	}
}

// extensionFor picks a file extension from the provider's content type.
func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/svg+xml":
		return ".svg"
	default:
		return ".png"
	}
}
