package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/craftly/studio-api/internal/core/domain"
	"github.com/craftly/studio-api/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stubs
// ---------------------------------------------------------------------------

type stubGenerationRepo struct {
	records      map[string]*domain.Generation
	order        []string // insertion order, oldest first
	completedErr error    // if set, MarkCompleted returns this error
}

func newStubGenerationRepo() *stubGenerationRepo {
	return &stubGenerationRepo{records: make(map[string]*domain.Generation)}
}

func (r *stubGenerationRepo) Create(_ context.Context, g *domain.Generation) error {
	clone := *g
	clone.Status = domain.StatusProcessing
	r.records[g.ID] = &clone
	r.order = append(r.order, g.ID)
	g.Status = domain.StatusProcessing
	return nil
}

// MarkCompleted enforces the same status guard as the real Mongo repo: only a
// processing record can transition.
func (r *stubGenerationRepo) MarkCompleted(_ context.Context, id string, variants []string, imageID, imageURL string, at time.Time) error {
	if r.completedErr != nil {
		return r.completedErr
	}
	g, ok := r.records[id]
	if !ok || g.Status != domain.StatusProcessing {
		return domain.ErrGenerationNotFound
	}
	g.Status = domain.StatusCompleted
	g.Variants = variants
	g.ImageID = imageID
	g.ImageURL = imageURL
	stamp := at
	g.CompletedAt = &stamp
	return nil
}

func (r *stubGenerationRepo) MarkFailed(_ context.Context, id string, errorMessage string, at time.Time) error {
	g, ok := r.records[id]
	if !ok || g.Status != domain.StatusProcessing {
		return domain.ErrGenerationNotFound
	}
	g.Status = domain.StatusFailed
	g.ErrorMessage = errorMessage
	stamp := at
	g.CompletedAt = &stamp
	return nil
}

func (r *stubGenerationRepo) FindByID(_ context.Context, userID, id string) (*domain.Generation, error) {
	g, ok := r.records[id]
	if !ok || g.UserID != userID {
		return nil, domain.ErrGenerationNotFound
	}
	clone := *g
	return &clone, nil
}

// List applies the same filter and ordering the real Mongo repo would use.
func (r *stubGenerationRepo) List(_ context.Context, f ports.ListGenerationsFilter) ([]*domain.Generation, int64, error) {
	var matched []*domain.Generation
	for _, id := range r.order {
		g := r.records[id]
		if g.UserID != f.UserID {
			continue
		}
		if f.Kind != "" && g.Kind != f.Kind {
			continue
		}
		clone := *g
		matched = append(matched, &clone)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := (f.Page - 1) * f.Limit
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

type stubAssetRepo struct {
	created []*domain.Asset
}

func (r *stubAssetRepo) Create(_ context.Context, a *domain.Asset) error {
	clone := *a
	r.created = append(r.created, &clone)
	return nil
}

type stubBlobStore struct {
	putCalls int
	lastSize int64
}

func (s *stubBlobStore) Put(_ context.Context, filename, _ string, r io.Reader) (string, string, int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", "", 0, err
	}
	s.putCalls++
	s.lastSize = int64(len(data))
	return filename, "http://assets.local/" + filename, int64(len(data)), nil
}

type stubTextProvider struct {
	variants []string
	err      error
	lastN    int
}

func (p *stubTextProvider) Complete(_ context.Context, _, _ string, n int) ([]string, error) {
	p.lastN = n
	if p.err != nil {
		return nil, p.err
	}
	return p.variants, nil
}

type stubImageProvider struct {
	name    string
	data    []byte
	err     error
	attempt int
}

func (p *stubImageProvider) Name() string { return p.name }

func (p *stubImageProvider) Attempt(_ context.Context, _ string, _, _ int) (*ports.ImageAttempt, error) {
	p.attempt++
	if p.err != nil {
		return nil, p.err
	}
	return &ports.ImageAttempt{Data: p.data, ContentType: "image/png"}, nil
}

// ---------------------------------------------------------------------------
// Harness
// ---------------------------------------------------------------------------

type generationFixture struct {
	accounts    *stubAccountRepo
	generations *stubGenerationRepo
	assets      *stubAssetRepo
	blobs       *stubBlobStore
	text        *stubTextProvider
	service     *GenerationService
}

func newGenerationFixture(t *testing.T, credits int, images []ports.ImageProvider, opts GenerationServiceOptions) *generationFixture {
	t.Helper()
	accounts := newStubAccountRepo(&domain.Account{UserID: "u1", Credits: credits, CreditsLimit: 100})
	generations := newStubGenerationRepo()
	assets := &stubAssetRepo{}
	blobs := &stubBlobStore{}
	text := &stubTextProvider{variants: []string{"alpha", "beta", "gamma"}}

	svc := NewGenerationService(
		NewCreditService(accounts, DefaultCostTable(), zerolog.Nop()),
		generations,
		assets,
		blobs,
		text,
		images,
		opts,
		zerolog.Nop(),
	)
	return &generationFixture{
		accounts:    accounts,
		generations: generations,
		assets:      assets,
		blobs:       blobs,
		text:        text,
		service:     svc,
	}
}

func (f *generationFixture) balance(t *testing.T) int {
	t.Helper()
	return f.accounts.accounts["u1"].Credits
}

func (f *generationFixture) record(t *testing.T, id string) *domain.Generation {
	t.Helper()
	g, ok := f.generations.records[id]
	if !ok {
		t.Fatalf("generation record %s not found", id)
	}
	return g
}

// ---------------------------------------------------------------------------
// Text generation
// ---------------------------------------------------------------------------

func TestGenerateText_Success(t *testing.T) {
	f := newGenerationFixture(t, 10, nil, GenerationServiceOptions{})

	res, err := f.service.GenerateText(context.Background(), ports.GenerateTextInput{
		UserID: "u1",
		Prompt: "launch announcement",
		Tone:   "friendly",
		Length: "short",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Variants) != 3 {
		t.Fatalf("expected 3 variants, got %d", len(res.Variants))
	}
	if res.CreditsRemaining != 9 {
		t.Fatalf("expected balance 9 after deduction, got %d", res.CreditsRemaining)
	}
	if f.text.lastN != 3 {
		t.Fatalf("expected a single call requesting 3 variants, got n=%d", f.text.lastN)
	}

	g := f.record(t, res.GenerationID)
	if g.Status != domain.StatusCompleted {
		t.Fatalf("expected completed record, got %s", g.Status)
	}
	if len(g.Variants) != 3 {
		t.Fatalf("expected variants on record, got %v", g.Variants)
	}
	if g.Parameters["tone"] != "friendly" || g.Parameters["length"] != "short" {
		t.Fatalf("expected style parameters on record, got %v", g.Parameters)
	}
	if g.CompletedAt == nil {
		t.Fatalf("expected completed_at to be stamped")
	}
}

func TestGenerateText_FiltersBlankVariants(t *testing.T) {
	f := newGenerationFixture(t, 10, nil, GenerationServiceOptions{})
	f.text.variants = []string{"only real variant", "", "   \n  "}

	res, err := f.service.GenerateText(context.Background(), ports.GenerateTextInput{
		UserID: "u1",
		Prompt: "slogan",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Variants) != 1 {
		t.Fatalf("expected 1 usable variant, got %d", len(res.Variants))
	}
	if f.balance(t) != 9 {
		t.Fatalf("one usable variant still costs one credit, balance %d", f.balance(t))
	}
}

func TestGenerateText_AllVariantsBlank(t *testing.T) {
	f := newGenerationFixture(t, 10, nil, GenerationServiceOptions{})
	f.text.variants = []string{"", "  ", "\t"}

	_, err := f.service.GenerateText(context.Background(), ports.GenerateTextInput{
		UserID: "u1",
		Prompt: "slogan",
	})
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
	if f.balance(t) != 10 {
		t.Fatalf("failed generation must not cost credits, balance %d", f.balance(t))
	}

	// Exactly one record, terminally failed.
	if len(f.generations.order) != 1 {
		t.Fatalf("expected one record, got %d", len(f.generations.order))
	}
	g := f.record(t, f.generations.order[0])
	if g.Status != domain.StatusFailed {
		t.Fatalf("expected failed record, got %s", g.Status)
	}
	if g.ErrorMessage == "" {
		t.Fatalf("expected error detail on the record")
	}
}

func TestGenerateText_ProviderError(t *testing.T) {
	f := newGenerationFixture(t, 10, nil, GenerationServiceOptions{})
	f.text.err = fmt.Errorf("%w: upstream 503", domain.ErrProviderUnavailable)

	_, err := f.service.GenerateText(context.Background(), ports.GenerateTextInput{
		UserID: "u1",
		Prompt: "slogan",
	})
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
	if f.balance(t) != 10 {
		t.Fatalf("failed generation must not cost credits, balance %d", f.balance(t))
	}
}

func TestGenerateText_InsufficientCredits(t *testing.T) {
	f := newGenerationFixture(t, 0, nil, GenerationServiceOptions{})

	_, err := f.service.GenerateText(context.Background(), ports.GenerateTextInput{
		UserID: "u1",
		Prompt: "slogan",
	})
	if !errors.Is(err, domain.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	// Pre-flight rejection: no record is ever written.
	if len(f.generations.order) != 0 {
		t.Fatalf("expected no records, got %d", len(f.generations.order))
	}
}

func TestGenerateText_StrictReserveRefundsOnFailure(t *testing.T) {
	f := newGenerationFixture(t, 10, nil, GenerationServiceOptions{StrictReserve: true})
	f.text.err = errors.New("provider down")

	_, err := f.service.GenerateText(context.Background(), ports.GenerateTextInput{
		UserID: "u1",
		Prompt: "slogan",
	})
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
	if f.balance(t) != 10 {
		t.Fatalf("reserved credits must be refunded, balance %d", f.balance(t))
	}
	if got := f.accounts.accounts["u1"].Usage[ReasonTextGeneration]; got != 1 {
		t.Fatalf("reservation should have recorded usage, got %d", got)
	}
}

func TestGenerateText_RefundWhenCompletionWriteFails(t *testing.T) {
	f := newGenerationFixture(t, 10, nil, GenerationServiceOptions{})
	f.generations.completedErr = errors.New("write timeout")

	_, err := f.service.GenerateText(context.Background(), ports.GenerateTextInput{
		UserID: "u1",
		Prompt: "slogan",
	})
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
	if f.balance(t) != 10 {
		t.Fatalf("deduction must be refunded when completion write fails, balance %d", f.balance(t))
	}
}

// ---------------------------------------------------------------------------
// Image generation and fallback chain
// ---------------------------------------------------------------------------

func TestGenerateImage_PrimarySucceeds(t *testing.T) {
	primary := &stubImageProvider{name: "openai", data: []byte("png-bytes")}
	described := &stubImageProvider{name: "described_placeholder", data: []byte("x")}
	f := newGenerationFixture(t, 10, []ports.ImageProvider{primary, described}, GenerationServiceOptions{})

	res, err := f.service.GenerateImage(context.Background(), ports.GenerateImageInput{
		UserID: "u1",
		Prompt: "a red bicycle",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.CreditsRemaining != 5 {
		t.Fatalf("expected 5 credits left after image, got %d", res.CreditsRemaining)
	}
	if res.ImageID == "" || res.ImageURL == "" {
		t.Fatalf("expected image id and url, got %+v", res)
	}
	if described.attempt != 0 {
		t.Fatalf("fallback tier must not be tried when the primary succeeds")
	}
	if len(f.assets.created) != 1 {
		t.Fatalf("expected one asset, got %d", len(f.assets.created))
	}
	if f.blobs.lastSize != int64(len("png-bytes")) {
		t.Fatalf("expected stored size %d, got %d", len("png-bytes"), f.blobs.lastSize)
	}

	g := f.record(t, res.GenerationID)
	if g.Status != domain.StatusCompleted {
		t.Fatalf("expected completed record, got %s", g.Status)
	}
	if g.ImageID != res.ImageID || g.ImageURL != res.ImageURL {
		t.Fatalf("expected image result on record, got %+v", g)
	}
}

func TestGenerateImage_FallsThroughTiers(t *testing.T) {
	primary := &stubImageProvider{name: "openai", err: errors.New("quota exceeded")}
	described := &stubImageProvider{name: "described_placeholder", err: errors.New("placeholder down")}
	basic := &stubImageProvider{name: "basic_placeholder", data: []byte("fallback-png")}
	f := newGenerationFixture(t, 10, []ports.ImageProvider{primary, described, basic}, GenerationServiceOptions{})

	res, err := f.service.GenerateImage(context.Background(), ports.GenerateImageInput{
		UserID: "u1",
		Prompt: "a red bicycle",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if primary.attempt != 1 || described.attempt != 1 || basic.attempt != 1 {
		t.Fatalf("expected each tier tried once, got %d/%d/%d",
			primary.attempt, described.attempt, basic.attempt)
	}
	// Last-resort success is still a full-price completed generation.
	if res.CreditsRemaining != 5 {
		t.Fatalf("expected deduction on fallback success, balance %d", res.CreditsRemaining)
	}
	if f.record(t, res.GenerationID).Status != domain.StatusCompleted {
		t.Fatalf("expected completed record")
	}
}

func TestGenerateImage_AllTiersFail(t *testing.T) {
	providers := []ports.ImageProvider{
		&stubImageProvider{name: "openai", err: errors.New("quota exceeded")},
		&stubImageProvider{name: "described_placeholder", err: errors.New("down")},
		&stubImageProvider{name: "basic_placeholder", err: errors.New("down too")},
	}
	f := newGenerationFixture(t, 10, providers, GenerationServiceOptions{})

	_, err := f.service.GenerateImage(context.Background(), ports.GenerateImageInput{
		UserID: "u1",
		Prompt: "a red bicycle",
	})
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
	if f.balance(t) != 10 {
		t.Fatalf("exhausted fallback must not cost credits, balance %d", f.balance(t))
	}
	g := f.record(t, f.generations.order[0])
	if g.Status != domain.StatusFailed {
		t.Fatalf("expected failed record, got %s", g.Status)
	}
	if len(f.assets.created) != 0 {
		t.Fatalf("no asset should exist after total failure")
	}
}

func TestGenerateImage_InsufficientCredits(t *testing.T) {
	f := newGenerationFixture(t, 4, []ports.ImageProvider{
		&stubImageProvider{name: "openai", data: []byte("x")},
	}, GenerationServiceOptions{})

	_, err := f.service.GenerateImage(context.Background(), ports.GenerateImageInput{
		UserID: "u1",
		Prompt: "a red bicycle",
	})
	if !errors.Is(err, domain.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits with 4 of 5 credits, got %v", err)
	}
	if len(f.generations.order) != 0 {
		t.Fatalf("expected no records on pre-flight rejection")
	}
}

func TestGenerateImage_DefaultsDimensions(t *testing.T) {
	primary := &stubImageProvider{name: "openai", data: []byte("x")}
	f := newGenerationFixture(t, 10, []ports.ImageProvider{primary}, GenerationServiceOptions{})

	res, err := f.service.GenerateImage(context.Background(), ports.GenerateImageInput{
		UserID: "u1",
		Prompt: "a red bicycle",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g := f.record(t, res.GenerationID)
	if g.Parameters["width"] != "1024" || g.Parameters["height"] != "1024" {
		t.Fatalf("expected default 1024x1024, got %v", g.Parameters)
	}
}

// ---------------------------------------------------------------------------
// Read side
// ---------------------------------------------------------------------------

func seedGenerations(t *testing.T, f *generationFixture, n int, kind domain.GenerationKind) {
	t.Helper()
	base := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		g := &domain.Generation{
			ID:        fmt.Sprintf("gen-%03d", i),
			UserID:    "u1",
			Kind:      kind,
			Prompt:    fmt.Sprintf("prompt %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := f.generations.Create(context.Background(), g); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestListGenerations_Pagination(t *testing.T) {
	f := newGenerationFixture(t, 10, nil, GenerationServiceOptions{})
	seedGenerations(t, f, 45, domain.KindText)

	res, err := f.service.ListGenerations(context.Background(), ports.ListGenerationsInput{
		UserID: "u1",
		Page:   2,
		Limit:  20,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 45 {
		t.Fatalf("expected total 45, got %d", res.Total)
	}
	if res.TotalPages != 3 {
		t.Fatalf("expected 3 pages, got %d", res.TotalPages)
	}
	if len(res.Items) != 20 {
		t.Fatalf("expected 20 items on page 2, got %d", len(res.Items))
	}
	// Newest first: page 2 starts at the 21st newest record, gen-024.
	if res.Items[0].ID != "gen-024" {
		t.Fatalf("expected gen-024 first on page 2, got %s", res.Items[0].ID)
	}
}

func TestListGenerations_ClampsInputs(t *testing.T) {
	f := newGenerationFixture(t, 10, nil, GenerationServiceOptions{})
	seedGenerations(t, f, 5, domain.KindText)

	res, err := f.service.ListGenerations(context.Background(), ports.ListGenerationsInput{
		UserID: "u1",
		Page:   -3,
		Limit:  100000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Page != 1 {
		t.Fatalf("expected page clamped to 1, got %d", res.Page)
	}
	if res.Limit != 100 {
		t.Fatalf("expected limit clamped to 100, got %d", res.Limit)
	}
}

func TestListGenerations_KindFilter(t *testing.T) {
	f := newGenerationFixture(t, 10, nil, GenerationServiceOptions{})
	seedGenerations(t, f, 3, domain.KindText)

	img := &domain.Generation{
		ID:        "gen-img",
		UserID:    "u1",
		Kind:      domain.KindImage,
		Prompt:    "picture",
		CreatedAt: time.Date(2025, 8, 2, 0, 0, 0, 0, time.UTC),
	}
	if err := f.generations.Create(context.Background(), img); err != nil {
		t.Fatalf("seed: %v", err)
	}

	res, err := f.service.ListGenerations(context.Background(), ports.ListGenerationsInput{
		UserID: "u1",
		Kind:   "image",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 1 || res.Items[0].ID != "gen-img" {
		t.Fatalf("expected only the image record, got total=%d", res.Total)
	}

	// Unknown kind values mean no filter.
	res, err = f.service.ListGenerations(context.Background(), ports.ListGenerationsInput{
		UserID: "u1",
		Kind:   "video",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 4 {
		t.Fatalf("expected all 4 records for unknown kind, got %d", res.Total)
	}
}

func TestGetGeneration_EnforcesOwnership(t *testing.T) {
	f := newGenerationFixture(t, 10, nil, GenerationServiceOptions{})
	g := &domain.Generation{
		ID:        "gen-1",
		UserID:    "u1",
		Kind:      domain.KindText,
		Prompt:    "hello",
		CreatedAt: time.Now().UTC(),
	}
	if err := f.generations.Create(context.Background(), g); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := f.service.GetGeneration(context.Background(), "u1", "gen-1"); err != nil {
		t.Fatalf("owner must be able to read, got %v", err)
	}
	if _, err := f.service.GetGeneration(context.Background(), "u2", "gen-1"); !errors.Is(err, domain.ErrGenerationNotFound) {
		t.Fatalf("foreign record must look absent, got %v", err)
	}
}
