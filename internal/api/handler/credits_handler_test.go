package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/craftly/studio-api/internal/core/domain"
	"github.com/craftly/studio-api/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stub service
// ---------------------------------------------------------------------------

type stubCreditService struct {
	balance *ports.Balance
	stats   *ports.UsageStats

	addUserID string
	addAmount int
	addReason string

	resetUserID string
	newBalance  int
	err         error
}

func (s *stubCreditService) CheckCredits(_ context.Context, _ string, _ int) (bool, error) {
	return true, s.err
}

func (s *stubCreditService) DeductCredits(_ context.Context, _ string, _ int, _ string) (int, error) {
	return s.newBalance, s.err
}

func (s *stubCreditService) AddCredits(_ context.Context, userID string, amount int, reason string) (int, error) {
	s.addUserID = userID
	s.addAmount = amount
	s.addReason = reason
	return s.newBalance, s.err
}

func (s *stubCreditService) ResetCredits(_ context.Context, userID string) (int, error) {
	s.resetUserID = userID
	return s.newBalance, s.err
}

func (s *stubCreditService) GetBalance(_ context.Context, _ string) (*ports.Balance, error) {
	return s.balance, s.err
}

func (s *stubCreditService) GetUsageStats(_ context.Context, _ string) (*ports.UsageStats, error) {
	return s.stats, s.err
}

func (s *stubCreditService) Cost(kind domain.GenerationKind) int {
	if kind == domain.KindImage {
		return 5
	}
	return 1
}

func (s *stubCreditService) NextResetDate(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestBalanceHandler(t *testing.T) {
	svc := &stubCreditService{
		balance: &ports.Balance{
			Credits:      42,
			CreditsLimit: 100,
			NextReset:    time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
			Costs:        map[string]int{"text_generation": 1, "image_generation": 5},
		},
	}
	h := NewCreditsHandler(svc)

	c, rec := newHandlerContext(t, http.MethodGet, "/v1/ai/credits", "")
	if err := h.Balance(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp balanceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Credits != 42 || resp.CreditsLimit != 100 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Costs["image_generation"] != 5 {
		t.Fatalf("expected cost table in response, got %+v", resp.Costs)
	}
}

func TestStatsHandler(t *testing.T) {
	svc := &stubCreditService{
		stats: &ports.UsageStats{
			CreditsUsed:               75,
			CreditsRemaining:          25,
			CreditsLimit:              100,
			PercentageUsed:            75,
			NextReset:                 time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
			EstimatedTextGenerations:  25,
			EstimatedImageGenerations: 5,
		},
	}
	h := NewCreditsHandler(svc)

	c, rec := newHandlerContext(t, http.MethodGet, "/v1/ai/credits/stats", "")
	if err := h.Stats(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp usageStatsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.PercentageUsed != 75 || resp.EstimatedImageGenerations != 5 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestResetHandler_ResetsCaller(t *testing.T) {
	svc := &stubCreditService{newBalance: 100}
	h := NewCreditsHandler(svc)

	c, rec := newHandlerContext(t, http.MethodPatch, "/v1/ai/credits/reset", "")
	if err := h.Reset(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.resetUserID != "u1" {
		t.Fatalf("expected caller's own account reset, got %q", svc.resetUserID)
	}

	var resp creditsChangedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Credits != 100 {
		t.Fatalf("expected balance 100, got %d", resp.Credits)
	}
}

func TestAddHandler_DefaultsReason(t *testing.T) {
	svc := &stubCreditService{newBalance: 60}
	h := NewCreditsHandler(svc)

	c, _ := newHandlerContext(t, http.MethodPost, "/v1/ai/credits/add",
		`{"user_id":"u2","amount":20}`)
	if err := h.Add(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.addUserID != "u2" || svc.addAmount != 20 {
		t.Fatalf("unexpected add input: %s/%d", svc.addUserID, svc.addAmount)
	}
	if svc.addReason != "bonus" {
		t.Fatalf("expected default reason bonus, got %q", svc.addReason)
	}
}

func TestAddHandler_RejectsNonPositiveAmount(t *testing.T) {
	h := NewCreditsHandler(&stubCreditService{})

	c, _ := newHandlerContext(t, http.MethodPost, "/v1/ai/credits/add",
		`{"user_id":"u2","amount":0}`)
	err := h.Add(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for zero amount, got %v", err)
	}
}
