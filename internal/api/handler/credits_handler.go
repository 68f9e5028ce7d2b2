package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/craftly/studio-api/internal/core/ports"
)

// CreditsHandler handles HTTP requests for the credit ledger.
type CreditsHandler struct {
	service ports.CreditService
}

func NewCreditsHandler(service ports.CreditService) *CreditsHandler {
	return &CreditsHandler{service: service}
}

// Balance handles GET /v1/ai/credits.
//
// @Summary      Get the caller's credit balance
// @Tags         credits
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  balanceResponse
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /v1/ai/credits [get]
func (h *CreditsHandler) Balance(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	balance, err := h.service.GetBalance(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, balanceResponse{
		Credits:      balance.Credits,
		CreditsLimit: balance.CreditsLimit,
		LastReset:    balance.LastReset,
		NextReset:    balance.NextReset,
		Costs:        balance.Costs,
	})
}

// Stats handles GET /v1/ai/credits/stats.
//
// @Summary      Get the caller's credit usage statistics
// @Tags         credits
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  usageStatsResponse
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /v1/ai/credits/stats [get]
func (h *CreditsHandler) Stats(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	stats, err := h.service.GetUsageStats(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, usageStatsResponse{
		CreditsUsed:               stats.CreditsUsed,
		CreditsRemaining:          stats.CreditsRemaining,
		CreditsLimit:              stats.CreditsLimit,
		PercentageUsed:            stats.PercentageUsed,
		LastReset:                 stats.LastReset,
		NextReset:                 stats.NextReset,
		EstimatedTextGenerations:  stats.EstimatedTextGenerations,
		EstimatedImageGenerations: stats.EstimatedImageGenerations,
	})
}

// Reset handles PATCH /v1/ai/credits/reset. Restores the caller's balance
// to the plan limit.
//
// @Summary      Reset the caller's credits to the plan limit
// @Tags         credits
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  creditsChangedResponse
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /v1/ai/credits/reset [patch]
func (h *CreditsHandler) Reset(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	balance, err := h.service.ResetCredits(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, creditsChangedResponse{Credits: balance})
}

// Add handles POST /v1/ai/credits/add. Admin-only bonus grants, clamped at
// the target account's plan limit.
//
// @Summary      Grant credits to a user
// @Tags         credits
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      addCreditsRequest  true  "Target user, amount, optional reason"
// @Success      200   {object}  creditsChangedResponse
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /v1/ai/credits/add [post]
func (h *CreditsHandler) Add(c echo.Context) error {
	var req addCreditsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	reason := req.Reason
	if reason == "" {
		reason = "bonus"
	}

	balance, err := h.service.AddCredits(c.Request().Context(), req.UserID, req.Amount, reason)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, creditsChangedResponse{Credits: balance})
}
