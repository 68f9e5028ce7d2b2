package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/craftly/studio-api/internal/core/ports"
)

// GenerationHandler handles HTTP requests for AI generation operations.
type GenerationHandler struct {
	service ports.GenerationService
}

func NewGenerationHandler(service ports.GenerationService) *GenerationHandler {
	return &GenerationHandler{service: service}
}

// GenerateText handles POST /v1/ai/generate-text.
//
// @Summary      Generate text variants from a prompt
// @Tags         ai
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      generateTextRequest  true  "Prompt with optional tone and length"
// @Success      200   {object}  generateTextResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /v1/ai/generate-text [post]
func (h *GenerationHandler) GenerateText(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	var req generateTextRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	result, err := h.service.GenerateText(c.Request().Context(), ports.GenerateTextInput{
		UserID: userID,
		Prompt: req.Prompt,
		Tone:   req.Tone,
		Length: req.Length,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, generateTextResponse{
		Variants:         result.Variants,
		GenerationID:     result.GenerationID,
		CreditsRemaining: result.CreditsRemaining,
	})
}

// GenerateImage handles POST /v1/ai/generate-image.
//
// @Summary      Generate an image from a prompt
// @Tags         ai
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      generateImageRequest  true  "Prompt with optional dimensions"
// @Success      200   {object}  generateImageResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /v1/ai/generate-image [post]
func (h *GenerationHandler) GenerateImage(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	var req generateImageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	result, err := h.service.GenerateImage(c.Request().Context(), ports.GenerateImageInput{
		UserID: userID,
		Prompt: req.Prompt,
		Width:  req.Width,
		Height: req.Height,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, generateImageResponse{
		Status:           "completed",
		GenerationID:     result.GenerationID,
		ImageID:          result.ImageID,
		ImageURL:         result.ImageURL,
		CreditsRemaining: result.CreditsRemaining,
	})
}

// List handles GET /v1/ai/generations.
//
// @Summary      List the caller's generation history
// @Tags         ai
// @Produce      json
// @Security     BearerAuth
// @Param        type   query     string  false  "Filter by kind (text|image)"
// @Param        page   query     int     false  "1-based page number"
// @Param        limit  query     int     false  "Page size (max 100)"
// @Success      200    {object}  listGenerationsResponse
// @Failure      401    {object}  map[string]string
// @Router       /v1/ai/generations [get]
func (h *GenerationHandler) List(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	result, err := h.service.ListGenerations(c.Request().Context(), ports.ListGenerationsInput{
		UserID: userID,
		Kind:   c.QueryParam("type"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return err
	}

	items := make([]generationResponse, 0, len(result.Items))
	for _, g := range result.Items {
		items = append(items, toGenerationResponse(g))
	}

	return c.JSON(http.StatusOK, listGenerationsResponse{
		Generations: items,
		Pagination: paginationResponse{
			Page:       result.Page,
			Limit:      result.Limit,
			Total:      result.Total,
			TotalPages: result.TotalPages,
		},
	})
}

// Get handles GET /v1/ai/generations/:id.
//
// @Summary      Get one generation record
// @Tags         ai
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Generation id"
// @Success      200  {object}  generationResponse
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /v1/ai/generations/{id} [get]
func (h *GenerationHandler) Get(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	g, err := h.service.GetGeneration(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toGenerationResponse(g))
}
