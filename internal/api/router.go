package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/craftly/studio-api/internal/api/handler"
	"github.com/craftly/studio-api/internal/api/middleware"
	"github.com/craftly/studio-api/internal/core/domain"
	"github.com/craftly/studio-api/internal/core/ports"
)

// Dependencies carries everything the router wires into handlers.
type Dependencies struct {
	Credits     ports.CreditService
	Generations ports.GenerationService
	Mongo       *mongo.Database
	Redis       *redis.Client
	JWTSecret   string
	Logger      zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())

	// --- Handlers ---
	generationHandler := handler.NewGenerationHandler(deps.Generations)
	creditsHandler := handler.NewCreditsHandler(deps.Credits)
	authMiddleware := middleware.Auth(deps.JWTSecret)

	ai := e.Group("/v1/ai", authMiddleware)
	ai.POST("/generate-text", generationHandler.GenerateText)
	ai.POST("/generate-image", generationHandler.GenerateImage)
	ai.GET("/generations", generationHandler.List)
	ai.GET("/generations/:id", generationHandler.Get)
	ai.GET("/credits", creditsHandler.Balance)
	ai.GET("/credits/stats", creditsHandler.Stats)
	ai.PATCH("/credits/reset", creditsHandler.Reset)
	ai.POST("/credits/add", creditsHandler.Add, middleware.RBAC(domain.RoleAdmin))

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Mongo, deps.Redis)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}
