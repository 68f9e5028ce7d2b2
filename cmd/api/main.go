package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/craftly/studio-api/internal/api"
	"github.com/craftly/studio-api/internal/core/ports"
	"github.com/craftly/studio-api/internal/core/service"
	"github.com/craftly/studio-api/internal/infrastructure/config"
	mongodb "github.com/craftly/studio-api/internal/infrastructure/db/mongo"
	redisdb "github.com/craftly/studio-api/internal/infrastructure/db/redis"
	"github.com/craftly/studio-api/internal/infrastructure/providers/openai"
	"github.com/craftly/studio-api/internal/infrastructure/providers/placeholder"
	"github.com/craftly/studio-api/internal/infrastructure/scheduler"
	"github.com/craftly/studio-api/internal/infrastructure/storage"
	"github.com/craftly/studio-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Datastores ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() {
		_ = mongoClient.Disconnect(context.Background())
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() {
		_ = rdb.Close()
	}()

	accountRepo := mongodb.NewAccountRepository(db)
	generationRepo := mongodb.NewGenerationRepository(db)
	assetRepo := mongodb.NewAssetRepository(db)
	for name, ensure := range map[string]func(context.Context) error{
		"users":          accountRepo.EnsureIndexes,
		"ai_generations": generationRepo.EnsureIndexes,
		"media":          assetRepo.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			log.Warn().Err(err).Str("collection", name).Msg("index creation failed")
		}
	}

	// --- Providers ---
	textProvider, err := openai.NewTextClient(openai.Config{
		APIKey:    cfg.OpenAI.APIKey,
		BaseURL:   cfg.OpenAI.BaseURL,
		ChatModel: cfg.OpenAI.ChatModel,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("text provider init failed")
	}
	imageProvider, err := openai.NewImageClient(openai.Config{
		APIKey:     cfg.OpenAI.APIKey,
		BaseURL:    cfg.OpenAI.BaseURL,
		ImageModel: cfg.OpenAI.ImageModel,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("image provider init failed")
	}

	blobs, err := storage.NewFSStore(cfg.Storage.Root, cfg.Storage.BaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("blob storage init failed")
	}

	// --- Services ---
	creditService := service.NewCreditService(accountRepo, cfg.Costs, log)
	generationService := service.NewGenerationService(
		creditService,
		generationRepo,
		assetRepo,
		blobs,
		textProvider,
		[]ports.ImageProvider{
			imageProvider,
			placeholder.NewDescribed(cfg.Generation.PlaceholderBaseURL, textProvider, log),
			placeholder.NewBasic(cfg.Generation.PlaceholderBaseURL, log),
		},
		service.GenerationServiceOptions{
			StrictReserve:   cfg.Generation.StrictReserve,
			ProviderTimeout: cfg.Generation.ProviderTimeout,
		},
		log,
	)

	// --- Monthly credit reset sweep ---
	resetScheduler := scheduler.NewResetScheduler(
		creditService,
		accountRepo,
		redisdb.NewSweepLock(rdb),
		cfg.Generation.SweepWorkers,
		log,
	)
	resetScheduler.Start(ctx)
	defer resetScheduler.Stop()

	// --- HTTP server ---
	e := api.NewRouter(api.Dependencies{
		Credits:     creditService,
		Generations: generationService,
		Mongo:       db,
		Redis:       rdb,
		JWTSecret:   cfg.JWTSecret,
		Logger:      log,
	})

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("studio AI backend started")

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}
}
