package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/labelpadega/backend/config"
	httpDelivery "github.com/labelpadega/backend/internal/delivery/http"
	"github.com/labelpadega/backend/internal/domain"
	"github.com/labelpadega/backend/internal/infrastructure/cache"
	"github.com/labelpadega/backend/internal/infrastructure/fetcher"
	"github.com/labelpadega/backend/internal/infrastructure/llm"
	"github.com/labelpadega/backend/internal/infrastructure/openfoodfacts"
	"github.com/labelpadega/backend/internal/infrastructure/regulation"
	"github.com/labelpadega/backend/internal/infrastructure/session"
	"github.com/labelpadega/backend/internal/infrastructure/usda"
	"github.com/labelpadega/backend/internal/logger"
	"github.com/labelpadega/backend/internal/usecase"
)

const version = "2.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logr, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logr.Sync() }()

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	logr.Info("starting LabelPadega backend",
		zap.String("version", version),
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("cache_type", cfg.Cache.Type),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cacheRepo, closeCache, err := cache.Open(ctx, cache.Options{
		Type:            cfg.Cache.Type,
		Dir:             cfg.Cache.Dir,
		RedisURL:        cfg.Cache.RedisURL,
		RedisPrefix:     cfg.Cache.RedisPrefix,
		Retention:       cfg.Cache.Retention,
		CleanupInterval: cfg.Cache.CleanupInterval,
	}, logr)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer func() {
		if err := closeCache(); err != nil {
			logr.Warn("failed to close cache", zap.Error(err))
		}
	}()

	if cfg.Data.Seed {
		created, err := regulation.EnsureSeed(cfg.Data.Dir)
		if err != nil {
			return fmt.Errorf("failed to seed regulation data: %w", err)
		}
		for _, path := range created {
			logr.Info("seeded regulation dataset", zap.String("path", path))
		}
	}
	regulations := regulation.Load(cfg.Data.Dir, logr)
	ingredients, products, recalls := regulations.Counts()
	logr.Info("regulation data loaded",
		zap.Int("banned_ingredients", ingredients),
		zap.Int("banned_products", products),
		zap.Int("recalls", recalls),
	)

	usdaFetcher := fetcher.New("usda", fetcher.Config{
		MaxAttempts:       cfg.Fetcher.MaxAttempts,
		BaseDelay:         cfg.Fetcher.BaseDelay,
		Timeout:           cfg.Fetcher.Timeout,
		UserAgent:         cfg.Fetcher.UserAgent,
		RequestsPerSecond: float64(cfg.RateLimit.USDA) / 3600,
		Burst:             10,
	}, logr)
	offFetcher := fetcher.New("openfoodfacts", fetcher.Config{
		MaxAttempts: cfg.Fetcher.MaxAttempts,
		BaseDelay:   cfg.Fetcher.BaseDelay,
		Timeout:     cfg.Fetcher.Timeout,
		UserAgent:   cfg.Fetcher.UserAgent,
	}, logr)

	usdaClient := usda.NewClient(usdaFetcher, cfg.USDA.APIKey, cfg.USDA.BaseURL, logr)
	usdaClient.SetDataTypes(cfg.USDA.DataTypes)
	offClient := openfoodfacts.NewClient(offFetcher, cfg.OpenFoodFacts.BaseURL, logr)
	if cfg.USDA.APIKey == "DEMO_KEY" {
		logr.Warn("USDA API is using DEMO_KEY, requests are heavily rate limited upstream")
	}

	var provider domain.AIProvider = llm.Disabled{}
	if cfg.AIEnabled() {
		provider = llm.NewClient(llm.Config{
			APIKey:    cfg.AI.APIKey,
			BaseURL:   cfg.AI.BaseURL,
			Model:     cfg.AI.Model,
			MaxTokens: cfg.AI.MaxTokens,
			Timeout:   cfg.AI.Timeout,
		}, logr)
		logr.Info("AI provider configured", zap.String("model", cfg.AI.Model))
	} else {
		logr.Warn("AI API key not configured, AI features answer with degraded results")
	}

	aiConfig := usecase.AIConfig{CacheTTL: cfg.AI.CacheTTL, Timeout: cfg.AI.Timeout}
	matcher := usecase.NewProductMatcher(usecase.MatchConfig{
		MinConfidenceThreshold: cfg.Matching.MinConfidenceThreshold,
		EnableFuzzyMatching:    cfg.Matching.EnableFuzzyMatching,
		FuzzyEditDistance:      cfg.Matching.FuzzyEditDistance,
	}, logr)

	analysisService := usecase.NewAnalysisService(provider, cacheRepo, aiConfig, logr)
	labelService, err := usecase.NewLabelService(provider, cacheRepo, aiConfig, logr)
	if err != nil {
		return err
	}

	sessions := session.NewMemoryStore(cfg.Chat.SessionIdleTTL, cfg.Cache.CleanupInterval)
	defer func() { _ = sessions.Close() }()

	services := httpDelivery.Services{
		Products: usecase.NewProductService(offClient, usdaClient, cacheRepo, regulations, analysisService, matcher,
			usecase.ProductServiceConfig{CacheTTL: cfg.Cache.ProductTTL}, logr),
		Nutrition: usecase.NewNutritionService(cacheRepo, usdaClient, matcher, usecase.NutritionServiceConfig{
			CacheTTL:       cfg.Cache.TTL,
			SearchPageSize: cfg.USDA.SearchPageSize,
		}, logr),
		Analysis:  analysisService,
		Labels:    labelService,
		Medicines: usecase.NewMedicineService(provider, cacheRepo, aiConfig, logr),
		Chat: usecase.NewChatService(sessions, provider, usecase.ChatConfig{
			MaxRetries:       cfg.Chat.MaxRetries,
			RetryDelay:       cfg.Chat.RetryDelay,
			HistoryLimit:     cfg.Chat.HistoryLimit,
			ScanHistoryLimit: cfg.Chat.ScanHistoryLimit,
			Timeout:          cfg.AI.Timeout,
		}, logr),
		Cache: cacheRepo,
	}

	handler := httpDelivery.NewHandler(services, logr,
		httpDelivery.WithMaxUpload(cfg.Server.MaxUploadBytes),
		httpDelivery.WithAIEnabled(cfg.AIEnabled()),
	)

	var limiter *httpDelivery.IPRateLimiter
	if cfg.RateLimit.PerIP > 0 {
		limiter = httpDelivery.NewIPRateLimiter(cfg.RateLimit.PerIP, 10*time.Minute)
		go limiter.Run(ctx, time.Minute)
	}

	router := httpDelivery.SetupRouter(cfg, handler, limiter, logr)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.AI.Timeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logr.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logr.Info("server stopped")
	return nil
}

func init() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
