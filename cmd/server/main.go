package main

import (
	"context"
	"fmt"
	"log"

	"go.uber.org/zap"

	"github.com/ecoscan/backend/config"
	httpDelivery "github.com/ecoscan/backend/internal/delivery/http"
	"github.com/ecoscan/backend/internal/domain"
	"github.com/ecoscan/backend/internal/infrastructure/fetch"
	"github.com/ecoscan/backend/internal/infrastructure/gemini"
	"github.com/ecoscan/backend/internal/infrastructure/lykdat"
	"github.com/ecoscan/backend/internal/infrastructure/store"
	"github.com/ecoscan/backend/internal/infrastructure/vision"
	"github.com/ecoscan/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.Server.Environment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting EcoScan backend",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port))

	// Initialize infrastructure dependencies
	tagClient := lykdat.NewClient(cfg.Lykdat.APIKey, cfg.Lykdat.BaseURL, cfg.Lykdat.TagTimeout, logger)
	searchClient := lykdat.NewClient(cfg.Lykdat.APIKey, cfg.Lykdat.BaseURL, cfg.Lykdat.SearchTimeout, logger)
	visionClient := vision.NewClient(cfg.Vision.APIKey, cfg.Vision.BaseURL, cfg.Vision.Timeout, logger)
	pageFetcher := fetch.NewFetcher(cfg.Fetch.Timeout, cfg.Fetch.UserAgent, cfg.Fetch.MaxChars, logger)
	scanStore := store.NewMemoryStore()

	// Gemini is optional: without it, tag and page structuring degrade to
	// raw text and explanations come from the template fallback.
	var (
		structurer domain.TextStructurer
		refiner    domain.TaggingRefiner
		generator  domain.ExplanationGenerator
	)
	if cfg.Gemini.APIKey != "" {
		geminiClient, err := gemini.NewClient(context.Background(), cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.Timeout, logger)
		if err != nil {
			logger.Warn("Gemini client unavailable, structuring and explanations degraded", zap.Error(err))
		} else {
			structurer = geminiClient
			refiner = geminiClient
			generator = geminiClient
			logger.Info("Gemini configured", zap.String("model", cfg.Gemini.Model))
		}
	} else {
		logger.Warn("Gemini API key not set, structuring and explanations degraded")
	}

	// Initialize usecase layer
	extract := usecase.NewExtractionService(tagClient, visionClient, structurer, refiner, pageFetcher, logger)
	explainer := usecase.NewExplanationService(generator, logger)
	scorer := usecase.NewScoringService(explainer, logger)
	selector := usecase.NewSimilaritySelector(searchClient, usecase.LocalePreference{
		Currency: cfg.Locale.PreferredCurrency,
		Domains:  cfg.Locale.PreferredDomains,
	}, logger)
	aggregator := usecase.NewAggregator(extract, scorer, selector, cfg.Pipeline.MaxWorkers, logger)
	recommendations := usecase.NewRecommendationService(scorer)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(aggregator, recommendations, scanStore, cfg.Pipeline.MaxAlternatives, logger)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler, logger)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Info("server listening", zap.String("addr", addr))

	if err := router.Run(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// newLogger builds a console logger in development and a JSON logger in
// production.
func newLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
