package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/forkcast/backend/config"
	httpDelivery "github.com/forkcast/backend/internal/delivery/http"
	"github.com/forkcast/backend/internal/domain"
	"github.com/forkcast/backend/internal/infrastructure/cache"
	"github.com/forkcast/backend/internal/infrastructure/llm"
	"github.com/forkcast/backend/internal/infrastructure/places"
	"github.com/forkcast/backend/internal/infrastructure/scraper"
	"github.com/forkcast/backend/internal/infrastructure/yelp"
	"github.com/forkcast/backend/internal/logging"
	"github.com/forkcast/backend/internal/usecase"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg.Server.LogLevel, cfg.Server.Environment)

	log.Printf("Starting Forkcast Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)
	log.Printf("Discovery: %s, LLM: %s/%s", cfg.Discovery.Provider, cfg.LLM.Provider, cfg.LLM.Model)
	log.Printf("Cache Type: %s (TTL %s)", cfg.Cache.Type, cfg.Cache.TTL)

	// Initialize infrastructure dependencies
	cacheRepo, closeCache, err := cache.New(ctx, cfg.Cache.Type, cfg.Cache.RedisURL)
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}
	defer closeCache()

	llmConfig := llm.Config{
		Provider:    cfg.LLM.Provider,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		WebSearch:   cfg.LLM.WebSearch,
	}
	generator, err := llm.New(ctx, llmConfig, logger)
	if err != nil {
		log.Fatalf("Failed to initialize LLM provider: %v", err)
	}

	// Aggregation may run on a larger model than extraction
	aggregationGenerator := generator
	if cfg.LLM.AggregationModel != "" && cfg.LLM.AggregationModel != cfg.LLM.Model {
		aggConfig := llmConfig
		aggConfig.Model = cfg.LLM.AggregationModel
		aggregationGenerator, err = llm.New(ctx, aggConfig, logger)
		if err != nil {
			log.Fatalf("Failed to initialize aggregation model: %v", err)
		}
		log.Printf("Aggregation model: %s", cfg.LLM.AggregationModel)
	}

	source := newCandidateSource(cfg, logger)

	fetcher := scraper.NewFetcher(&http.Client{}, cfg.Scraper.UserAgent, cfg.Scraper.Timeout, cfg.Scraper.MaxBodyBytes)
	menuScraper := scraper.New(fetcher, scraper.Options{
		Format:           cfg.Scraper.Format,
		HomepageFallback: cfg.Scraper.HomepageFallback,
		BatchDelay:       cfg.Scraper.BatchDelay,
	}, logger)

	// Initialize usecase layer
	resolver := usecase.NewWebsiteResolver(generator, cacheRepo, usecase.WebsiteResolverConfig{
		CacheTTL: cfg.Cache.TTL,
	}, logger)

	finder := usecase.NewPlaceFinder(source, resolver, usecase.PlaceFinderConfig{
		ResolveWebsites: cfg.Resolver.Enabled,
		MaxConcurrency:  cfg.Resolver.MaxConcurrency,
	}, logger)

	extractor := usecase.NewMenuExtractor(generator, usecase.MenuExtractorConfig{
		MaxInputChars: cfg.Extractor.MaxInputChars,
	}, logger)

	var filter *usecase.QueryFilter
	if cfg.Matching.StrictQueryFilter {
		filter = usecase.NewQueryFilter(cfg.Matching.FuzzyEditDistance)
		log.Printf("Strict query filter enabled (edit distance %d)", cfg.Matching.FuzzyEditDistance)
	}
	aggregator := usecase.NewResultAggregator(aggregationGenerator, usecase.ResultAggregatorConfig{
		Filter: filter,
	}, logger)

	searchService := usecase.NewSearchService(finder, menuScraper, extractor, aggregator, usecase.SearchServiceConfig{
		DefaultLatitude:       cfg.Search.DefaultLatitude,
		DefaultLongitude:      cfg.Search.DefaultLongitude,
		DefaultRadius:         cfg.Search.DefaultRadius,
		MaxResults:            cfg.Discovery.MaxResults,
		MaxPages:              cfg.Scraper.MaxPages,
		PageConcurrency:       cfg.Scraper.MaxConcurrency,
		RestaurantConcurrency: cfg.Search.RestaurantConcurrency,
		ExtractPause:          cfg.Extractor.Pause,
	}, logger)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(searchService, cfg.Search.EmptyStatus, logger)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler, logger)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// newCandidateSource picks the discovery strategy
func newCandidateSource(cfg *config.Config, logger *slog.Logger) domain.CandidateSource {
	switch cfg.Discovery.Provider {
	case "directory":
		log.Printf("Discovery via business directory: %s", cfg.Discovery.Yelp.BaseURL)
		return yelp.NewClient(cfg.Discovery.Yelp.APIKey, cfg.Discovery.Yelp.BaseURL, cfg.Discovery.Yelp.Limit, logger)
	default:
		log.Printf("Discovery via places lookup: %s (first page only: %v)", cfg.Discovery.Places.BaseURL, cfg.Discovery.FirstPageOnly)
		return places.NewClient(cfg.Discovery.Places.APIKey, cfg.Discovery.Places.BaseURL,
			cfg.Discovery.PageDelay, cfg.Discovery.FirstPageOnly, logger)
	}
}

func init() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
