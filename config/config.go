package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Discovery DiscoveryConfig
	LLM       LLMConfig
	Scraper   ScraperConfig
	Extractor ExtractorConfig
	Resolver  ResolverConfig
	Search    SearchConfig
	Matching  MatchingConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	LogLevel       string   `mapstructure:"log_level"`
}

// DiscoveryConfig selects and configures the restaurant discovery strategy
type DiscoveryConfig struct {
	Provider      string        `mapstructure:"provider"` // "places" or "directory"
	MaxResults    int           `mapstructure:"max_results"`
	PageDelay     time.Duration `mapstructure:"page_delay"`
	FirstPageOnly bool          `mapstructure:"first_page_only"`
	Places        PlacesConfig  `mapstructure:"places"`
	Yelp          YelpConfig    `mapstructure:"yelp"`
}

// PlacesConfig holds Google Places API configuration
type PlacesConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// YelpConfig holds Yelp Fusion API configuration
type YelpConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Limit   int    `mapstructure:"limit"`
}

// LLMConfig holds text-generation provider configuration
type LLMConfig struct {
	Provider         string        `mapstructure:"provider"` // "openai", "ollama" or "gemini"
	APIKey           string        `mapstructure:"api_key"`
	BaseURL          string        `mapstructure:"base_url"`
	Model            string        `mapstructure:"model"`
	AggregationModel string        `mapstructure:"aggregation_model"`
	Temperature      float64       `mapstructure:"temperature"`
	Timeout          time.Duration `mapstructure:"timeout"`
	WebSearch        bool          `mapstructure:"web_search"`
}

// ScraperConfig holds menu scraping configuration
type ScraperConfig struct {
	MaxPages         int           `mapstructure:"max_pages"`
	MaxConcurrency   int           `mapstructure:"max_concurrency"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxBodyBytes     int64         `mapstructure:"max_body_bytes"`
	UserAgent        string        `mapstructure:"user_agent"`
	Format           string        `mapstructure:"format"` // "text" or "markdown"
	HomepageFallback bool          `mapstructure:"homepage_fallback"`
	BatchDelay       time.Duration `mapstructure:"batch_delay"`
}

// ExtractorConfig holds menu extraction configuration
type ExtractorConfig struct {
	MaxInputChars int           `mapstructure:"max_input_chars"`
	Pause         time.Duration `mapstructure:"pause"`
}

// ResolverConfig holds website resolution configuration
type ResolverConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	MaxConcurrency int  `mapstructure:"max_concurrency"`
}

// SearchConfig holds orchestrator configuration
type SearchConfig struct {
	DefaultLatitude       float64 `mapstructure:"default_latitude"`
	DefaultLongitude      float64 `mapstructure:"default_longitude"`
	DefaultRadius         float64 `mapstructure:"default_radius"`
	EmptyStatus           int     `mapstructure:"empty_status"`
	RestaurantConcurrency int     `mapstructure:"restaurant_concurrency"`
}

// MatchingConfig holds the deterministic query filter configuration
type MatchingConfig struct {
	StrictQueryFilter bool `mapstructure:"strict_query_filter"`
	FuzzyEditDistance int  `mapstructure:"fuzzy_edit_distance"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "none", "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerMinute int `mapstructure:"per_minute"`
	Burst     int `mapstructure:"burst"`
}

// Load loads configuration from .env, environment variables and config files
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/forkcast/")

	// FORKCAST_SERVER_PORT -> server.port
	v.SetEnvPrefix("FORKCAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values. Every key needs a default so that
// AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.log_level", "info")

	v.SetDefault("discovery.provider", "places")
	v.SetDefault("discovery.max_results", 5)
	v.SetDefault("discovery.page_delay", "2s")
	v.SetDefault("discovery.first_page_only", true)
	v.SetDefault("discovery.places.api_key", "")
	v.SetDefault("discovery.places.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("discovery.yelp.api_key", "")
	v.SetDefault("discovery.yelp.base_url", "https://api.yelp.com/v3")
	v.SetDefault("discovery.yelp.limit", 20)

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.aggregation_model", "")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.timeout", "90s")
	v.SetDefault("llm.web_search", false)

	v.SetDefault("scraper.max_pages", 5)
	v.SetDefault("scraper.max_concurrency", 3)
	v.SetDefault("scraper.timeout", "10s")
	v.SetDefault("scraper.max_body_bytes", 2*1024*1024)
	v.SetDefault("scraper.user_agent", "")
	v.SetDefault("scraper.format", "text")
	v.SetDefault("scraper.homepage_fallback", false)
	v.SetDefault("scraper.batch_delay", "0s")

	v.SetDefault("extractor.max_input_chars", 60000)
	v.SetDefault("extractor.pause", "500ms")

	v.SetDefault("resolver.enabled", true)
	v.SetDefault("resolver.max_concurrency", 5)

	v.SetDefault("search.default_latitude", 37.7749)
	v.SetDefault("search.default_longitude", -122.4194)
	v.SetDefault("search.default_radius", 5.0)
	v.SetDefault("search.empty_status", 404)
	v.SetDefault("search.restaurant_concurrency", 5)

	v.SetDefault("matching.strict_query_filter", false)
	v.SetDefault("matching.fuzzy_edit_distance", 1)

	v.SetDefault("cache.type", "none")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "720h") // 30 days

	v.SetDefault("ratelimit.per_minute", 30)
	v.SetDefault("ratelimit.burst", 5)
}

// validate validates the configuration
func validate(config *Config) error {
	switch config.Discovery.Provider {
	case "places":
		if config.Discovery.Places.APIKey == "" {
			return fmt.Errorf("Google Places API key is required (set FORKCAST_DISCOVERY_PLACES_API_KEY)")
		}
	case "directory":
		if config.Discovery.Yelp.APIKey == "" {
			return fmt.Errorf("Yelp API key is required (set FORKCAST_DISCOVERY_YELP_API_KEY)")
		}
	default:
		return fmt.Errorf("discovery provider must be 'places' or 'directory', got: %s", config.Discovery.Provider)
	}

	if config.Discovery.PageDelay < 2*time.Second {
		return fmt.Errorf("discovery page delay must be at least 2s, got: %s", config.Discovery.PageDelay)
	}
	if config.Discovery.MaxResults <= 0 {
		return fmt.Errorf("discovery max results must be positive, got: %d", config.Discovery.MaxResults)
	}

	switch config.LLM.Provider {
	case "openai", "gemini":
		if config.LLM.APIKey == "" {
			return fmt.Errorf("LLM API key is required for provider %s (set FORKCAST_LLM_API_KEY)", config.LLM.Provider)
		}
	case "ollama":
	default:
		return fmt.Errorf("LLM provider must be 'openai', 'ollama' or 'gemini', got: %s", config.LLM.Provider)
	}

	if config.Scraper.MaxPages <= 0 || config.Scraper.MaxConcurrency <= 0 {
		return fmt.Errorf("scraper max pages and max concurrency must be positive")
	}
	if config.Scraper.Format != "text" && config.Scraper.Format != "markdown" {
		return fmt.Errorf("scraper format must be 'text' or 'markdown', got: %s", config.Scraper.Format)
	}
	if config.Search.RestaurantConcurrency <= 0 {
		return fmt.Errorf("search restaurant concurrency must be positive")
	}
	if config.Search.EmptyStatus != 200 && config.Search.EmptyStatus != 404 {
		return fmt.Errorf("search empty status must be 200 or 404, got: %d", config.Search.EmptyStatus)
	}

	switch config.Cache.Type {
	case "none", "memory":
	case "redis":
		if config.Cache.RedisURL == "" {
			return fmt.Errorf("Redis URL is required when cache type is 'redis'")
		}
	default:
		return fmt.Errorf("cache type must be 'none', 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	return nil
}
