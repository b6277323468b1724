package domain

import (
	"context"
	"encoding/json"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// CandidateSource is one restaurant discovery strategy (places lookup or business directory).
// Implementations return raw candidates; deduplication and enrichment happen in the usecase layer.
type CandidateSource interface {
	Name() string
	SearchNearby(ctx context.Context, center Coordinate, radiusMeters float64, limit int) ([]RestaurantCandidate, error)
}

// MenuScraper discovers and fetches the menu pages of one restaurant site
type MenuScraper interface {
	ScrapeRestaurant(ctx context.Context, homepageURL string, maxPages, maxConcurrency int) (*ScrapeResult, error)
}

// Prompt is a system/user message pair sent to a text-generation service
type Prompt struct {
	System string
	User   string
}

// ToolSpec describes a single callable tool whose arguments are the structured result
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON Schema object
	// WebSearch asks providers that support it to let the model search the web first
	WebSearch bool
}

// TextGenerator is the text-generation service used for website resolution,
// menu extraction and result aggregation.
// Provider failures wrap ErrProviderStatus; shape problems wrap ErrMalformedOutput.
type TextGenerator interface {
	// InvokeTool forces one call of the given tool and returns its raw JSON arguments
	InvokeTool(ctx context.Context, prompt Prompt, tool ToolSpec) (json.RawMessage, error)
	// GenerateJSON asks for a single JSON object as the whole response
	GenerateJSON(ctx context.Context, prompt Prompt) (json.RawMessage, error)
}
