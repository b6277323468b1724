package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/forkcast/backend/internal/domain"
	"github.com/forkcast/backend/internal/logging"
)

var (
	httpURLRegex         = regexp.MustCompile(`(?i)^https?://`)
	nonAlphanumericRegex = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	multipleSpacesRegex  = regexp.MustCompile(`\s+`)
)

const websiteToolName = "return_restaurant_website"

var websiteTool = domain.ToolSpec{
	Name:        websiteToolName,
	Description: "Returns the official website URL for a restaurant, or indicates that no website was found",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": `The official website URL (e.g., https://example.com) or "NOT_FOUND" if no website could be located`,
			},
		},
		"required": []string{"url"},
	},
	WebSearch: true,
}

// WebsiteResolverConfig holds configuration for the website resolver
type WebsiteResolverConfig struct {
	CacheTTL time.Duration
}

// WebsiteResolver asks the text-generation service for a restaurant's official website
type WebsiteResolver struct {
	generator domain.TextGenerator
	cache     domain.CacheRepository // optional
	cacheTTL  time.Duration
	log       *slog.Logger
}

// NewWebsiteResolver creates a resolver. cache may be nil.
func NewWebsiteResolver(generator domain.TextGenerator, cache domain.CacheRepository, config WebsiteResolverConfig, log *slog.Logger) *WebsiteResolver {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 720 * time.Hour // Default 30 days
	}
	return &WebsiteResolver{
		generator: generator,
		cache:     cache,
		cacheTTL:  cacheTTL,
		log:       logging.Component(log, "website_resolver"),
	}
}

// ResolveWebsite returns the restaurant's website or the missing value.
// It never fails: every error is logged and reported as "not found".
func (r *WebsiteResolver) ResolveWebsite(ctx context.Context, name, address string) domain.Website {
	key := websiteCacheKey(name, address)
	if w, ok := r.getFromCache(ctx, key); ok {
		r.log.Debug("website cache hit", "restaurant", name)
		return w
	}

	prompt := domain.Prompt{
		System: "You are a helpful assistant that finds official restaurant websites.",
		User:   fmt.Sprintf("Find the official website URL for this restaurant:\nName: %s\nAddress: %s", name, address),
	}

	raw, err := r.generator.InvokeTool(ctx, prompt, websiteTool)
	if err != nil {
		r.log.Warn("website lookup failed", "restaurant", name, "error", err)
		return domain.MissingWebsite()
	}

	var args struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		r.log.Warn("unparsable website lookup result", "restaurant", name, "error", err)
		return domain.MissingWebsite()
	}

	w := parseWebsite(args.URL)
	if w.Found() {
		r.log.Info("website found", "restaurant", name, "url", w.URL)
	} else {
		r.log.Info("no website found", "restaurant", name)
	}

	r.setInCache(ctx, key, w)
	return w
}

// parseWebsite applies the sentinel and scheme checks to a model answer
func parseWebsite(raw string) domain.Website {
	url := strings.TrimSpace(raw)
	if url == "" || url == domain.WebsiteNotFound || !httpURLRegex.MatchString(url) {
		return domain.MissingWebsite()
	}
	return domain.KnownWebsite(url)
}

// websiteCacheKey creates a normalized cache key.
// Format: "website:{normalized_name}:{normalized_address}"
func websiteCacheKey(name, address string) string {
	return fmt.Sprintf("website:%s:%s", normalizeForCacheKey(name), normalizeForCacheKey(address))
}

// normalizeForCacheKey lowercases the input and keeps only letters, digits and single spaces
func normalizeForCacheKey(s string) string {
	if s == "" {
		return ""
	}
	result := strings.ToLower(s)
	result = nonAlphanumericRegex.ReplaceAllString(result, "")
	result = multipleSpacesRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

func (r *WebsiteResolver) getFromCache(ctx context.Context, key string) (domain.Website, bool) {
	if r.cache == nil {
		return domain.Website{}, false
	}
	value, err := r.cache.Get(ctx, key)
	if err != nil {
		return domain.Website{}, false
	}
	s, ok := value.(string)
	if !ok {
		return domain.Website{}, false
	}
	return parseWebsite(s), true
}

func (r *WebsiteResolver) setInCache(ctx context.Context, key string, w domain.Website) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, key, w.String(), r.cacheTTL); err != nil {
		r.log.Warn("failed to cache website", "key", key, "error", err)
	}
}
