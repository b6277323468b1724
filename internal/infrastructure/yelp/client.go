package yelp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/forkcast/backend/internal/domain"
	"github.com/forkcast/backend/internal/logging"
)

const (
	// Yelp caps search radius at 40km and page size at 50
	maxRadiusMeters = 40000
	maxLimit        = 50
	defaultLimit    = 20
)

// Client handles communication with the Yelp Fusion API
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	limit      int
	log        *slog.Logger
}

// NewClient creates a new Yelp Fusion client; limit is the default page size
func NewClient(apiKey, baseURL string, limit int, log *slog.Logger) *Client {
	if limit <= 0 {
		limit = defaultLimit
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		apiKey:  apiKey,
		baseURL: baseURL,
		limit:   min(limit, maxLimit),
		log:     logging.Component(log, "yelp"),
	}
}

// Name identifies the discovery strategy
func (c *Client) Name() string {
	return "directory"
}

// SearchNearby returns restaurants sorted by distance. A business's menu_url, when
// present, becomes its website; otherwise the website is left unknown.
func (c *Client) SearchNearby(ctx context.Context, center domain.Coordinate, radiusMeters float64, limit int) ([]domain.RestaurantCandidate, error) {
	if limit <= 0 || limit > c.limit {
		limit = c.limit
	}

	params := url.Values{}
	params.Add("latitude", strconv.FormatFloat(center.Lat, 'f', -1, 64))
	params.Add("longitude", strconv.FormatFloat(center.Lng, 'f', -1, 64))
	params.Add("radius", strconv.Itoa(int(math.Round(math.Min(radiusMeters, maxRadiusMeters)))))
	params.Add("categories", "restaurants")
	params.Add("limit", strconv.Itoa(limit))
	params.Add("sort_by", "distance")

	reqURL := fmt.Sprintf("%s/businesses/search?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	c.log.Info("searching businesses", "lat", center.Lat, "lng", center.Lng, "radius_m", radiusMeters, "limit", limit)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: yelp: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Error("yelp API error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("%w: Yelp API error: %d - %s", domain.ErrUpstream, resp.StatusCode, string(body))
	}

	var out searchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: failed to decode yelp response: %v", domain.ErrUpstream, err)
	}

	candidates := make([]domain.RestaurantCandidate, 0, len(out.Businesses))
	for _, b := range out.Businesses {
		candidates = append(candidates, toCandidate(b))
	}
	c.log.Info("business search complete", "candidates", len(candidates), "total", out.Total)
	return candidates, nil
}
