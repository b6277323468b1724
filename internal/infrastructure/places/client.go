package places

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/forkcast/backend/internal/domain"
	"github.com/forkcast/backend/internal/logging"
)

const (
	// Places accepts at most 20 results per page and a 50km circle
	maxPageSize     = 20
	maxRadiusMeters = 50000.0

	fieldMask = "places.id,places.displayName,places.formattedAddress,places.location," +
		"places.rating,places.userRatingCount,places.priceLevel,places.types,places.websiteUri,nextPageToken"
)

// Client handles communication with the Google Places (New) API
type Client struct {
	httpClient    *http.Client
	apiKey        string
	baseURL       string
	pageDelay     time.Duration
	firstPageOnly bool
	log           *slog.Logger
}

// NewClient creates a new Places API client.
// pageDelay separates consecutive page requests; Google needs at least two seconds.
func NewClient(apiKey, baseURL string, pageDelay time.Duration, firstPageOnly bool, log *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		apiKey:        apiKey,
		baseURL:       baseURL,
		pageDelay:     pageDelay,
		firstPageOnly: firstPageOnly,
		log:           logging.Component(log, "places"),
	}
}

// Name identifies the discovery strategy
func (c *Client) Name() string {
	return "places"
}

// SearchNearby returns up to limit restaurants inside the circle, following
// nextPageToken unless the client is limited to the first page.
// A non-positive limit means every page the API hands out.
func (c *Client) SearchNearby(ctx context.Context, center domain.Coordinate, radiusMeters float64, limit int) ([]domain.RestaurantCandidate, error) {
	c.log.Info("searching nearby", "lat", center.Lat, "lng", center.Lng, "radius_m", radiusMeters, "limit", limit)

	// A limiter per call: the first page goes out immediately, later pages wait pageDelay
	limiter := rate.NewLimiter(rate.Every(c.pageDelay), 1)

	candidates := make([]domain.RestaurantCandidate, 0, pageSize(limit))
	pageToken := ""
	for page := 1; ; page++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: places pagination: %v", domain.ErrUpstream, err)
		}

		resp, err := c.searchPage(ctx, center, radiusMeters, pageSize(limit), pageToken)
		if err != nil {
			return nil, err
		}

		for _, p := range resp.Places {
			candidates = append(candidates, toCandidate(p))
		}
		c.log.Debug("page received", "page", page, "places", len(resp.Places), "has_next", resp.NextPageToken != "")

		if c.firstPageOnly || resp.NextPageToken == "" || (limit > 0 && len(candidates) >= limit) {
			break
		}
		pageToken = resp.NextPageToken
	}

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	c.log.Info("nearby search complete", "candidates", len(candidates))
	return candidates, nil
}

func (c *Client) searchPage(ctx context.Context, center domain.Coordinate, radiusMeters float64, size int, pageToken string) (*searchNearbyResponse, error) {
	reqBody := searchNearbyRequest{
		IncludedTypes:  []string{"restaurant"},
		MaxResultCount: size,
		PageToken:      pageToken,
	}
	reqBody.LocationRestriction.Circle.Center = latLng{Latitude: center.Lat, Longitude: center.Lng}
	reqBody.LocationRestriction.Circle.Radius = math.Min(radiusMeters, maxRadiusMeters)

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:searchNearby", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: places: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Error("places API error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("%w: Google Places API error: %d - %s", domain.ErrUpstream, resp.StatusCode, errorMessage(body))
	}

	var out searchNearbyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: failed to decode places response: %v", domain.ErrUpstream, err)
	}
	return &out, nil
}

func pageSize(limit int) int {
	if limit <= 0 || limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
