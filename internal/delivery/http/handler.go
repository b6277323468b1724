package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/forkcast/backend/internal/domain"
	"github.com/forkcast/backend/internal/logging"
)

const (
	serviceName    = "forkcast-backend"
	serviceVersion = "1.0.0"
)

// SearchService is the search pipeline as seen by the handler
type SearchService interface {
	NewRequest(latitude, longitude, radius *float64, query string) domain.SearchRequest
	Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error)
	FindRestaurants(ctx context.Context, req domain.AreaRequest) (*domain.RestaurantsResponse, error)
	ParseMenu(ctx context.Context, restaurantURL string) (*domain.MenuParseResult, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	search      SearchService
	emptyStatus int
	log         *slog.Logger
}

// NewHandler creates a new HTTP handler. emptyStatus is the status sent when no
// restaurant produced menu data (404 or 200).
func NewHandler(search SearchService, emptyStatus int, log *slog.Logger) *Handler {
	if emptyStatus == 0 {
		emptyStatus = http.StatusNotFound
	}
	return &Handler{
		search:      search,
		emptyStatus: emptyStatus,
		log:         logging.Component(log, "http"),
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// searchParams are the raw request parameters; a nil field was not supplied
type searchParams struct {
	Latitude  *string
	Longitude *string
	Radius    *string
	Query     string
}

// Search handles GET and POST search requests.
// Parameters come from the query string, or for POST from a JSON body with the same keys.
func (h *Handler) Search(c *gin.Context) {
	params, err := readSearchParams(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	lat, err := parseOptionalFloat("latitude", params.Latitude)
	if err != nil {
		h.writeError(c, err)
		return
	}
	lng, err := parseOptionalFloat("longitude", params.Longitude)
	if err != nil {
		h.writeError(c, err)
		return
	}
	radius, err := parseOptionalFloat("radius", params.Radius)
	if err != nil {
		h.writeError(c, err)
		return
	}

	req := h.search.NewRequest(lat, lng, radius, params.Query)
	resp, err := h.search.Search(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrNoRestaurants) && resp != nil {
			c.JSON(h.emptyStatus, resp)
			return
		}
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListRestaurants handles GET /api/v1/restaurants: discovery only, no scraping.
// latitude, longitude and radius are required; limit is optional.
func (h *Handler) ListRestaurants(c *gin.Context) {
	var req domain.AreaRequest
	for _, p := range []struct {
		name   string
		target *float64
	}{
		{"latitude", &req.Latitude},
		{"longitude", &req.Longitude},
		{"radius", &req.RadiusMiles},
	} {
		raw, ok := c.GetQuery(p.name)
		v, err := parseOptionalFloat(p.name, &raw)
		if err != nil {
			h.writeError(c, err)
			return
		}
		if !ok || v == nil {
			h.writeError(c, fmt.Errorf("%w: latitude, longitude and radius (in miles) are required", domain.ErrValidation))
			return
		}
		*p.target = *v
	}

	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(c, fmt.Errorf("%w: limit must be an integer, got %q", domain.ErrValidation, raw))
			return
		}
		req.Limit = limit
	}

	resp, err := h.search.FindRestaurants(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, resp)
}

type parseMenuRequest struct {
	RestaurantURL string `json:"restaurantUrl"`
}

// ParseMenu handles POST /api/v1/menus/parse with a {"restaurantUrl": ...} body
func (h *Handler) ParseMenu(c *gin.Context) {
	var body parseMenuRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			h.writeError(c, fmt.Errorf("%w: request body must be a JSON object", domain.ErrValidation))
			return
		}
	}

	result, err := h.search.ParseMenu(c.Request.Context(), body.RestaurantURL)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// readSearchParams merges query-string parameters with an optional JSON body.
// Query-string values win when both are present.
func readSearchParams(c *gin.Context) (searchParams, error) {
	var params searchParams

	if c.Request.Method == http.MethodPost && c.Request.ContentLength != 0 {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			return params, fmt.Errorf("%w: request body must be a JSON object", domain.ErrValidation)
		}
		for key, target := range map[string]**string{
			"latitude":  &params.Latitude,
			"longitude": &params.Longitude,
			"radius":    &params.Radius,
		} {
			if v, ok := bodyValue(body, key); ok {
				*target = &v
			}
		}
		if v, ok := bodyValue(body, "query"); ok {
			params.Query = v
		}
	}

	for key, target := range map[string]**string{
		"latitude":  &params.Latitude,
		"longitude": &params.Longitude,
		"radius":    &params.Radius,
	} {
		if v, ok := c.GetQuery(key); ok {
			*target = &v
		}
	}
	if v, ok := c.GetQuery("query"); ok {
		params.Query = v
	}

	return params, nil
}

// bodyValue renders a JSON body field as a string. Null and absent are both "not supplied".
func bodyValue(body map[string]any, key string) (string, bool) {
	switch v := body[key].(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return fmt.Sprint(v), true
	}
}

// parseOptionalFloat treats a missing or blank value as absent and rejects anything non-numeric
func parseOptionalFloat(name string, raw *string) (*float64, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(*raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%w: %s must be a number, got %q", domain.ErrValidation, name, *raw)
	}
	return &v, nil
}

// writeError maps pipeline errors onto status codes and the standard error body
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	label := "Internal server error"

	switch {
	case errors.Is(err, domain.ErrValidation):
		status, label = http.StatusBadRequest, "Invalid request"
	case errors.Is(err, domain.ErrNoRestaurants):
		status, label = h.emptyStatus, "No restaurants found"
	case errors.Is(err, domain.ErrRateLimited):
		status, label = http.StatusTooManyRequests, "Too many requests"
	case errors.Is(err, domain.ErrUpstream):
		label = "Failed to find restaurants"
	case errors.Is(err, domain.ErrFetch), errors.Is(err, domain.ErrTimeout):
		status, label = http.StatusBadGateway, "Failed to fetch restaurant website"
	case errors.Is(err, domain.ErrAggregation):
		label = "Failed to combine results"
	}

	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "path", c.Request.URL.Path, "error", err, "request_id", c.GetString(ContextRequestIDKey))
	}
	c.JSON(status, domain.NewErrorResponse(label, err.Error()))
}
