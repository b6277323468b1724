package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkcast/backend/config"
	"github.com/forkcast/backend/internal/domain"
	"github.com/forkcast/backend/internal/logging"
	"github.com/forkcast/backend/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// stubFinder returns fixed candidates and counts calls
type stubFinder struct {
	mu         sync.Mutex
	candidates []domain.RestaurantCandidate
	err        error
	calls      int
	center     domain.Coordinate
	radius     float64
	limit      int
}

func (s *stubFinder) FindCandidates(ctx context.Context, center domain.Coordinate, radiusMiles float64, limit int) ([]domain.RestaurantCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.center = center
	s.radius = radiusMiles
	s.limit = limit
	return s.candidates, s.err
}

// stubScraper returns one page per homepage unless err is set
type stubScraper struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (s *stubScraper) ScrapeRestaurant(ctx context.Context, homepageURL string, maxPages, maxConcurrency int) (*domain.ScrapeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &domain.ScrapeResult{
		HomepageURL: homepageURL,
		MenuLinks:   []domain.MenuLink{{Text: "Menu", Href: homepageURL + "/menu"}},
		Pages:       []domain.ScrapedPage{{SourceURL: homepageURL + "/menu", Text: "Grilled Chicken Bowl 14"}},
	}, nil
}

// stubGenerator answers extraction tool calls and aggregation JSON calls
type stubGenerator struct {
	aggregate string
	err       error
}

func (g *stubGenerator) InvokeTool(ctx context.Context, prompt domain.Prompt, tool domain.ToolSpec) (json.RawMessage, error) {
	return json.RawMessage(`{"menuItems":[{"name":"Grilled Chicken Bowl","price":14}]}`), nil
}

func (g *stubGenerator) GenerateJSON(ctx context.Context, prompt domain.Prompt) (json.RawMessage, error) {
	if g.err != nil {
		return nil, g.err
	}
	return json.RawMessage(g.aggregate), nil
}

const aggregateOK = `{"results":[{"restaurant":{"id":"r1","name":"Bowl Bar","cuisine":"Mediterranean"},
	"matchingItems":[{"name":"Grilled Chicken Bowl","price":14,"matchScore":0.92,
	"nutrition":{"calories":520,"protein":"45g","carbs":"52g","fat":"14g"},"tags":["high-protein"]}]}]}`

type testServer struct {
	router    *gin.Engine
	finder    *stubFinder
	scraper   *stubScraper
	generator *stubGenerator
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Environment: "test", AllowedOrigins: []string{"*"}},
		Search: config.SearchConfig{EmptyStatus: http.StatusNotFound},
	}
}

// setupTestRouter wires the real search pipeline over stubbed collaborators
func setupTestRouter(cfg *config.Config, candidates ...domain.RestaurantCandidate) *testServer {
	log := logging.Discard()
	finder := &stubFinder{candidates: candidates}
	scraper := &stubScraper{}
	generator := &stubGenerator{aggregate: aggregateOK}

	svc := usecase.NewSearchService(
		finder,
		scraper,
		usecase.NewMenuExtractor(generator, usecase.MenuExtractorConfig{}, log),
		usecase.NewResultAggregator(generator, usecase.ResultAggregatorConfig{}, log),
		usecase.SearchServiceConfig{},
		log,
	)
	handler := NewHandler(svc, cfg.Search.EmptyStatus, log)

	return &testServer{
		router:    SetupRouter(cfg, handler, log),
		finder:    finder,
		scraper:   scraper,
		generator: generator,
	}
}

func bowlBar() domain.RestaurantCandidate {
	return domain.RestaurantCandidate{
		ID:            "r1",
		Name:          "Bowl Bar",
		Address:       "1 Market St",
		Location:      domain.Coordinate{Lat: 37.7936, Lng: -122.3958},
		Website:       domain.KnownWebsite("https://bowlbar.example"),
		Rating:        4.6,
		Source:        "places",
		DistanceMiles: 1.4,
	}
}

func (s *testServer) do(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, domain.SearchResponse) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp domain.SearchResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

func TestHealthCheckEndpoint(t *testing.T) {
	srv := setupTestRouter(testConfig())

	t.Run("returns healthy status", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "forkcast-backend", body["service"])
		assert.NotEmpty(t, body["version"])
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			req := httptest.NewRequest(method, "/health", nil)
			w := httptest.NewRecorder()
			srv.router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusNotFound, w.Code, method)
		}
	})
}

func TestSearchEndpoint(t *testing.T) {
	for _, path := range []string{"/search", "/api/v1/search"} {
		t.Run("GET "+path, func(t *testing.T) {
			srv := setupTestRouter(testConfig(), bowlBar())

			w, resp := srv.do(t, http.MethodGet, path+"?latitude=37.79&longitude=-122.40&radius=2&query=chicken", "")

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			require.Len(t, resp.Results, 1)
			assert.Equal(t, 1, resp.Metadata.TotalResults)
			assert.Equal(t, "miles", resp.Metadata.Unit)
			assert.Equal(t, 2.0, resp.Metadata.SearchRadius)
			assert.Equal(t, domain.Coordinate{Lat: 37.79, Lng: -122.40}, resp.Metadata.SearchCenter)

			r := resp.Results[0]
			assert.Equal(t, "r1", r.Restaurant.ID)
			assert.Equal(t, 4.6, r.Restaurant.Rating)
			assert.Equal(t, 1.4, r.Restaurant.Distance)
			assert.Equal(t, "1 Market St", r.Location.Address)
			assert.Equal(t, 0.92, r.MatchingItems[0].MatchScore)
			assert.Equal(t, "45g", r.MatchingItems[0].Nutrition.Protein)
		})
	}

	t.Run("POST with JSON body", func(t *testing.T) {
		srv := setupTestRouter(testConfig(), bowlBar())

		w, resp := srv.do(t, http.MethodPost, "/search", `{"latitude":40.7128,"longitude":"-74.006","radius":3,"query":"chicken"}`)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Len(t, resp.Results, 1)
		assert.Equal(t, domain.Coordinate{Lat: 40.7128, Lng: -74.006}, srv.finder.center)
		assert.Equal(t, 3.0, srv.finder.radius)
	})

	t.Run("defaults apply when location is absent", func(t *testing.T) {
		srv := setupTestRouter(testConfig(), bowlBar())

		w, _ := srv.do(t, http.MethodGet, "/search?query=chicken", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, domain.Coordinate{Lat: 37.7749, Lng: -122.4194}, srv.finder.center)
		assert.Equal(t, 5.0, srv.finder.radius)
	})
}

func TestSearchEndpointErrors(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
		wantError  string
	}{
		{"blank query", http.MethodGet, "/search?query=%20%20", "", http.StatusBadRequest, "Invalid request"},
		{"missing query", http.MethodGet, "/search?latitude=37.7", "", http.StatusBadRequest, "Invalid request"},
		{"non-numeric latitude", http.MethodGet, "/search?latitude=north&query=tacos", "", http.StatusBadRequest, "Invalid request"},
		{"NaN radius", http.MethodGet, "/search?radius=NaN&query=tacos", "", http.StatusBadRequest, "Invalid request"},
		{"latitude out of range", http.MethodGet, "/search?latitude=120&query=tacos", "", http.StatusBadRequest, "Invalid request"},
		{"invalid JSON body", http.MethodPost, "/search", `{"query":`, http.StatusBadRequest, "Invalid request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := setupTestRouter(testConfig(), bowlBar())

			w, resp := srv.do(t, tt.method, tt.target, tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantError, resp.Error)
			assert.NotEmpty(t, resp.Message)
			assert.NotNil(t, resp.Results)
			assert.Empty(t, resp.Results)
			assert.Equal(t, 0, resp.Metadata.TotalResults)
			assert.Equal(t, 0, srv.finder.calls, "no upstream call on invalid input")
		})
	}
}

func TestSearchEndpointNoRestaurants(t *testing.T) {
	t.Run("404 by default", func(t *testing.T) {
		srv := setupTestRouter(testConfig())

		w, resp := srv.do(t, http.MethodGet, "/search?query=tacos", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NotNil(t, resp.Results)
		assert.Empty(t, resp.Results)
		assert.Equal(t, 0, resp.Metadata.TotalResults)
		assert.NotEmpty(t, resp.Message)
	})

	t.Run("200 when configured", func(t *testing.T) {
		cfg := testConfig()
		cfg.Search.EmptyStatus = http.StatusOK
		srv := setupTestRouter(cfg)

		w, resp := srv.do(t, http.MethodGet, "/search?query=tacos", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, resp.Results)
	})

	t.Run("candidates without websites", func(t *testing.T) {
		c := bowlBar()
		c.Website = domain.MissingWebsite()
		srv := setupTestRouter(testConfig(), c)

		w, _ := srv.do(t, http.MethodGet, "/search?query=tacos", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSearchEndpointServerErrors(t *testing.T) {
	t.Run("discovery failure", func(t *testing.T) {
		srv := setupTestRouter(testConfig())
		srv.finder.err = fmt.Errorf("%w: HTTP 403", domain.ErrUpstream)

		w, resp := srv.do(t, http.MethodGet, "/search?query=tacos", "")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Failed to find restaurants", resp.Error)
		assert.Contains(t, resp.Message, "HTTP 403")
	})

	t.Run("aggregation failure", func(t *testing.T) {
		srv := setupTestRouter(testConfig(), bowlBar())
		srv.generator.err = errors.Join(domain.ErrProviderStatus, errors.New("HTTP 500"))

		w, resp := srv.do(t, http.MethodGet, "/search?query=chicken", "")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Failed to combine results", resp.Error)
		assert.Empty(t, resp.Results)
		assert.Equal(t, domain.Coordinate{}, resp.Metadata.SearchCenter)
	})

	t.Run("unparsable aggregation", func(t *testing.T) {
		srv := setupTestRouter(testConfig(), bowlBar())
		srv.generator.aggregate = `{"answer":"sorry"}`

		w, resp := srv.do(t, http.MethodGet, "/search?query=chicken", "")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Failed to combine results", resp.Error)
	})
}

func TestCORSIntegration(t *testing.T) {
	srv := setupTestRouter(testConfig(), bowlBar())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/search", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, 0, srv.finder.calls)
}

func TestRecoveryMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware(), RecoveryMiddleware(logging.Discard()))
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp domain.SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Internal server error", resp.Error)
	assert.NotNil(t, resp.Results)
}

func TestRateLimitedSearch(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{PerMinute: 1, Burst: 1}
	srv := setupTestRouter(cfg, bowlBar())

	w, _ := srv.do(t, http.MethodGet, "/search?query=chicken", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp := srv.do(t, http.MethodGet, "/search?query=chicken", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Too many requests", resp.Error)

	// Health is never limited
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	hw := httptest.NewRecorder()
	srv.router.ServeHTTP(hw, req)
	assert.Equal(t, http.StatusOK, hw.Code)
}

func TestListRestaurantsEndpoint(t *testing.T) {
	t.Run("returns discovered candidates", func(t *testing.T) {
		srv := setupTestRouter(testConfig(), bowlBar())

		req := httptest.NewRequest(http.MethodGet, "/api/v1/restaurants?latitude=37.79&longitude=-122.40&radius=2&limit=10", nil)
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

		var resp domain.RestaurantsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "OK", resp.Status)
		assert.Equal(t, 1, resp.Count)
		require.Len(t, resp.Results, 1)
		assert.Equal(t, "r1", resp.Results[0].ID)
		assert.Equal(t, "https://bowlbar.example", resp.Results[0].Website.String())

		assert.Equal(t, domain.Coordinate{Lat: 37.79, Lng: -122.40}, srv.finder.center)
		assert.Equal(t, 2.0, srv.finder.radius)
		assert.Equal(t, 10, srv.finder.limit)
		assert.Equal(t, 0, srv.scraper.calls, "discovery only")
	})

	t.Run("limit is optional", func(t *testing.T) {
		srv := setupTestRouter(testConfig())

		req := httptest.NewRequest(http.MethodGet, "/api/v1/restaurants?latitude=37.79&longitude=-122.40&radius=2", nil)
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 0, srv.finder.limit)
		assert.JSONEq(t, `{"status":"OK","results":[],"count":0}`, w.Body.String())
	})

	tests := []struct {
		name   string
		target string
	}{
		{"missing radius", "/api/v1/restaurants?latitude=37.79&longitude=-122.40"},
		{"missing latitude", "/api/v1/restaurants?longitude=-122.40&radius=2"},
		{"non-numeric longitude", "/api/v1/restaurants?latitude=37.79&longitude=west&radius=2"},
		{"radius out of range", "/api/v1/restaurants?latitude=37.79&longitude=-122.40&radius=500"},
		{"non-integer limit", "/api/v1/restaurants?latitude=37.79&longitude=-122.40&radius=2&limit=many"},
		{"negative limit", "/api/v1/restaurants?latitude=37.79&longitude=-122.40&radius=2&limit=-3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := setupTestRouter(testConfig(), bowlBar())

			w, resp := srv.do(t, http.MethodGet, tt.target, "")

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "Invalid request", resp.Error)
			assert.Equal(t, 0, srv.finder.calls)
		})
	}

	t.Run("discovery failure", func(t *testing.T) {
		srv := setupTestRouter(testConfig())
		srv.finder.err = fmt.Errorf("%w: HTTP 403", domain.ErrUpstream)

		w, resp := srv.do(t, http.MethodGet, "/api/v1/restaurants?latitude=37.79&longitude=-122.40&radius=2", "")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Failed to find restaurants", resp.Error)
	})
}

func TestParseMenuEndpoint(t *testing.T) {
	t.Run("scrapes and extracts one site", func(t *testing.T) {
		srv := setupTestRouter(testConfig())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/menus/parse",
			strings.NewReader(`{"restaurantUrl":"https://bowlbar.example"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp domain.MenuParseResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "https://bowlbar.example", resp.RestaurantURL)
		assert.Equal(t, []domain.MenuLink{{Text: "Menu", Href: "https://bowlbar.example/menu"}}, resp.MenuLinks)
		require.Len(t, resp.ParsedMenus, 1)
		assert.Equal(t, "https://bowlbar.example/menu", resp.ParsedMenus[0].SourceURL)
		assert.Equal(t, "Grilled Chicken Bowl", resp.ParsedMenus[0].Items[0].Name)
		assert.Equal(t, 1, resp.TotalItems)
		assert.NotEmpty(t, resp.Timestamp)
		assert.Equal(t, 0, srv.finder.calls)
	})

	tests := []struct {
		name string
		body string
	}{
		{"missing body", ""},
		{"missing restaurantUrl", `{}`},
		{"blank restaurantUrl", `{"restaurantUrl":"  "}`},
		{"not an http URL", `{"restaurantUrl":"ftp://bowlbar.example"}`},
		{"invalid JSON", `{"restaurantUrl":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := setupTestRouter(testConfig())

			w, resp := srv.do(t, http.MethodPost, "/api/v1/menus/parse", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "Invalid request", resp.Error)
			assert.Equal(t, 0, srv.scraper.calls)
		})
	}

	t.Run("unreachable site", func(t *testing.T) {
		srv := setupTestRouter(testConfig())
		srv.scraper.err = fmt.Errorf("%w: https://bowlbar.example", domain.ErrTimeout)

		w, resp := srv.do(t, http.MethodPost, "/api/v1/menus/parse", `{"restaurantUrl":"https://bowlbar.example"}`)

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, "Failed to fetch restaurant website", resp.Error)
		assert.Contains(t, resp.Message, "bowlbar.example")
	})
}
