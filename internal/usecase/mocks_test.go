package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/forkcast/backend/internal/domain"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	mu       sync.Mutex
	data     map[string]interface{}
	getError error
	setError error
	setCalls int
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{data: make(map[string]interface{})}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls++
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

// MockTextGenerator is a mock implementation of domain.TextGenerator
type MockTextGenerator struct {
	mu         sync.Mutex
	toolFn     func(prompt domain.Prompt, tool domain.ToolSpec) (json.RawMessage, error)
	jsonFn     func(prompt domain.Prompt) (json.RawMessage, error)
	toolCalls  int
	jsonCalls  int
	lastPrompt domain.Prompt
	lastTool   domain.ToolSpec
}

// toolReturning answers every tool call with the given JSON
func toolReturning(raw string) *MockTextGenerator {
	return &MockTextGenerator{
		toolFn: func(domain.Prompt, domain.ToolSpec) (json.RawMessage, error) {
			return json.RawMessage(raw), nil
		},
	}
}

// jsonReturning answers every JSON call with the given JSON
func jsonReturning(raw string) *MockTextGenerator {
	return &MockTextGenerator{
		jsonFn: func(domain.Prompt) (json.RawMessage, error) {
			return json.RawMessage(raw), nil
		},
	}
}

func (m *MockTextGenerator) InvokeTool(ctx context.Context, prompt domain.Prompt, tool domain.ToolSpec) (json.RawMessage, error) {
	m.mu.Lock()
	m.toolCalls++
	m.lastPrompt = prompt
	m.lastTool = tool
	fn := m.toolFn
	m.mu.Unlock()
	if fn == nil {
		return nil, domain.ErrMalformedOutput
	}
	return fn(prompt, tool)
}

func (m *MockTextGenerator) GenerateJSON(ctx context.Context, prompt domain.Prompt) (json.RawMessage, error) {
	m.mu.Lock()
	m.jsonCalls++
	m.lastPrompt = prompt
	fn := m.jsonFn
	m.mu.Unlock()
	if fn == nil {
		return nil, domain.ErrMalformedOutput
	}
	return fn(prompt)
}

// MockCandidateSource is a mock implementation of domain.CandidateSource
type MockCandidateSource struct {
	candidates   []domain.RestaurantCandidate
	err          error
	radiusMeters float64
	limit        int
	calls        int
}

func (m *MockCandidateSource) Name() string { return "mock" }

func (m *MockCandidateSource) SearchNearby(ctx context.Context, center domain.Coordinate, radiusMeters float64, limit int) ([]domain.RestaurantCandidate, error) {
	m.calls++
	m.radiusMeters = radiusMeters
	m.limit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.candidates, nil
}

// MockWebsiteResolver is a mock website resolver keyed by restaurant name
type MockWebsiteResolver struct {
	mu       sync.Mutex
	websites map[string]domain.Website
	calls    []string
}

func (m *MockWebsiteResolver) ResolveWebsite(ctx context.Context, name, address string) domain.Website {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
	if w, ok := m.websites[name]; ok {
		return w
	}
	return domain.MissingWebsite()
}

// MockMenuScraper is a mock implementation of domain.MenuScraper keyed by homepage URL
type MockMenuScraper struct {
	mu       sync.Mutex
	results  map[string]*domain.ScrapeResult
	errs     map[string]error
	delay    time.Duration
	calls    int
	active   int
	peak     int
	ctxAlive bool
}

func NewMockMenuScraper() *MockMenuScraper {
	return &MockMenuScraper{
		results:  make(map[string]*domain.ScrapeResult),
		errs:     make(map[string]error),
		ctxAlive: true,
	}
}

func (m *MockMenuScraper) ScrapeRestaurant(ctx context.Context, homepageURL string, maxPages, maxConcurrency int) (*domain.ScrapeResult, error) {
	m.mu.Lock()
	m.calls++
	m.active++
	if m.active > m.peak {
		m.peak = m.active
	}
	if ctx.Err() != nil {
		m.ctxAlive = false
	}
	m.mu.Unlock()

	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.active--
	if err, ok := m.errs[homepageURL]; ok {
		return nil, err
	}
	if r, ok := m.results[homepageURL]; ok {
		return r, nil
	}
	return &domain.ScrapeResult{HomepageURL: homepageURL, Pages: []domain.ScrapedPage{}}, nil
}

// MockMenuExtractor is a mock menu extractor keyed by page text
type MockMenuExtractor struct {
	mu    sync.Mutex
	items map[string][]domain.MenuItem
	errs  map[string]error
	calls int
}

func NewMockMenuExtractor() *MockMenuExtractor {
	return &MockMenuExtractor{
		items: make(map[string][]domain.MenuItem),
		errs:  make(map[string]error),
	}
}

func (m *MockMenuExtractor) ExtractItems(ctx context.Context, pageText string) ([]domain.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err, ok := m.errs[pageText]; ok {
		return nil, err
	}
	return m.items[pageText], nil
}

// MockResultAggregator records what it was asked to combine
type MockResultAggregator struct {
	calls      int
	candidates []domain.RestaurantCandidate
	menus      []domain.RestaurantMenus
	query      string
	err        error
}

func (m *MockResultAggregator) Combine(ctx context.Context, candidates []domain.RestaurantCandidate, menus []domain.RestaurantMenus,
	center domain.Coordinate, radiusMiles float64, query string) (*domain.SearchResponse, error) {
	m.calls++
	m.candidates = candidates
	m.menus = menus
	m.query = query
	if m.err != nil {
		return nil, m.err
	}
	resp := domain.NewEmptyResponse(center, radiusMiles, "")
	for _, menu := range menus {
		var items []domain.MatchingItem
		for _, page := range menu.Menus {
			for _, item := range page.Items {
				items = append(items, domain.MatchingItem{Name: item.Name, MatchScore: 0.9, Tags: []string{}})
			}
		}
		if len(items) == 0 {
			continue
		}
		resp.Results = append(resp.Results, domain.RestaurantResult{
			Restaurant:    domain.RestaurantInfo{Name: menu.Candidate.Name, ID: menu.Candidate.ID, DistanceUnit: domain.DistanceUnit},
			MatchingItems: items,
		})
	}
	resp.Metadata.TotalResults = len(resp.Results)
	return resp, nil
}

func ptr[T any](v T) *T { return &v }
