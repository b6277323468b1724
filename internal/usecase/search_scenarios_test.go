package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/forkcast/backend/internal/domain"
	"github.com/forkcast/backend/internal/logging"
)

// pipeline runs the real extractor and aggregator over a mocked finder, scraper and model
func pipeline(gen *MockTextGenerator, filter *QueryFilter, candidates ...domain.RestaurantCandidate) (*SearchService, *MockMenuScraper) {
	log := logging.Discard()
	scraper := NewMockMenuScraper()
	for _, c := range candidates {
		if !c.Website.Found() {
			continue
		}
		scraper.results[c.Website.URL] = &domain.ScrapeResult{
			HomepageURL: c.Website.URL,
			Pages:       []domain.ScrapedPage{{SourceURL: c.Website.URL + "/menu", Text: c.Name + " menu"}},
		}
	}

	svc := NewSearchService(
		&MockPlaceFinder{candidates: candidates},
		scraper,
		NewMenuExtractor(gen, MenuExtractorConfig{}, log),
		NewResultAggregator(gen, ResultAggregatorConfig{Filter: filter}, log),
		SearchServiceConfig{MaxResults: 5, RestaurantConcurrency: 3},
		log,
	)
	return svc, scraper
}

func oracle(aggregate string) *MockTextGenerator {
	return &MockTextGenerator{
		toolFn: func(domain.Prompt, domain.ToolSpec) (json.RawMessage, error) {
			return json.RawMessage(`{"menuItems":[{"name":"House Special","price":12}]}`), nil
		},
		jsonFn: func(domain.Prompt) (json.RawMessage, error) {
			return json.RawMessage(aggregate), nil
		},
	}
}

func TestSearchDessertQuery(t *testing.T) {
	dolce := candidate("dolce", "Dolce Vita", domain.KnownWebsite("https://dolce.example"))
	trattoria := candidate("trattoria", "Trattoria Roma", domain.KnownWebsite("https://trattoria.example"))
	pasta := candidate("pasta", "Pasta Bar", domain.KnownWebsite("https://pasta.example"))

	gen := oracle(`{"results":[
		{"restaurant":{"id":"dolce"},"matchingItems":[
			{"name":"Classic Tiramisu","ingredients":["mascarpone","espresso"],"matchScore":0.95},
			{"name":"Chicken Parmesan","matchScore":0.2}
		]},
		{"restaurant":{"id":"trattoria"},"matchingItems":[{"name":"Tiramisu Gelato","matchScore":0.8}]},
		{"restaurant":{"id":"pasta"},"matchingItems":[{"name":"Chicken Parmesan","matchScore":0.1}]}
	]}`)
	svc, _ := pipeline(gen, NewQueryFilter(1), dolce, trattoria, pasta)

	req := domain.SearchRequest{Latitude: 37.7749, Longitude: -122.4194, RadiusMiles: 5, Query: "tiramisu"}
	resp, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(resp.Results) > 3 {
		t.Errorf("results = %d, want at most 3", len(resp.Results))
	}
	if resp.Metadata.TotalResults != len(resp.Results) {
		t.Errorf("totalResults = %d, want %d", resp.Metadata.TotalResults, len(resp.Results))
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results = %+v, want dolce and trattoria", resp.Results)
	}
	for _, r := range resp.Results {
		for _, item := range r.MatchingItems {
			if !strings.Contains(strings.ToLower(item.Name), "tiramisu") {
				t.Errorf("%s kept unrelated item %q", r.Restaurant.Name, item.Name)
			}
		}
	}
	if gen.toolCalls != 3 || gen.jsonCalls != 1 {
		t.Errorf("model calls = %d tool, %d json; want 3, 1", gen.toolCalls, gen.jsonCalls)
	}
}

func TestSearchSurvivesHomepageTimeout(t *testing.T) {
	a := candidate("a", "Alpha", domain.KnownWebsite("https://a.example"))
	b := candidate("b", "Bravo", domain.KnownWebsite("https://b.example"))
	c := candidate("c", "Charlie", domain.KnownWebsite("https://c.example"))

	// the model also answers for the restaurant that never loaded
	gen := oracle(`{"results":[
		{"restaurant":{"id":"a"},"matchingItems":[{"name":"House Special","matchScore":0.7}]},
		{"restaurant":{"id":"b"},"matchingItems":[{"name":"House Special","matchScore":0.6}]},
		{"restaurant":{"id":"c"},"matchingItems":[{"name":"House Special","matchScore":0.5}]}
	]}`)
	svc, scraper := pipeline(gen, nil, a, b, c)
	scraper.errs["https://c.example"] = fmt.Errorf("%w: https://c.example", domain.ErrTimeout)

	resp, err := svc.Search(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(resp.Results) > 2 {
		t.Errorf("results = %d, want at most 2", len(resp.Results))
	}
	for _, r := range resp.Results {
		if r.Restaurant.ID == "c" {
			t.Errorf("timed out restaurant %q appears in results", r.Restaurant.Name)
		}
	}
	if len(resp.Results) != 2 {
		t.Errorf("results = %+v, want alpha and bravo", resp.Results)
	}
}
