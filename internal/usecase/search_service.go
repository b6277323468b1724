package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/forkcast/backend/internal/domain"
	"github.com/forkcast/backend/internal/logging"
)

type placeFinder interface {
	FindCandidates(ctx context.Context, center domain.Coordinate, radiusMiles float64, limit int) ([]domain.RestaurantCandidate, error)
}

type menuExtractor interface {
	ExtractItems(ctx context.Context, pageText string) ([]domain.MenuItem, error)
}

type resultAggregator interface {
	Combine(ctx context.Context, candidates []domain.RestaurantCandidate, menus []domain.RestaurantMenus,
		center domain.Coordinate, radiusMiles float64, query string) (*domain.SearchResponse, error)
}

// SearchServiceConfig holds configuration for the search pipeline
type SearchServiceConfig struct {
	DefaultLatitude       float64
	DefaultLongitude      float64
	DefaultRadius         float64
	MaxResults            int
	MaxPages              int
	PageConcurrency       int
	RestaurantConcurrency int
	ExtractPause          time.Duration
}

// SearchService runs one search end to end:
// discover places, scrape and extract menus per restaurant, then aggregate.
type SearchService struct {
	finder     placeFinder
	scraper    domain.MenuScraper
	extractor  menuExtractor
	aggregator resultAggregator
	validate   *validator.Validate
	config     SearchServiceConfig
	log        *slog.Logger
}

// NewSearchService creates a SearchService with defaults for zero config values
func NewSearchService(
	finder placeFinder,
	scraper domain.MenuScraper,
	extractor menuExtractor,
	aggregator resultAggregator,
	config SearchServiceConfig,
	log *slog.Logger,
) *SearchService {
	if config.DefaultRadius <= 0 {
		config.DefaultRadius = 5
	}
	if config.DefaultLatitude == 0 && config.DefaultLongitude == 0 {
		config.DefaultLatitude, config.DefaultLongitude = 37.7749, -122.4194
	}
	if config.MaxResults <= 0 {
		config.MaxResults = 5
	}
	if config.MaxPages <= 0 {
		config.MaxPages = 5
	}
	if config.PageConcurrency <= 0 {
		config.PageConcurrency = 3
	}
	if config.RestaurantConcurrency <= 0 {
		config.RestaurantConcurrency = 5
	}
	return &SearchService{
		finder:     finder,
		scraper:    scraper,
		extractor:  extractor,
		aggregator: aggregator,
		validate:   newValidator(),
		config:     config,
		log:        logging.Component(log, "search"),
	}
}

// NewRequest builds a SearchRequest, substituting the configured defaults for absent values
func (s *SearchService) NewRequest(latitude, longitude, radius *float64, query string) domain.SearchRequest {
	req := domain.SearchRequest{
		Latitude:    s.config.DefaultLatitude,
		Longitude:   s.config.DefaultLongitude,
		RadiusMiles: s.config.DefaultRadius,
		Query:       query,
	}
	if latitude != nil {
		req.Latitude = *latitude
	}
	if longitude != nil {
		req.Longitude = *longitude
	}
	if radius != nil {
		req.RadiusMiles = *radius
	}
	return req
}

// Search runs the pipeline. On ErrNoRestaurants the returned response is still
// populated so the caller can send it as the body.
func (s *SearchService) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	req.Query = strings.TrimSpace(req.Query)
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	// Client disconnects must not abort a half-finished pipeline; per-fetch timeouts still apply
	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	center := req.Center()
	log := s.log.With("query", req.Query)

	candidates, err := s.finder.FindCandidates(ctx, center, req.RadiusMiles, s.config.MaxResults)
	if err != nil {
		log.Error("place discovery failed", "error", err)
		return nil, err
	}
	if len(candidates) == 0 {
		log.Info("no restaurants found", "radius", req.RadiusMiles)
		return s.emptyResponse(req, msgNoCandidates), domain.ErrNoRestaurants
	}

	menus := s.processRestaurants(ctx, candidates)

	usable := 0
	for _, m := range menus {
		if m.HasMenuData() {
			usable++
		}
	}
	log.Info("menus processed", "restaurants", len(menus), "with_menu_data", usable)
	if usable == 0 {
		return s.emptyResponse(req, msgNoMenuData), domain.ErrNoRestaurants
	}

	resp, err := s.aggregator.Combine(ctx, candidates, menus, center, req.RadiusMiles, req.Query)
	if err != nil {
		log.Error("aggregation failed", "error", err)
		return nil, err
	}

	log.Info("search complete", "results", resp.Metadata.TotalResults, "duration", time.Since(start))
	return resp, nil
}

func (s *SearchService) validateRequest(req domain.SearchRequest) error {
	if req.Query == "" {
		return fmt.Errorf("%w: query parameter is required", domain.ErrValidation)
	}
	if err := s.validate.Struct(req); err != nil {
		return validationError(err)
	}
	return nil
}

// validationError reports the first failed field by its JSON name and rule
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		return fmt.Errorf("%w: %s must satisfy %s", domain.ErrValidation, fe.Field(), rule)
	}
	return fmt.Errorf("%w: %v", domain.ErrValidation, err)
}

// newValidator reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *SearchService) emptyResponse(req domain.SearchRequest, message string) *domain.SearchResponse {
	resp := domain.NewEmptyResponse(req.Center(), req.RadiusMiles, message)
	resp.Error = domain.ErrNoRestaurants.Error()
	resp.Message = message
	return resp
}

// processRestaurants fans out one unit of work per candidate. Each unit writes only its
// own slot and never returns an error, so one failing restaurant cannot cancel the rest.
func (s *SearchService) processRestaurants(ctx context.Context, candidates []domain.RestaurantCandidate) []domain.RestaurantMenus {
	menus := make([]domain.RestaurantMenus, len(candidates))

	var g errgroup.Group
	g.SetLimit(s.config.RestaurantConcurrency)
	for i, c := range candidates {
		g.Go(func() error {
			menus[i] = s.processRestaurant(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	return menus
}

func (s *SearchService) processRestaurant(ctx context.Context, c domain.RestaurantCandidate) domain.RestaurantMenus {
	log := s.log.With("restaurant", c.Name)
	result := domain.RestaurantMenus{Candidate: c, Menus: []domain.ParsedMenuResult{}}

	if !c.Website.Found() {
		result.Status = domain.MenuStatusNoWebsite
		result.Error = "no website available"
		return result
	}

	scrape, err := s.scraper.ScrapeRestaurant(ctx, c.Website.URL, s.config.MaxPages, s.config.PageConcurrency)
	if err != nil {
		log.Warn("scrape failed", "url", c.Website.URL, "error", err)
		result.Status = domain.MenuStatusError
		result.Error = err.Error()
		return result
	}
	result.PDFLinks = scrape.PDFLinks

	menus, extracted, failed := s.extractPages(ctx, log, scrape.Pages)
	result.Menus = menus

	switch {
	case result.HasMenuData():
		result.Status = domain.MenuStatusSuccess
	case failed > 0 && extracted == 0:
		result.Status = domain.MenuStatusError
		result.Error = "menu extraction failed for every page"
	default:
		result.Status = domain.MenuStatusNoMenu
		result.Error = "no menu items found"
	}

	log.Debug("restaurant processed", "status", result.Status, "items", result.TotalItems(), "pages", len(scrape.Pages))
	return result
}

// extractPages runs the extractor over each usable page in order, pausing between calls.
// Unusable pages and failed extractions are kept as entries carrying their error.
func (s *SearchService) extractPages(ctx context.Context, log *slog.Logger, pages []domain.ScrapedPage) ([]domain.ParsedMenuResult, int, int) {
	menus := make([]domain.ParsedMenuResult, 0, len(pages))
	extracted, failed := 0, 0
	for _, page := range pages {
		if !page.Usable() {
			menus = append(menus, domain.ParsedMenuResult{
				SourceURL: page.SourceURL,
				Items:     []domain.MenuItem{},
				Error:     page.Error,
			})
			continue
		}

		if extracted+failed > 0 && !sleepCtx(ctx, s.config.ExtractPause) {
			break
		}

		items, err := s.extractor.ExtractItems(ctx, page.Text)
		if err != nil {
			log.Warn("extraction failed", "url", page.SourceURL, "error", err)
			failed++
			menus = append(menus, domain.ParsedMenuResult{
				SourceURL: page.SourceURL,
				Items:     []domain.MenuItem{},
				Error:     err.Error(),
			})
			continue
		}
		extracted++
		if items == nil {
			items = []domain.MenuItem{}
		}
		menus = append(menus, domain.ParsedMenuResult{
			SourceURL: page.SourceURL,
			ItemCount: len(items),
			Items:     items,
		})
	}
	return menus, extracted, failed
}

// sleepCtx waits for d or until ctx is done; it reports whether the full wait elapsed
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
