package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/forkcast/backend/internal/domain"
)

// FindRestaurants runs discovery only and returns every candidate found around the point
func (s *SearchService) FindRestaurants(ctx context.Context, req domain.AreaRequest) (*domain.RestaurantsResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	candidates, err := s.finder.FindCandidates(ctx, req.Center(), req.RadiusMiles, req.Limit)
	if err != nil {
		s.log.Error("place discovery failed", "error", err)
		return nil, err
	}
	if candidates == nil {
		candidates = []domain.RestaurantCandidate{}
	}

	s.log.Info("restaurants listed", "count", len(candidates), "radius", req.RadiusMiles, "limit", req.Limit)
	return &domain.RestaurantsResponse{
		Status:  "OK",
		Results: candidates,
		Count:   len(candidates),
	}, nil
}

// ParseMenu scrapes one restaurant site and extracts the items of every menu page it finds.
// A homepage that cannot be fetched is returned as the scraper's error.
func (s *SearchService) ParseMenu(ctx context.Context, restaurantURL string) (*domain.MenuParseResult, error) {
	restaurantURL = strings.TrimSpace(restaurantURL)
	if restaurantURL == "" {
		return nil, fmt.Errorf("%w: restaurantUrl is required", domain.ErrValidation)
	}
	if err := s.validate.Var(restaurantURL, "http_url"); err != nil {
		return nil, fmt.Errorf("%w: restaurantUrl must be an http or https URL", domain.ErrValidation)
	}

	ctx = context.WithoutCancel(ctx)
	log := s.log.With("restaurant_url", restaurantURL)

	scrape, err := s.scraper.ScrapeRestaurant(ctx, restaurantURL, s.config.MaxPages, s.config.PageConcurrency)
	if err != nil {
		log.Warn("scrape failed", "error", err)
		return nil, err
	}

	menus, _, failed := s.extractPages(ctx, log, scrape.Pages)

	result := &domain.MenuParseResult{
		RestaurantURL: restaurantURL,
		MenuLinks:     scrape.MenuLinks,
		ParsedMenus:   menus,
		PDFLinks:      scrape.PDFLinks,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
	if result.MenuLinks == nil {
		result.MenuLinks = []domain.MenuLink{}
	}
	if result.PDFLinks == nil {
		result.PDFLinks = []domain.MenuLink{}
	}
	for _, m := range menus {
		result.TotalItems += m.ItemCount
	}

	log.Info("menu parsed", "pages", len(menus), "failed", failed, "items", result.TotalItems)
	return result, nil
}
