package usecase

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/forkcast/backend/internal/domain"
	"github.com/forkcast/backend/internal/logging"
)

// websiteResolver fills in missing websites
type websiteResolver interface {
	ResolveWebsite(ctx context.Context, name, address string) domain.Website
}

// PlaceFinderConfig holds configuration for candidate discovery
type PlaceFinderConfig struct {
	ResolveWebsites bool
	MaxConcurrency  int
}

// PlaceFinder discovers restaurants around a point using one candidate source
type PlaceFinder struct {
	source      domain.CandidateSource
	resolver    websiteResolver
	resolve     bool
	concurrency int
	log         *slog.Logger
}

// NewPlaceFinder creates a PlaceFinder. resolver may be nil when resolution is disabled.
func NewPlaceFinder(source domain.CandidateSource, resolver websiteResolver, config PlaceFinderConfig, log *slog.Logger) *PlaceFinder {
	concurrency := config.MaxConcurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	return &PlaceFinder{
		source:      source,
		resolver:    resolver,
		resolve:     config.ResolveWebsites && resolver != nil,
		concurrency: concurrency,
		log:         logging.Component(log, "place_finder"),
	}
}

// FindCandidates returns up to limit deduplicated candidates with their distance from
// center. Candidates without a known website are resolved when resolution is enabled.
func (f *PlaceFinder) FindCandidates(ctx context.Context, center domain.Coordinate, radiusMiles float64, limit int) ([]domain.RestaurantCandidate, error) {
	raw, err := f.source.SearchNearby(ctx, center, domain.MilesToMeters(radiusMiles), limit)
	if err != nil {
		return nil, err
	}

	candidates := make([]domain.RestaurantCandidate, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, c := range raw {
		key := c.ID
		if key == "" {
			key = strings.ToLower(c.Name + "|" + c.Address)
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		c.DistanceMiles = roundTo(center.DistanceMiles(c.Location), 2)
		candidates = append(candidates, c)
	}
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	f.log.Info("candidates discovered", "source", f.source.Name(), "raw", len(raw), "unique", len(candidates))

	if f.resolve {
		f.resolveWebsites(ctx, candidates)
	}
	return candidates, nil
}

// resolveWebsites fills unknown websites in place; each goroutine owns one index
func (f *PlaceFinder) resolveWebsites(ctx context.Context, candidates []domain.RestaurantCandidate) {
	var g errgroup.Group
	g.SetLimit(f.concurrency)

	for i := range candidates {
		if !candidates[i].Website.IsZero() {
			continue
		}
		g.Go(func() error {
			w := f.resolver.ResolveWebsite(ctx, candidates[i].Name, candidates[i].Address)
			candidates[i] = candidates[i].WithWebsite(w)
			return nil
		})
	}
	_ = g.Wait()
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
