package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/forkcast/backend/internal/domain"
	"github.com/forkcast/backend/internal/logging"
)

const (
	defaultMaxPages = 5
	noTextContent   = "no text content"
)

// Options configures a Scraper
type Options struct {
	Format           string
	HomepageFallback bool
	BatchDelay       time.Duration
}

// Scraper finds and fetches the menu pages of a restaurant site
type Scraper struct {
	fetcher *Fetcher
	text    *TextExtractor
	opts    Options
	log     *slog.Logger
}

// New creates a Scraper
func New(fetcher *Fetcher, opts Options, log *slog.Logger) *Scraper {
	if opts.Format == "" {
		opts.Format = FormatText
	}
	return &Scraper{
		fetcher: fetcher,
		text:    NewTextExtractor(opts.Format),
		opts:    opts,
		log:     logging.Component(log, "scraper"),
	}
}

// ScrapeRestaurant fetches the homepage, follows at most maxPages menu links in
// batches of maxConcurrency and returns the cleaned, deduplicated page texts.
// Only a homepage failure is returned as an error; page failures are reported per page.
func (s *Scraper) ScrapeRestaurant(ctx context.Context, homepageURL string, maxPages, maxConcurrency int) (*domain.ScrapeResult, error) {
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}

	base, err := url.Parse(strings.TrimSpace(homepageURL))
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid homepage URL %q", domain.ErrFetch, homepageURL)
	}

	body, err := s.fetcher.Fetch(ctx, base.String())
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrFetch, homepageURL, err)
	}

	// Links come from the full document; nav and header are stripped only for text.
	result := &domain.ScrapeResult{
		HomepageURL: homepageURL,
		MenuLinks:   extractMenuLinks(doc, base),
		Pages:       []domain.ScrapedPage{},
		PDFLinks:    extractPDFLinks(doc, base, base),
	}
	s.log.Info("homepage scanned", "url", homepageURL, "menu_links", len(result.MenuLinks), "pdf_links", len(result.PDFLinks))

	targets := fetchTargets(result.MenuLinks, maxPages)
	if len(targets) == 0 {
		if s.opts.HomepageFallback && IsMenuRelevant("", base.Path) {
			page := domain.ScrapedPage{SourceURL: homepageURL, Text: s.text.Extract(doc)}
			if page.Text == "" {
				page.Error = noTextContent
			}
			result.Pages = append(result.Pages, page)
		}
		return result, nil
	}

	fetched := s.fetchAll(ctx, base, targets, maxConcurrency)

	seenText := make(map[string]struct{}, len(fetched))
	for _, page := range fetched {
		result.PDFLinks = mergeLinks(result.PDFLinks, page.PDFLinks)
		if page.Error != "" {
			result.Pages = append(result.Pages, page)
			continue
		}
		if page.Text == "" {
			page.Error = noTextContent
			result.Pages = append(result.Pages, page)
			continue
		}
		if _, dup := seenText[page.Text]; dup {
			s.log.Debug("duplicate page text skipped", "url", page.SourceURL)
			continue
		}
		seenText[page.Text] = struct{}{}
		result.Pages = append(result.Pages, page)
	}

	return result, nil
}

// fetchAll fetches targets in batches; every batch finishes before the next starts.
// The returned slice is in target order.
func (s *Scraper) fetchAll(ctx context.Context, base *url.URL, targets []string, batchSize int) []domain.ScrapedPage {
	pages := make([]domain.ScrapedPage, len(targets))

	for start := 0; start < len(targets); start += batchSize {
		if start > 0 && s.opts.BatchDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.opts.BatchDelay):
			}
		}

		end := min(start+batchSize, len(targets))
		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				pages[i] = s.fetchPage(ctx, base, targets[i])
				return nil
			})
		}
		_ = g.Wait()
	}

	return pages
}

func (s *Scraper) fetchPage(ctx context.Context, base *url.URL, target string) domain.ScrapedPage {
	page := domain.ScrapedPage{SourceURL: target}

	body, err := s.fetcher.Fetch(ctx, target)
	if err != nil {
		s.log.Warn("menu page fetch failed", "url", target, "error", err)
		page.Error = err.Error()
		return page
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		page.Error = fmt.Sprintf("parse page: %v", err)
		return page
	}

	pageURL, err := url.Parse(target)
	if err != nil {
		pageURL = base
	}
	page.PDFLinks = extractPDFLinks(doc, pageURL, base)
	page.Text = s.text.Extract(doc)
	s.log.Debug("menu page extracted", "url", target, "chars", len(page.Text))
	return page
}
