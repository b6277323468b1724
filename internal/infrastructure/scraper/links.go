package scraper

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/forkcast/backend/internal/domain"
)

const maxLinkTextLen = 50

var menuPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(menu|menus)\b`),
	regexp.MustCompile(`(?i)\b(food|dine|dining|eat)\b`),
	regexp.MustCompile(`(?i)\b(drink|drinks|beverage|beverages|bar)\b`),
	regexp.MustCompile(`(?i)\b(wine|cocktail|beer|spirits)\b`),
	regexp.MustCompile(`(?i)\b(breakfast|brunch|lunch|dinner)\b`),
	// \b is ASCII-only in RE2, so the accented spelling is matched without it
	regexp.MustCompile(`(?i)(\bappetizer\b|entrée|\bentree\b|\bdessert\b)`),
}

// IsMenuRelevant reports whether an anchor's text or href looks like it leads to a menu
func IsMenuRelevant(text, href string) bool {
	for _, p := range menuPatterns {
		if p.MatchString(text) || p.MatchString(href) {
			return true
		}
	}
	return false
}

// extractMenuLinks returns menu-relevant anchors resolved against base, in document
// order, deduplicated by (text, href)
func extractMenuLinks(doc *goquery.Document, base *url.URL) []domain.MenuLink {
	links := make([]domain.MenuLink, 0)
	seen := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		text := CleanText(a.Text())
		if text == "" || len([]rune(text)) > maxLinkTextLen {
			return
		}
		href, _ := a.Attr("href")
		if !IsMenuRelevant(text, href) {
			return
		}

		abs, ok := resolveHTTP(base, href)
		if !ok {
			return
		}

		key := text + "|" + abs
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		links = append(links, domain.MenuLink{Text: text, Href: abs})
	})

	return links
}

// extractPDFLinks returns links to PDF documents hosted on the restaurant's own site.
// Hrefs are resolved against page; site is the restaurant homepage.
func extractPDFLinks(doc *goquery.Document, page, site *url.URL) []domain.MenuLink {
	links := make([]domain.MenuLink, 0)
	seen := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		abs, ok := resolveHTTP(page, href)
		if !ok || !isPDF(abs) {
			return
		}
		u, err := url.Parse(abs)
		if err != nil || !sameSite(site, u) {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		links = append(links, domain.MenuLink{Text: CleanText(a.Text()), Href: abs})
	})

	return links
}

// resolveHTTP resolves href against base and keeps only http(s) results
func resolveHTTP(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" || abs.Host == "" {
		return "", false
	}
	return abs.String(), true
}

func isPDF(href string) bool {
	lower := strings.ToLower(href)
	if i := strings.Index(lower, "#"); i >= 0 {
		lower = lower[:i]
	}
	return strings.HasSuffix(lower, ".pdf") ||
		strings.Contains(lower, ".pdf?") ||
		strings.Contains(lower, "/pdf/")
}

func sameSite(a, b *url.URL) bool {
	return strings.TrimPrefix(strings.ToLower(a.Hostname()), "www.") ==
		strings.TrimPrefix(strings.ToLower(b.Hostname()), "www.")
}

// fetchTargets turns menu links into at most maxPages distinct page URLs.
// Fragments are dropped and PDFs are never fetched.
func fetchTargets(links []domain.MenuLink, maxPages int) []string {
	targets := make([]string, 0, maxPages)
	seen := make(map[string]struct{})
	for _, link := range links {
		if len(targets) >= maxPages {
			break
		}
		if isPDF(link.Href) {
			continue
		}
		target := link.Href
		if u, err := url.Parse(target); err == nil {
			u.Fragment = ""
			target = u.String()
		}
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}
		targets = append(targets, target)
	}
	return targets
}

func mergeLinks(dst []domain.MenuLink, src []domain.MenuLink) []domain.MenuLink {
	seen := make(map[string]struct{}, len(dst))
	for _, l := range dst {
		seen[l.Href] = struct{}{}
	}
	for _, l := range src {
		if _, dup := seen[l.Href]; dup {
			continue
		}
		seen[l.Href] = struct{}{}
		dst = append(dst, l)
	}
	return dst
}
