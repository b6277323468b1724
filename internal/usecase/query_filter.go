package usecase

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/forkcast/backend/internal/domain"
)

var punctuationRegex = regexp.MustCompile(`[^\p{L}\p{N}\s]`)

// queryStopWords includes basic English stop words plus search phrasing noise
var queryStopWords = map[string]bool{
	// Basic English stop words
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"of": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "with": true, "by": true, "from": true, "is": true,
	"it": true, "as": true, "be": true, "was": true, "are": true,
	"me": true, "my": true, "some": true, "any": true,
	// Search phrasing
	"want": true, "find": true, "looking": true, "near": true, "nearby": true,
	"around": true, "best": true, "good": true, "place": true, "places": true,
	"food": true, "dish": true, "dishes": true, "meal": true, "meals": true,
	"restaurant": true, "restaurants": true, "menu": true, "something": true,
}

// QueryFilter is the deterministic keyword floor applied after aggregation.
// An item survives when it shares at least one token (exact, prefix or within
// the edit distance) with the query.
type QueryFilter struct {
	fuzzyEditDistance int
}

// NewQueryFilter creates a QueryFilter
func NewQueryFilter(fuzzyEditDistance int) *QueryFilter {
	if fuzzyEditDistance < 0 {
		fuzzyEditDistance = 0
	}
	return &QueryFilter{fuzzyEditDistance: fuzzyEditDistance}
}

// Apply removes items that share no token with query and drops restaurants left empty.
// A query with no meaningful tokens keeps everything.
func (f *QueryFilter) Apply(query string, results []domain.RestaurantResult) []domain.RestaurantResult {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return results
	}

	filtered := make([]domain.RestaurantResult, 0, len(results))
	for _, r := range results {
		items := make([]domain.MatchingItem, 0, len(r.MatchingItems))
		for _, item := range r.MatchingItems {
			if f.matches(queryTokens, item) {
				items = append(items, item)
			}
		}
		if len(items) == 0 {
			continue
		}
		r.MatchingItems = items
		filtered = append(filtered, r)
	}
	return filtered
}

func (f *QueryFilter) matches(queryTokens []string, item domain.MatchingItem) bool {
	text := item.Name + " " + item.Ingredients + " " + strings.Join(item.Tags, " ")
	itemTokens := tokenize(text)
	for _, q := range queryTokens {
		for _, t := range itemTokens {
			if q == t || strings.HasPrefix(t, q) || fuzzyTokenMatch(q, t, f.fuzzyEditDistance) {
				return true
			}
		}
	}
	return false
}

// tokenize splits a string into normalized lowercase tokens.
// Removes punctuation, stop words and pure numeric tokens.
func tokenize(s string) []string {
	cleaned := punctuationRegex.ReplaceAllString(strings.ToLower(s), " ")

	var tokens []string
	for _, word := range strings.Fields(cleaned) {
		// Skip short tokens (1 char or less)
		if utf8.RuneCountInString(word) <= 1 {
			continue
		}
		if queryStopWords[word] {
			continue
		}
		// Skip pure numeric tokens (e.g., "12")
		if isNumeric(word) {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// isNumeric checks if a string contains only digits
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// fuzzyTokenMatch checks if two tokens are similar within the edit distance threshold
func fuzzyTokenMatch(token1, token2 string, threshold int) bool {
	if token1 == token2 {
		return true
	}

	// Only apply fuzzy matching to tokens of 4+ chars to avoid false positives
	len1, len2 := utf8.RuneCountInString(token1), utf8.RuneCountInString(token2)
	if len1 < 4 || len2 < 4 {
		return false
	}

	lenDiff := len1 - len2
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	if lenDiff > threshold {
		return false
	}

	return levenshteinDistance(token1, token2) <= threshold
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	// Two rows instead of the full matrix
	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(r2)]
}
