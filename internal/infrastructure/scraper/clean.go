package scraper

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CleanText normalises one line of scraped text: format characters (zero-width
// spaces, BOM, joiners) are removed, the rest is NFKC-normalised, whitespace runs
// collapse to single spaces and the ends are trimmed. CleanText is idempotent.
func CleanText(s string) string {
	// Cf removal runs before NFKC so that removing a joiner cannot leave an
	// uncomposed sequence behind.
	t := transform.Chain(runes.Remove(runes.In(unicode.Cf)), norm.NFKC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(out), " ")
}

// cleanLines applies CleanText to every line and drops the empty ones
func cleanLines(text string) string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if cleaned := CleanText(line); cleaned != "" {
			lines = append(lines, cleaned)
		}
	}
	return strings.Join(lines, "\n")
}
