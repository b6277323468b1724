package scraper

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Output formats for page text
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
)

const noiseSelector = "script, style, noscript, nav, header, footer, svg, iframe"

// blockElements end a line of text when the walker leaves them
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "dd": true,
	"div": true, "dl": true, "dt": true, "fieldset": true, "figcaption": true,
	"figure": true, "form": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "hr": true, "li": true, "main": true, "ol": true,
	"p": true, "pre": true, "section": true, "table": true, "tr": true,
	"ul": true, "br": true, "body": true, "option": true,
}

// TextExtractor turns a fetched page into the cleaned text handed to extraction
type TextExtractor struct {
	format    string
	converter *md.Converter
}

// NewTextExtractor creates an extractor for "text" or "markdown" output
func NewTextExtractor(format string) *TextExtractor {
	e := &TextExtractor{format: format}
	if format == FormatMarkdown {
		e.converter = md.NewConverter("", true, nil)
	}
	return e
}

// Extract removes page chrome and returns the cleaned text of the main content.
// The document is modified in place.
func (e *TextExtractor) Extract(doc *goquery.Document) string {
	doc.Find(noiseSelector).Remove()

	root := contentRoot(doc)
	if root.Length() == 0 {
		return ""
	}

	if e.converter != nil {
		markup, err := goquery.OuterHtml(root)
		if err == nil {
			if markdown, err := e.converter.ConvertString(markup); err == nil {
				return cleanLines(markdown)
			}
		}
	}

	var b strings.Builder
	for _, n := range root.Nodes {
		writeText(&b, n)
	}
	return cleanLines(b.String())
}

// contentRoot prefers <main>, then <article>, then <body>
func contentRoot(doc *goquery.Document) *goquery.Selection {
	for _, sel := range []string{"main", "article", "body"} {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return s
		}
	}
	return doc.Selection
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	}

	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	switch {
	case block:
		b.WriteByte('\n')
	case n.Type == html.ElementNode && (n.Data == "td" || n.Data == "th"):
		b.WriteByte(' ')
	}
}
