package textutil

import (
	"regexp"
	"strings"
)

var innerWhitespace = regexp.MustCompile(`[ \t\f\v]+`)
var blankLines = regexp.MustCompile(`\s*\n\s*`)

// Normalize is the key used when joining texts scraped from different pages.
// only leading/trailing whitespace is removed, interior text must match exactly.
func Normalize(text string) string {
	return strings.TrimSpace(text)
}

// Rendered approximates the text a browser would render for a node,
// runs of spaces are collapsed and blank lines are dropped.
func Rendered(text string) string {
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = innerWhitespace.ReplaceAllString(text, " ")
	text = blankLines.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}

// Truncate shortens text to at most n runes, marking the cut with "...".
func Truncate(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
