package wiki

import (
	"regexp"
	"strings"
)

var reNonWord = regexp.MustCompile(`[^a-zA-Z0-9]+`)

const fallbackName = "images"

// SanitizeTitle turns a page title into an archive name made of
// [a-zA-Z0-9_] only, with no repeated, leading or trailing underscores.
func SanitizeTitle(title string) string {
	s := reNonWord.ReplaceAllString(title, "_")
	s = strings.Trim(s, "_")

	if s == "" {
		return fallbackName
	}
	return s
}

// PageTitle is the document title with surrounding whitespace removed.
func PageTitle(title string) string {
	return strings.TrimSpace(title)
}
