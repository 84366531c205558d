package textutil

import (
	"regexp"
	"strings"
	"unicode"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Normalize canonicalizes free text for comparison: markup-like tags are
// stripped, everything is lowercased, and runs of non-alphanumeric characters
// collapse to single spaces. Empty input normalizes to the empty string.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = tagPattern.ReplaceAllString(text, " ")
	text = strings.ToLower(text)
	text = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, text)
	return strings.Join(strings.Fields(text), " ")
}
