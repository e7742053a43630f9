package httpapi

import (
	"regexp"
	"strings"
	"unicode"
)

// htmlTag matches opening, closing and self-closing tags. A bare "<" or ">"
// is left alone so price comparisons survive.
var htmlTag = regexp.MustCompile(`</?[A-Za-z][A-Za-z0-9-]*(\s[^<>]*)?/?>`)

// SanitizeMessage strips HTML tags and control characters, trims the result
// and caps it at maxChars runes.
func SanitizeMessage(input string, maxChars int) string {
	input = htmlTag.ReplaceAllString(input, "")

	input = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			return -1
		}
		return r
	}, input)

	input = strings.TrimSpace(input)

	if maxChars > 0 {
		if runes := []rune(input); len(runes) > maxChars {
			input = strings.TrimSpace(string(runes[:maxChars]))
		}
	}

	return input
}
