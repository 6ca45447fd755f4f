package search

import (
	"strings"
	"unicode"
)

const ellipsis = "..."

// Snippet returns the text around the first case-insensitive occurrence of
// term in content: radius runes on each side, whitespace collapsed, with an
// ellipsis marking each cut end. It returns "" when term does not occur.
func Snippet(content, term string, radius int) string {
	runes := []rune(content)
	needle := []rune(strings.ToLower(term))
	if len(needle) == 0 {
		return ""
	}

	at := indexFold(runes, needle)
	if at < 0 {
		return ""
	}

	start := max(at-radius, 0)
	end := min(at+len(needle)+radius, len(runes))
	window := strings.Join(strings.Fields(string(runes[start:end])), " ")

	if start > 0 {
		window = ellipsis + window
	}
	if end < len(runes) {
		window += ellipsis
	}
	return window
}

// indexFold finds the lowercase needle in haystack, comparing rune by rune.
func indexFold(haystack, needle []rune) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		matched := true
		for j, r := range needle {
			if unicode.ToLower(haystack[i+j]) != r {
				matched = false
				break
			}
		}
		if matched {
			return i
		}
	}
	return -1
}
