// Package tokenizer normalises free text, query phrases and URL paths into
// comparable token sequences. It lower-cases input, treats everything other
// than ASCII letters, digits and whitespace as a separator, and keeps the
// remaining words in order. There is no stemming and no stop-word removal.
package tokenizer

import (
	"strings"
	"unicode"
)

// urlSeparators are the characters URL paths use between words.
var urlSeparators = strings.NewReplacer("/", " ", "-", " ", "_", " ")

// Tokenize breaks text into lower-case alphanumeric tokens. Duplicates and
// order are preserved. Empty input yields an empty, non-nil slice.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	normalized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case unicode.IsSpace(r):
			return r
		default:
			return ' '
		}
	}, text)
	tokens := strings.Fields(normalized)
	if tokens == nil {
		return []string{}
	}
	return tokens
}

// URLTokens tokenizes a URL so that path segments split into words:
// "/blog/seo-tips" becomes ["blog", "seo", "tips"].
func URLTokens(url string) []string {
	return Tokenize(urlSeparators.Replace(url))
}

// NormalizeURL lower-cases a URL and turns its path separators into spaces
// without dropping any other characters.
func NormalizeURL(url string) string {
	return strings.ToLower(urlSeparators.Replace(url))
}

// Phrase joins tokens with single spaces.
func Phrase(tokens []string) string {
	return strings.Join(tokens, " ")
}

// Set returns the distinct tokens for membership tests.
func Set(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
