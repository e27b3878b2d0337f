package usecase

import (
	"regexp"
	"strings"
	"unicode"
)

// maxEmbeddingRunes bounds the text sent to the embedding model
const maxEmbeddingRunes = 4000

// Compiled regex patterns for text preprocessing
var (
	multiSpacePattern = regexp.MustCompile(`[ \t\p{Zs}]+`)
	multiBreakPattern = regexp.MustCompile(`\n{3,}`)
	slugPattern       = regexp.MustCompile(`[^a-z0-9]+`)
)

// NormalizePreferenceText cleans free-text preferences before embedding.
// Control characters are dropped, runs of spaces collapse, and the result
// is trimmed and capped at maxEmbeddingRunes.
func NormalizePreferenceText(text string) string {
	text = strings.Map(func(r rune) rune {
		if r == '\n' {
			return r
		}
		if r == '\r' || r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)

	text = multiSpacePattern.ReplaceAllString(text, " ")
	text = multiBreakPattern.ReplaceAllString(text, "\n\n")
	return truncateRunes(strings.TrimSpace(text), maxEmbeddingRunes)
}

// truncateRunes cuts s to at most n runes without splitting a character
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// Slugify lowercases s and joins ASCII alphanumeric runs with hyphens
func Slugify(s string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(slug, "-")
}

// ParseTags splits a comma separated tag string, dropping blanks
func ParseTags(s string) []string {
	tags := []string{}
	for _, tag := range strings.Split(s, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// CleanTags trims tags and drops blanks
func CleanTags(tags []string) []string {
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			cleaned = append(cleaned, tag)
		}
	}
	return cleaned
}
