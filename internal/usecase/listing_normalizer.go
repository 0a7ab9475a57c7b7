package usecase

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

// Compiled patterns for listing normalization
var (
	// Word separators used when comparing phrases: whitespace plus the punctuation
	// vendors use between model fragments ("TUF-RTX5070Ti-O16G", "DDR5/6000")
	wordSeparatorPattern = regexp.MustCompile(`[\s\-_/|,()\[\]【】]+`)
)

// foldWidth maps full-width forms to their ASCII equivalents ("＄３６００" → "$3600")
func foldWidth(s string) string {
	return width.Fold.String(s)
}

// NormalizeListing folds character widths and collapses whitespace
func NormalizeListing(s string) string {
	return strings.Join(strings.Fields(foldWidth(s)), " ")
}

// normalizeForMatch is NormalizeListing plus lowercasing
func normalizeForMatch(s string) string {
	return strings.ToLower(NormalizeListing(s))
}

// keywordTokens splits a keyword expression into lowercase whitespace tokens
func keywordTokens(keyword string) []string {
	return strings.Fields(normalizeForMatch(keyword))
}

// splitWords splits normalized text on whitespace and model separators
func splitWords(s string) []string {
	var words []string
	for _, w := range wordSeparatorPattern.Split(s, -1) {
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

// descriptionPart returns the text before the last currency marker
func descriptionPart(s string, marker rune) string {
	if idx := strings.LastIndex(s, string(marker)); idx >= 0 {
		return s[:idx]
	}
	return s
}

// modelWords returns the words carrying a digit ("265kf", "rtx5070ti", "32g")
func modelWords(words []string) []string {
	var models []string
	for _, w := range words {
		if strings.ContainsAny(w, "0123456789") {
			models = append(models, w)
		}
	}
	return models
}

// containsAll reports whether every token is a substring of s
func containsAll(s string, tokens []string) bool {
	for _, t := range tokens {
		if !strings.Contains(s, t) {
			return false
		}
	}
	return true
}

// containsAllWords reports whether every wanted word appears as a whole word in have
func containsAllWords(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]bool, len(have))
	for _, w := range have {
		set[w] = true
	}
	for _, w := range want {
		if !set[w] {
			return false
		}
	}
	return true
}
