package usecase

import (
	"strconv"
	"strings"
)

// DefaultCurrencyMarker precedes the price in vendor listings
const DefaultCurrencyMarker = '$'

// PriceExtractor reads a whole-unit price out of raw listing text
type PriceExtractor struct {
	Marker rune
}

// NewPriceExtractor returns an extractor for the given marker, defaulting to '$'
func NewPriceExtractor(marker rune) PriceExtractor {
	if marker == 0 {
		marker = DefaultCurrencyMarker
	}
	return PriceExtractor{Marker: marker}
}

// ExtractPrice extracts a price using the default '$' marker
func ExtractPrice(text string) (int64, bool) {
	return NewPriceExtractor(DefaultCurrencyMarker).Extract(text)
}

// Extract returns the price following the last currency marker in text.
// Descriptions may contain numbers of their own, so only the last marker counts.
// ok is false when there is no marker, no digits after it, or the number overflows.
func (e PriceExtractor) Extract(text string) (price int64, ok bool) {
	marker := e.Marker
	if marker == 0 {
		marker = DefaultCurrencyMarker
	}

	text = foldWidth(text)
	idx := strings.LastIndex(text, string(marker))
	if idx < 0 {
		return 0, false
	}
	rest := strings.TrimSpace(text[idx+len(string(marker)):])

	digits := firstDigitRun(rest)
	if digits == "" {
		return 0, false
	}

	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// firstDigitRun returns the first maximal run of ASCII digits in s, skipping whatever
// precedes it: signs and labels are never part of a price, so "$-5" and "$ abc 5" read 5.
// Thousands groups (",ddd") directly continuing the run are included without the comma.
func firstDigitRun(s string) string {
	start := strings.IndexFunc(s, isDigit)
	if start < 0 {
		return ""
	}

	var b strings.Builder
	i := start
	for i < len(s) {
		if isDigit(rune(s[i])) {
			b.WriteByte(s[i])
			i++
			continue
		}
		if s[i] == ',' && isThousandsGroup(s[i+1:]) {
			i++
			continue
		}
		break
	}
	return b.String()
}

// isThousandsGroup reports whether s starts with exactly three digits
func isThousandsGroup(s string) bool {
	if len(s) < 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if !isDigit(rune(s[i])) {
			return false
		}
	}
	return len(s) == 3 || !isDigit(rune(s[3]))
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
