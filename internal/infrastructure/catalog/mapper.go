package catalog

import (
	"strings"

	"golang.org/x/text/width"

	"github.com/pricelens/backend/internal/domain"
)

// ToEntries converts raw listing texts into catalog entries. Widths are folded and
// whitespace collapsed; blank texts are dropped and ordinals follow the kept order.
func ToEntries(texts []string) []domain.CatalogEntry {
	entries := make([]domain.CatalogEntry, 0, len(texts))
	for _, text := range texts {
		normalized := normalizeText(text)
		if normalized == "" {
			continue
		}
		entries = append(entries, domain.CatalogEntry{Text: normalized, Ordinal: len(entries)})
	}
	return entries
}

// RenderListing formats a name and a scraped price label as listing text ("<name> $<price>").
// The price label is cut to its numeric part; a label without digits is kept as is,
// leaving the price unreadable downstream.
func RenderListing(name, priceLabel string) string {
	name = normalizeText(name)
	priceLabel = normalizeText(priceLabel)

	start := strings.IndexAny(priceLabel, "0123456789")
	if start < 0 {
		return strings.TrimSpace(name + " " + priceLabel)
	}
	end := start
	for end < len(priceLabel) && (isDigit(priceLabel[end]) || priceLabel[end] == ',') {
		end++
	}
	return name + " $" + strings.TrimRight(priceLabel[start:end], ",")
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(width.Fold.String(s)), " ")
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
