package usecase

import (
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
	"go.uber.org/zap"

	"github.com/pricelens/backend/internal/domain"
)

const (
	defaultSimilarityThreshold = 0.85
	defaultWindowSlack         = 2
)

// MatchConfig holds configuration for the catalog matcher
type MatchConfig struct {
	// SimilarityThreshold is the minimum (exclusive) normalized edit-distance
	// similarity the fallback search accepts, in (0, 1)
	SimilarityThreshold float64
	CurrencyMarker      rune
	// WindowSlack widens fallback comparison windows by this many words either side
	// of the keyword length
	WindowSlack int
}

// MatchResult is the listing chosen for one target
type MatchResult struct {
	Entry      domain.CatalogEntry
	Candidates int
	Fallback   bool
	Similarity float64
}

// CatalogMatcher resolves a target descriptor to at most one catalog listing
type CatalogMatcher struct {
	similarityThreshold float64
	windowSlack         int
	extractor           PriceExtractor
}

// NewCatalogMatcher creates a matcher with the given configuration
func NewCatalogMatcher(config MatchConfig) *CatalogMatcher {
	threshold := config.SimilarityThreshold
	if threshold <= 0 || threshold >= 1 {
		threshold = defaultSimilarityThreshold
	}

	slack := config.WindowSlack
	if slack <= 0 {
		slack = defaultWindowSlack
	}

	return &CatalogMatcher{
		similarityThreshold: threshold,
		windowSlack:         slack,
		extractor:           NewPriceExtractor(config.CurrencyMarker),
	}
}

// Extractor returns the price extractor used for highest_price tie-breaks
func (m *CatalogMatcher) Extractor() PriceExtractor {
	return m.extractor
}

// preparedEntry caches the normalized forms of a catalog entry
type preparedEntry struct {
	entry      domain.CatalogEntry
	normalized string
	length     int
}

// PreparedCatalog is a catalog normalized once for matching many targets
type PreparedCatalog struct {
	entries []preparedEntry
}

// Prepare normalizes a catalog. The input slice is not retained or modified.
func (m *CatalogMatcher) Prepare(catalog []domain.CatalogEntry) PreparedCatalog {
	prepared := PreparedCatalog{entries: make([]preparedEntry, len(catalog))}
	for i, e := range catalog {
		prepared.entries[i] = preparedEntry{
			entry:      e,
			normalized: normalizeForMatch(e.Text),
			length:     utf8.RuneCountInString(NormalizeListing(e.Text)),
		}
	}
	return prepared
}

// Match selects zero or one listing for the target
func (m *CatalogMatcher) Match(target domain.TargetDescriptor, catalog []domain.CatalogEntry) (MatchResult, bool) {
	return m.MatchPrepared(target, m.Prepare(catalog))
}

// MatchPrepared is Match over an already prepared catalog
func (m *CatalogMatcher) MatchPrepared(target domain.TargetDescriptor, catalog PreparedCatalog) (MatchResult, bool) {
	tokens := keywordTokens(target.Keyword)
	if len(tokens) == 0 {
		return MatchResult{}, false
	}

	var candidates []preparedEntry
	for _, pe := range catalog.entries {
		if containsAll(pe.normalized, tokens) {
			candidates = append(candidates, pe)
		}
	}

	if len(candidates) == 0 {
		return m.similaritySearch(target, catalog)
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if m.better(target.TieBreak.OrDefault(), c, best) {
			best = c
		}
	}

	if len(candidates) > 1 {
		zap.L().Debug("match: ambiguous keyword resolved by policy",
			zap.String("target", target.Name),
			zap.String("policy", string(target.TieBreak.OrDefault())),
			zap.Int("candidates", len(candidates)),
			zap.String("chosen", best.entry.Text),
		)
	}

	return MatchResult{Entry: best.entry, Candidates: len(candidates)}, true
}

// better reports whether a should be preferred over b under the policy.
// Ties fall through to the lower ordinal.
func (m *CatalogMatcher) better(policy domain.TieBreakPolicy, a, b preparedEntry) bool {
	switch policy {
	case domain.TieBreakHighestPrice:
		pa, okA := m.extractor.Extract(a.entry.Text)
		pb, okB := m.extractor.Extract(b.entry.Text)
		if okA != okB {
			return okA
		}
		if pa != pb {
			return pa > pb
		}
	default:
		if a.length != b.length {
			return a.length < b.length
		}
	}
	return a.entry.Ordinal < b.entry.Ordinal
}

// similaritySearch ranks every entry by edit-distance similarity to the keyword phrase.
// An entry is eligible only if every keyword word carrying a digit appears in its
// description as a whole word, so separator drift is tolerated but 265K never stands
// in for 265KF.
func (m *CatalogMatcher) similaritySearch(target domain.TargetDescriptor, catalog PreparedCatalog) (MatchResult, bool) {
	kwWords := splitWords(normalizeForMatch(target.Keyword))
	if len(kwWords) == 0 {
		return MatchResult{}, false
	}
	phrase := strings.Join(kwWords, " ")
	kwModels := modelWords(kwWords)

	var (
		best      preparedEntry
		bestScore = -1.0
	)
	for _, pe := range catalog.entries {
		desc := descriptionPart(pe.normalized, m.extractor.Marker)
		descWords := splitWords(desc)
		if !containsAllWords(descWords, kwModels) {
			continue
		}

		score := windowSimilarity(phrase, len(kwWords), descWords, m.windowSlack)
		if score > bestScore || (score == bestScore && pe.entry.Ordinal < best.entry.Ordinal) {
			best = pe
			bestScore = score
		}
	}

	if bestScore <= m.similarityThreshold {
		zap.L().Debug("match: no candidate",
			zap.String("target", target.Name),
			zap.Float64("best_similarity", bestScore),
		)
		return MatchResult{}, false
	}

	zap.L().Debug("match: similarity fallback accepted",
		zap.String("target", target.Name),
		zap.String("chosen", best.entry.Text),
		zap.Float64("similarity", bestScore),
	)
	return MatchResult{Entry: best.entry, Candidates: 1, Fallback: true, Similarity: bestScore}, true
}

// windowSimilarity returns the best similarity between phrase and any run of
// consecutive words whose count is within slack of the phrase's word count
func windowSimilarity(phrase string, phraseWords int, words []string, slack int) float64 {
	best := 0.0
	minLen := max(1, phraseWords-slack)
	maxLen := min(len(words), phraseWords+slack)
	for n := minLen; n <= maxLen; n++ {
		for start := 0; start+n <= len(words); start++ {
			window := strings.Join(words[start:start+n], " ")
			if s := similarity(phrase, window); s > best {
				best = s
			}
		}
	}
	return best
}

// similarity is 1 - levenshtein/maxlen over runes, in [0, 1]
func similarity(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(matchr.Levenshtein(a, b))/float64(longest)
}
