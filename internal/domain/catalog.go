package domain

// TieBreakPolicy selects one listing when several catalog entries match a target
type TieBreakPolicy string

const (
	// TieBreakShortestText picks the listing with the fewest characters
	TieBreakShortestText TieBreakPolicy = "shortest_text"
	// TieBreakHighestPrice picks the listing with the greatest extracted price
	TieBreakHighestPrice TieBreakPolicy = "highest_price"
)

// Valid reports whether p is a known policy. The empty policy is valid and means shortest_text.
func (p TieBreakPolicy) Valid() bool {
	switch p {
	case "", TieBreakShortestText, TieBreakHighestPrice:
		return true
	}
	return false
}

// OrDefault returns the policy, substituting shortest_text when unset
func (p TieBreakPolicy) OrDefault() TieBreakPolicy {
	if p == "" {
		return TieBreakShortestText
	}
	return p
}

// TargetDescriptor is a named component to price, identified in vendor text by Keyword
type TargetDescriptor struct {
	Name     string         `json:"name" mapstructure:"name"`
	Keyword  string         `json:"keyword" mapstructure:"keyword"`
	TieBreak TieBreakPolicy `json:"tieBreak,omitempty" mapstructure:"tie_break"`
}

// CatalogEntry is one raw listing string from a vendor's product list
type CatalogEntry struct {
	Text    string `json:"text"`
	Ordinal int    `json:"ordinal"` // position in the fetched sequence
}

// MatchStatus describes how a target resolved against a catalog
type MatchStatus string

const (
	StatusMatched          MatchStatus = "matched"
	StatusNoCandidate      MatchStatus = "no_candidate"
	StatusExtractionFailed MatchStatus = "extraction_failed"
)

// MatchOutcome is the resolution of one target against one vendor catalog
type MatchOutcome struct {
	Target      TargetDescriptor `json:"target"`
	MatchedText string           `json:"matchedText,omitempty"`
	Price       int64            `json:"price"`
	PriceOK     bool             `json:"priceOk"`
	Status      MatchStatus      `json:"status"`

	// Diagnostics
	Candidates int     `json:"candidates"`
	Fallback   bool    `json:"fallback,omitempty"`
	Similarity float64 `json:"similarity,omitempty"`
}

// Matched reports whether the outcome carries a real price
func (o MatchOutcome) Matched() bool {
	return o.Status == StatusMatched
}
