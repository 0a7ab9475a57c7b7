package domain

// UnresolvedComponent flags a target whose price in a report is not real
type UnresolvedComponent struct {
	Name        string      `json:"name"`
	Keyword     string      `json:"keyword"`
	Status      MatchStatus `json:"status"`
	MatchedText string      `json:"matchedText,omitempty"`
}

// Report is the finished per-vendor result handed to notification and plotting collaborators
type Report struct {
	Date       string                `json:"date"`
	Vendor     string                `json:"vendor"`
	Total      int64                 `json:"total"`
	Delta      int64                 `json:"delta"`
	PriorTotal int64                 `json:"priorTotal"`
	Components []ComponentPrice      `json:"components"`
	Unresolved []UnresolvedComponent `json:"unresolved"`
}

// ComparisonRow holds one component's price at each vendor, in Comparison.Vendors order
type ComparisonRow struct {
	Component string  `json:"component"`
	Prices    []int64 `json:"prices"`
}

// Comparison lines up several vendors' reports for the same date
type Comparison struct {
	Date    string          `json:"date"`
	Vendors []string        `json:"vendors"`
	Rows    []ComparisonRow `json:"rows"`
	Totals  []int64         `json:"totals"`
	Deltas  []int64         `json:"deltas"`
}

// VendorFailure records a vendor skipped during a run
type VendorFailure struct {
	Vendor string `json:"vendor"`
	Error  string `json:"error"`
}

// RunResult is the outcome of one tracking run across all vendors
type RunResult struct {
	Date       string          `json:"date"`
	Reports    []Report        `json:"reports"`
	Comparison Comparison      `json:"comparison"`
	Failed     []VendorFailure `json:"failed,omitempty"`
}
