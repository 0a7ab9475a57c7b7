package domain

import "time"

// DateLayout is the calendar date format used for every persisted and exchanged date
const DateLayout = "2006-01-02"

// FormatDate renders t as a calendar date
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a calendar date in DateLayout
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// ComponentPrice is one entry of a snapshot's ordered name→price mapping
type ComponentPrice struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// VendorSnapshot is one vendor's complete set of resolved component prices for one date
type VendorSnapshot struct {
	Date       time.Time        `json:"date"`
	Vendor     string           `json:"vendor"`
	Components []ComponentPrice `json:"components"`
	Total      int64            `json:"total"`

	// Outcomes holds the match results the snapshot was built from. Not persisted.
	Outcomes []MatchOutcome `json:"-"`
}

// NewSnapshot builds a snapshot from resolver outcomes, keeping target order.
// Unresolved outcomes contribute a price of 0.
func NewSnapshot(date time.Time, vendor string, outcomes []MatchOutcome) VendorSnapshot {
	s := VendorSnapshot{
		Date:       date,
		Vendor:     vendor,
		Components: make([]ComponentPrice, 0, len(outcomes)),
		Outcomes:   outcomes,
	}
	for _, o := range outcomes {
		price := int64(0)
		if o.Matched() {
			price = o.Price
		}
		s.Components = append(s.Components, ComponentPrice{Name: o.Target.Name, Price: price})
	}
	s.Total = s.SumComponents()
	return s
}

// SumComponents recomputes the total from the component prices
func (s VendorSnapshot) SumComponents() int64 {
	var total int64
	for _, c := range s.Components {
		total += c.Price
	}
	return total
}

// Resolved reports whether the named component came from a matched outcome.
// Snapshots built without outcomes treat every component as resolved.
func (s VendorSnapshot) Resolved(component string) bool {
	if len(s.Outcomes) == 0 {
		return true
	}
	for _, o := range s.Outcomes {
		if o.Target.Name == component {
			return o.Matched()
		}
	}
	return true
}

// HistoryRow is the persisted form of one component of a snapshot.
// All rows written by a single append share the same Batch.
type HistoryRow struct {
	Batch     string `json:"batch"`
	Seq       int64  `json:"seq"` // write order assigned by the backend
	Date      string `json:"date"`
	Vendor    string `json:"vendor"`
	Component string `json:"component"`
	Price     int64  `json:"price"`
	Resolved  bool   `json:"resolved"`
}

// SeriesPoint is one deduplicated vendor total
type SeriesPoint struct {
	Date   string `json:"date"`
	Vendor string `json:"vendor"`
	Total  int64  `json:"total"`
}

// ComponentPoint is one deduplicated component price
type ComponentPoint struct {
	Date      string `json:"date"`
	Vendor    string `json:"vendor"`
	Component string `json:"component"`
	Price     int64  `json:"price"`
	Resolved  bool   `json:"resolved"`
	Carried   bool   `json:"carried,omitempty"`
}

// CarryForward controls how ComponentSeries fills unresolved components
type CarryForward string

const (
	CarryOff    CarryForward = "off"
	CarryRecord CarryForward = "record"
	CarryField  CarryForward = "field"
)

// Valid reports whether c is a known mode. The empty mode means off.
func (c CarryForward) Valid() bool {
	switch c {
	case "", CarryOff, CarryRecord, CarryField:
		return true
	}
	return false
}
