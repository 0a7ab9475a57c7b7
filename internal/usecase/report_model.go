package usecase

import (
	"github.com/pricelens/backend/internal/domain"
)

// BuildReport assembles the vendor report for a snapshot. Delta is total minus priorTotal;
// its sign is left for presentation to interpret.
func BuildReport(snapshot domain.VendorSnapshot, priorTotal int64) domain.Report {
	total := snapshot.SumComponents()

	components := make([]domain.ComponentPrice, len(snapshot.Components))
	copy(components, snapshot.Components)

	unresolved := make([]domain.UnresolvedComponent, 0)
	for _, o := range snapshot.Outcomes {
		if o.Matched() {
			continue
		}
		unresolved = append(unresolved, domain.UnresolvedComponent{
			Name:        o.Target.Name,
			Keyword:     o.Target.Keyword,
			Status:      o.Status,
			MatchedText: o.MatchedText,
		})
	}

	return domain.Report{
		Date:       domain.FormatDate(snapshot.Date),
		Vendor:     snapshot.Vendor,
		Total:      total,
		Delta:      total - priorTotal,
		PriorTotal: priorTotal,
		Components: components,
		Unresolved: unresolved,
	}
}

// BuildComparison lines up reports by component name. Components appear in the order
// first seen across reports; a vendor missing a component shows 0.
func BuildComparison(date string, reports []domain.Report) domain.Comparison {
	comparison := domain.Comparison{
		Date:    date,
		Vendors: make([]string, 0, len(reports)),
		Rows:    make([]domain.ComparisonRow, 0),
		Totals:  make([]int64, 0, len(reports)),
		Deltas:  make([]int64, 0, len(reports)),
	}

	rowIndex := make(map[string]int)
	for _, r := range reports {
		for _, c := range r.Components {
			if _, ok := rowIndex[c.Name]; !ok {
				rowIndex[c.Name] = len(comparison.Rows)
				comparison.Rows = append(comparison.Rows, domain.ComparisonRow{
					Component: c.Name,
					Prices:    make([]int64, len(reports)),
				})
			}
		}
	}

	for i, r := range reports {
		comparison.Vendors = append(comparison.Vendors, r.Vendor)
		comparison.Totals = append(comparison.Totals, r.Total)
		comparison.Deltas = append(comparison.Deltas, r.Delta)
		for _, c := range r.Components {
			comparison.Rows[rowIndex[c.Name]].Prices[i] = c.Price
		}
	}
	return comparison
}
