package cli

import (
	"encoding/json"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pricelens/backend/internal/domain"
)

var printer = message.NewPrinter(language.English)

// formatPrice renders a price with thousands separators
func formatPrice(p int64) string {
	return printer.Sprintf("%d", p)
}

// formatDelta renders a signed change, "+0" when unchanged
func formatDelta(d int64) string {
	if d >= 0 {
		return "+" + formatPrice(d)
	}
	return formatPrice(d)
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// renderRun prints the per-vendor comparison, then unresolved components and skipped vendors
func renderRun(w io.Writer, result *domain.RunResult) {
	cmp := result.Comparison

	t := newTable(w)
	t.SetTitle("Build price " + result.Date)

	header := table.Row{"Component"}
	for _, vendor := range cmp.Vendors {
		header = append(header, vendor)
	}
	t.AppendHeader(header)

	for _, row := range cmp.Rows {
		r := table.Row{row.Component}
		for _, price := range row.Prices {
			r = append(r, formatPrice(price))
		}
		t.AppendRow(r)
	}

	totals := table.Row{"Total"}
	deltas := table.Row{"Change"}
	for i := range cmp.Vendors {
		totals = append(totals, formatPrice(cmp.Totals[i]))
		deltas = append(deltas, formatDelta(cmp.Deltas[i]))
	}
	t.AppendFooter(totals)
	t.AppendFooter(deltas)

	columns := make([]table.ColumnConfig, 0, len(cmp.Vendors))
	for i := range cmp.Vendors {
		columns = append(columns, table.ColumnConfig{Number: i + 2, Align: text.AlignRight, AlignFooter: text.AlignRight})
	}
	t.SetColumnConfigs(columns)
	t.Render()

	var unresolved []table.Row
	for _, report := range result.Reports {
		for _, u := range report.Unresolved {
			unresolved = append(unresolved, table.Row{report.Vendor, u.Name, u.Keyword, string(u.Status), u.MatchedText})
		}
	}
	if len(unresolved) > 0 {
		u := newTable(w)
		u.SetTitle("Unresolved (priced at 0)")
		u.AppendHeader(table.Row{"Vendor", "Component", "Keyword", "Status", "Matched"})
		u.AppendRows(unresolved)
		u.Render()
	}

	if len(result.Failed) > 0 {
		f := newTable(w)
		f.SetTitle("Skipped vendors")
		f.AppendHeader(table.Row{"Vendor", "Error"})
		for _, failure := range result.Failed {
			f.AppendRow(table.Row{failure.Vendor, failure.Error})
		}
		f.Render()
	}
}

func renderSeries(w io.Writer, points []domain.SeriesPoint) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Date", "Vendor", "Total"})
	for _, p := range points {
		t.AppendRow(table.Row{p.Date, p.Vendor, formatPrice(p.Total)})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 3, Align: text.AlignRight}})
	t.Render()
}

func renderComponents(w io.Writer, points []domain.ComponentPoint) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Date", "Vendor", "Component", "Price", "Note"})
	for _, p := range points {
		note := ""
		switch {
		case p.Carried:
			note = "carried"
		case !p.Resolved:
			note = "unresolved"
		}
		t.AppendRow(table.Row{p.Date, p.Vendor, p.Component, formatPrice(p.Price), note})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 4, Align: text.AlignRight}})
	t.Render()
}
