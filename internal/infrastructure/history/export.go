package history

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"

	"github.com/pricelens/backend/internal/domain"
)

// SeriesExport is the JSON document consumed by the trend dashboard
type SeriesExport struct {
	GeneratedAt string                  `json:"generatedAt"`
	Vendors     []string                `json:"vendors"`
	Series      []domain.SeriesPoint    `json:"series"`
	Components  []domain.ComponentPoint `json:"components,omitempty"`
}

// NewSeriesExport builds an export document; vendors are listed in first-seen order
func NewSeriesExport(now time.Time, series []domain.SeriesPoint, components []domain.ComponentPoint) SeriesExport {
	seen := make(map[string]bool)
	vendors := make([]string, 0)
	for _, p := range series {
		if !seen[p.Vendor] {
			seen[p.Vendor] = true
			vendors = append(vendors, p.Vendor)
		}
	}
	if series == nil {
		series = []domain.SeriesPoint{}
	}

	return SeriesExport{
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Vendors:     vendors,
		Series:      series,
		Components:  components,
	}
}

// ExportSeriesJSON writes the export as indented JSON
func ExportSeriesJSON(w io.Writer, export SeriesExport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return eris.Wrap(enc.Encode(export), "export: encode series")
}

// WriteSeriesFile writes the export to path via a temporary file and rename,
// so readers never see a partially written document
func WriteSeriesFile(path string, export SeriesExport) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "export: create %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".series-*.json")
	if err != nil {
		return eris.Wrap(err, "export: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if err := ExportSeriesJSON(tmp, export); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "export: close temp file")
	}
	return eris.Wrapf(os.Rename(tmp.Name(), path), "export: rename to %s", path)
}
