package usecase

import (
	"context"
	"io"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/pricelens/backend/internal/domain"
)

// HistoryStoreConfig holds configuration for the history store
type HistoryStoreConfig struct {
	CarryForward domain.CarryForward
}

// HistoryStore is the append-only price log. Re-runs within a day are all kept;
// keep-last deduplication is applied when reading.
type HistoryStore struct {
	backend domain.HistoryBackend
	carry   domain.CarryForward

	// mu serializes appends so concurrent runs never interleave partial writes
	mu      sync.Mutex
	entropy io.Reader
}

// NewHistoryStore creates a history store over the given backend
func NewHistoryStore(backend domain.HistoryBackend, config HistoryStoreConfig) *HistoryStore {
	carry := config.CarryForward
	if carry == "" {
		carry = domain.CarryOff
	}

	return &HistoryStore{
		backend: backend,
		carry:   carry,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

// Append writes the snapshot as one batch of component rows
func (h *HistoryStore) Append(ctx context.Context, snapshot domain.VendorSnapshot) error {
	if snapshot.Vendor == "" || len(snapshot.Components) == 0 {
		return domain.ErrInvalidSnapshot
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	batch := ulid.MustNew(ulid.Timestamp(time.Now()), h.entropy).String()
	date := domain.FormatDate(snapshot.Date)

	rows := make([]domain.HistoryRow, 0, len(snapshot.Components))
	for _, c := range snapshot.Components {
		rows = append(rows, domain.HistoryRow{
			Batch:     batch,
			Date:      date,
			Vendor:    snapshot.Vendor,
			Component: c.Name,
			Price:     c.Price,
			Resolved:  snapshot.Resolved(c.Name),
		})
	}

	if err := h.backend.AppendRows(ctx, rows); err != nil {
		return &domain.StoreError{Op: "append", Err: err}
	}

	zap.L().Info("history: appended snapshot",
		zap.String("vendor", snapshot.Vendor),
		zap.String("date", date),
		zap.String("batch", batch),
		zap.Int("components", len(rows)),
		zap.Int64("total", snapshot.Total),
	)
	return nil
}

// LatestTotal returns the deduplicated total of the most recent date on or before beforeOrOn,
// or 0 if the vendor has no history in that range
func (h *HistoryStore) LatestTotal(ctx context.Context, vendor string, beforeOrOn time.Time) (int64, error) {
	rows, err := h.readValid(ctx, "latest total")
	if err != nil {
		return 0, err
	}

	limit := domain.FormatDate(beforeOrOn)
	var latest *domain.SeriesPoint
	for _, p := range totalsByDate(rows) {
		if p.Vendor != vendor || p.Date > limit {
			continue
		}
		if latest == nil || p.Date > latest.Date {
			latest = &p
		}
	}

	if latest == nil {
		return 0, nil
	}
	return latest.Total, nil
}

// Series returns the deduplicated total time series sorted by date, then vendor.
// An empty vendor selects every vendor.
func (h *HistoryStore) Series(ctx context.Context, vendor string) ([]domain.SeriesPoint, error) {
	rows, err := h.readValid(ctx, "series")
	if err != nil {
		return nil, err
	}

	points := make([]domain.SeriesPoint, 0)
	for _, p := range totalsByDate(rows) {
		if vendor == "" || p.Vendor == vendor {
			points = append(points, p)
		}
	}

	sort.Slice(points, func(i, j int) bool {
		if points[i].Date != points[j].Date {
			return points[i].Date < points[j].Date
		}
		return points[i].Vendor < points[j].Vendor
	})
	return points, nil
}

// ComponentSeries returns per-component prices, keeping the last written row for each
// (date, vendor, component), sorted by date, vendor, then first-seen component order
func (h *HistoryStore) ComponentSeries(ctx context.Context, vendor string) ([]domain.ComponentPoint, error) {
	rows, err := h.readValid(ctx, "component series")
	if err != nil {
		return nil, err
	}

	type key struct{ date, vendor, component string }
	last := make(map[key]domain.HistoryRow)
	componentOrder := make(map[string]int)
	for _, r := range rows {
		if vendor != "" && r.Vendor != vendor {
			continue
		}
		last[key{r.Date, r.Vendor, r.Component}] = r
		if _, ok := componentOrder[r.Component]; !ok {
			componentOrder[r.Component] = len(componentOrder)
		}
	}

	points := make([]domain.ComponentPoint, 0, len(last))
	for _, r := range last {
		points = append(points, domain.ComponentPoint{
			Date:      r.Date,
			Vendor:    r.Vendor,
			Component: r.Component,
			Price:     r.Price,
			Resolved:  r.Resolved,
		})
	}

	sort.Slice(points, func(i, j int) bool {
		a, b := points[i], points[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Vendor != b.Vendor {
			return a.Vendor < b.Vendor
		}
		return componentOrder[a.Component] < componentOrder[b.Component]
	})

	h.carryForward(points)
	return points, nil
}

// carryForward fills unresolved points from the component's last resolved price.
// points must be sorted by date.
func (h *HistoryStore) carryForward(points []domain.ComponentPoint) {
	if h.carry == domain.CarryOff {
		return
	}

	type vendorDate struct{ vendor, date string }
	allUnresolved := make(map[vendorDate]bool)
	if h.carry == domain.CarryRecord {
		for _, p := range points {
			k := vendorDate{p.Vendor, p.Date}
			if _, seen := allUnresolved[k]; !seen {
				allUnresolved[k] = true
			}
			if p.Resolved {
				allUnresolved[k] = false
			}
		}
	}

	type vendorComponent struct{ vendor, component string }
	lastResolved := make(map[vendorComponent]int64)
	for i := range points {
		p := &points[i]
		k := vendorComponent{p.Vendor, p.Component}
		if p.Resolved {
			lastResolved[k] = p.Price
			continue
		}
		if h.carry == domain.CarryRecord && !allUnresolved[vendorDate{p.Vendor, p.Date}] {
			continue
		}
		if price, ok := lastResolved[k]; ok {
			p.Price = price
			p.Carried = true
		}
	}
}

// readValid reads every row, dropping malformed ones with a warning
func (h *HistoryStore) readValid(ctx context.Context, op string) ([]domain.HistoryRow, error) {
	rows, err := h.backend.ReadRows(ctx)
	if err != nil {
		return nil, &domain.StoreError{Op: op, Err: err}
	}

	valid := rows[:0:0]
	for i, r := range rows {
		if reason := malformed(r); reason != "" {
			zap.L().Warn("history: skipping malformed row",
				zap.Int("index", i),
				zap.Int64("seq", r.Seq),
				zap.String("reason", reason),
			)
			continue
		}
		valid = append(valid, r)
	}
	return valid, nil
}

func malformed(r domain.HistoryRow) string {
	if _, err := domain.ParseDate(r.Date); err != nil {
		return "bad date"
	}
	if r.Vendor == "" {
		return "empty vendor"
	}
	if r.Component == "" {
		return "empty component"
	}
	if r.Price < 0 {
		return "negative price"
	}
	return ""
}

// totalsByDate applies keep-last deduplication per (date, vendor): only the batch
// written last for that key contributes to its total. Rows must be in write order.
func totalsByDate(rows []domain.HistoryRow) []domain.SeriesPoint {
	type key struct{ date, vendor string }
	lastBatch := make(map[key]string)
	for _, r := range rows {
		lastBatch[key{r.Date, r.Vendor}] = r.Batch
	}

	totals := make(map[key]int64, len(lastBatch))
	order := make([]key, 0, len(lastBatch))
	for _, r := range rows {
		k := key{r.Date, r.Vendor}
		if lastBatch[k] != r.Batch {
			continue
		}
		if _, ok := totals[k]; !ok {
			order = append(order, k)
		}
		totals[k] += r.Price
	}

	points := make([]domain.SeriesPoint, 0, len(order))
	for _, k := range order {
		points = append(points, domain.SeriesPoint{Date: k.date, Vendor: k.vendor, Total: totals[k]})
	}
	return points
}
