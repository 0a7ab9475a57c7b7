package history

import (
	"context"
	"database/sql"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/pricelens/backend/internal/domain"
)

// SQLiteBackend persists history rows using modernc.org/sqlite.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path, configures WAL mode and
// creates the history table.
func NewSQLite(ctx context.Context, dsn string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrapf(domain.ErrStoreUnavailable, "sqlite: open %s: %v", dsn, err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(domain.ErrStoreUnavailable, "sqlite: exec %s: %v", pragma, err)
		}
	}

	backend := &SQLiteBackend{db: db}
	if err := backend.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return backend, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS history_rows (
	seq       INTEGER PRIMARY KEY AUTOINCREMENT,
	batch     TEXT NOT NULL,
	date      TEXT NOT NULL,
	vendor    TEXT NOT NULL,
	component TEXT NOT NULL,
	price     INTEGER NOT NULL,
	resolved  INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_history_rows_vendor_date ON history_rows(vendor, date);
`

// Migrate creates the schema if it does not exist
func (s *SQLiteBackend) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}

// AppendRows inserts rows in a single transaction so a batch is never partially visible
func (s *SQLiteBackend) AppendRows(ctx context.Context, rows []domain.HistoryRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin append")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO history_rows (batch, date, vendor, component, price, resolved) VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare append")
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.Batch, r.Date, r.Vendor, r.Component, r.Price, r.Resolved); err != nil {
			return eris.Wrapf(err, "sqlite: insert %s/%s", r.Vendor, r.Component)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit append")
}

// ReadRows returns every row ordered by write sequence. Columns are scanned loosely so a
// row holding values of the wrong type is skipped with a warning instead of failing the read.
func (s *SQLiteBackend) ReadRows(ctx context.Context) ([]domain.HistoryRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, batch, date, vendor, component, price, resolved FROM history_rows ORDER BY seq`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query history")
	}
	defer rows.Close()

	var out []domain.HistoryRow
	for rows.Next() {
		var (
			seq                      int64
			batch, vendor, component sql.NullString
			date, price, resolved    any
		)
		if err := rows.Scan(&seq, &batch, &date, &vendor, &component, &price, &resolved); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan history row")
		}

		r, reason := decodeRow(seq, batch, date, vendor, component, price, resolved)
		if reason != "" {
			zap.L().Warn("sqlite: skipping undecodable history row",
				zap.Int64("seq", seq),
				zap.String("reason", reason),
			)
			continue
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate history")
}

func decodeRow(seq int64, batch sql.NullString, date any, vendor, component sql.NullString, price, resolved any) (domain.HistoryRow, string) {
	d, ok := asString(date)
	if !ok {
		return domain.HistoryRow{}, "date is not text"
	}
	p, ok := asInt64(price)
	if !ok {
		return domain.HistoryRow{}, "price is not an integer"
	}
	res, ok := asInt64(resolved)
	if !ok {
		return domain.HistoryRow{}, "resolved is not an integer"
	}

	return domain.HistoryRow{
		Batch:     batch.String,
		Seq:       seq,
		Date:      d,
		Vendor:    vendor.String,
		Component: component.String,
		Price:     p,
		Resolved:  res != 0,
	}, ""
}

func asString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	case time.Time:
		return domain.FormatDate(x), true
	}
	return "", false
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return int64(x), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		return n, err == nil
	case []byte:
		n, err := strconv.ParseInt(strings.TrimSpace(string(x)), 10, 64)
		return n, err == nil
	}
	return 0, false
}
