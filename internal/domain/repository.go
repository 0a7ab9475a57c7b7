package domain

import "context"

// HistoryBackend is the durable append-only log behind the history store.
// ReadRows returns every row in write order.
type HistoryBackend interface {
	AppendRows(ctx context.Context, rows []HistoryRow) error
	ReadRows(ctx context.Context) ([]HistoryRow, error)
}

// CatalogSource fetches one vendor's raw listings. Sources that search per keyword use targets;
// list-style sources may ignore them.
type CatalogSource interface {
	Vendor() string
	Fetch(ctx context.Context, targets []TargetDescriptor) ([]CatalogEntry, error)
}
