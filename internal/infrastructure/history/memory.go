package history

import (
	"context"
	"sync"

	"github.com/pricelens/backend/internal/domain"
)

// MemoryBackend is a thread-safe in-memory history log. Contents are lost on exit.
type MemoryBackend struct {
	rows  []domain.HistoryRow
	seq   int64
	mutex sync.RWMutex
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// AppendRows assigns sequence numbers and stores copies of rows
func (m *MemoryBackend) AppendRows(ctx context.Context, rows []domain.HistoryRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, r := range rows {
		m.seq++
		r.Seq = m.seq
		m.rows = append(m.rows, r)
	}
	return nil
}

// ReadRows returns a copy of every row in write order
func (m *MemoryBackend) ReadRows(ctx context.Context) ([]domain.HistoryRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	out := make([]domain.HistoryRow, len(m.rows))
	copy(out, m.rows)
	return out, nil
}

// Len returns the number of stored rows
func (m *MemoryBackend) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rows)
}

// Close is a no-op so MemoryBackend can stand in wherever a closable backend is expected
func (m *MemoryBackend) Close() error {
	return nil
}
