// Package memory is the in-process ledger mirror used by tests and local
// runs without Google credentials.
package memory

import (
	"context"
	"sync"

	"salarybook/internal/core"
	ports "salarybook/internal/sheets"
)

type Mirror struct {
	mu       sync.Mutex
	rows     []core.ExportRow
	replaces int
}

var _ ports.LedgerMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{}
}

func (m *Mirror) ReplaceLedgerRows(_ context.Context, rows []core.ExportRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = make([]core.ExportRow, len(rows))
	copy(m.rows, rows)
	m.replaces++
	return nil
}

// Rows returns a copy of the last mirrored snapshot.
func (m *Mirror) Rows() []core.ExportRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.ExportRow, len(m.rows))
	copy(out, m.rows)
	return out
}

// ReplaceCount returns how many snapshots have been written.
func (m *Mirror) ReplaceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replaces
}
