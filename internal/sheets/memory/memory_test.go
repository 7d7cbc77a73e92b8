package memory

import (
	"context"
	"testing"

	"salarybook/internal/core"
)

func TestReplaceLedgerRows(t *testing.T) {
	m := New()
	ctx := context.Background()

	first := []core.ExportRow{
		core.EmployeeExportHeader,
		{"Rahim", "Chef", "2026-01-15", "30000.00", "10000.00", "20000.00"},
	}
	if err := m.ReplaceLedgerRows(ctx, first); err != nil {
		t.Fatalf("ReplaceLedgerRows() error = %v", err)
	}

	second := []core.ExportRow{core.EmployeeExportHeader}
	if err := m.ReplaceLedgerRows(ctx, second); err != nil {
		t.Fatalf("ReplaceLedgerRows() error = %v", err)
	}

	rows := m.Rows()
	if len(rows) != 1 {
		t.Fatalf("Rows() len = %d, want 1 (snapshot must be replaced, not appended)", len(rows))
	}
	if m.ReplaceCount() != 2 {
		t.Errorf("ReplaceCount() = %d, want 2", m.ReplaceCount())
	}
}
