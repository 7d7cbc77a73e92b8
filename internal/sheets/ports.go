// Package sheets defines the outbound port for mirroring the ledger to a
// spreadsheet. The google subpackage talks to Google Sheets; the memory
// subpackage is the in-process stand-in used by tests and local runs.
package sheets

import (
	"context"

	"salarybook/internal/core"
)

// LedgerMirror replaces the mirrored ledger with a fresh snapshot. The first
// row of rows is the header. Implementations must replace, not append: the
// mirror always reflects the current ledger, including deletions.
type LedgerMirror interface {
	ReplaceLedgerRows(ctx context.Context, rows []core.ExportRow) error
}
