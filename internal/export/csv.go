// Package export renders ledger projections as CSV downloads.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"salarybook/internal/core"
)

// WriteCSV writes rows (header first) to w in RFC 4180 form.
func WriteCSV(w io.Writer, rows []core.ExportRow) error {
	cw := csv.NewWriter(w)
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// Filename builds the download filename for a mode, stamped with the
// export date.
func Filename(mode core.ExportMode, now time.Time) string {
	return fmt.Sprintf("salarybook_%s_%s.csv", mode, now.UTC().Format(core.ISODate))
}
