package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"salarybook/internal/core"
)

func TestWriteCSV(t *testing.T) {
	rows := []core.ExportRow{
		core.WithdrawalExportHeader,
		{"Rahim", "2026-02-01", "10000.00", `advance, "urgent"`},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	got := buf.String()
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), got)
	}
	if lines[0] != "Employee,Date,Amount,Note" {
		t.Errorf("header = %q", lines[0])
	}
	// Comma and quotes in the note must be escaped, not split.
	if !strings.Contains(lines[1], `"advance, ""urgent"""`) {
		t.Errorf("note not quoted: %q", lines[1])
	}
}

func TestFilename(t *testing.T) {
	now := time.Date(2026, 8, 27, 10, 30, 0, 0, time.UTC)
	got := Filename(core.ExportEmployees, now)
	want := "salarybook_employees_2026-08-27.csv"
	if got != want {
		t.Errorf("Filename() = %q, want %q", got, want)
	}
}
