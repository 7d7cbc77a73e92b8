package core

import "github.com/shopspring/decimal"

// EmployeeBalance pairs an employee with their derived ledger quantities.
type EmployeeBalance struct {
	Employee  Employee
	Withdrawn decimal.Decimal
	Remaining decimal.Decimal
}

// RecentWithdrawal is a withdrawal joined with its employee's name for
// dashboard display.
type RecentWithdrawal struct {
	Withdrawal
	EmployeeName string
}

// LedgerTotals holds the ledger-wide aggregates computed by the store.
type LedgerTotals struct {
	EmployeeCount  int
	TotalSalary    decimal.Decimal
	TotalWithdrawn decimal.Decimal
}

// DashboardSummary aggregates the whole ledger at query time. Totals are
// computed fresh on every read; nothing here is cached.
type DashboardSummary struct {
	EmployeeCount  int
	TotalSalary    decimal.Decimal
	TotalWithdrawn decimal.Decimal
	TotalRemaining decimal.Decimal
	Recent         []RecentWithdrawal
}

// ExportMode selects the export projection.
type ExportMode string

const (
	// ExportEmployees emits one row per employee with their balance.
	ExportEmployees ExportMode = "employees"
	// ExportWithdrawals emits one row per recorded withdrawal.
	ExportWithdrawals ExportMode = "withdrawals"
)

// IsValid returns true for a known export mode.
func (m ExportMode) IsValid() bool {
	return m == ExportEmployees || m == ExportWithdrawals
}

// ExportRow is one flat record of an export projection. The ledger
// guarantees stable column content; delimiters and headers belong to the
// CSV formatter.
type ExportRow []string

// Export headers, one per mode. Column order is part of the contract with
// the formatter and the sheets mirror.
var (
	EmployeeExportHeader   = ExportRow{"Name", "Designation", "Join Date", "Monthly Salary", "Withdrawn", "Remaining"}
	WithdrawalExportHeader = ExportRow{"Employee", "Date", "Amount", "Note"}
)
