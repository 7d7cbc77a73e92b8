// Package storage defines the persistence boundary of the ledger and the
// backend factory. Implementations live in the sqlite, postgres, and memory
// subpackages.
package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"salarybook/internal/core"
)

// Store is the single logical ledger store shared by all requests.
//
// Error contract: unknown ids surface as *core.NotFoundError, a withdrawal
// that would overdraw the balance as *core.ConflictError (the authoritative
// in-transaction check), and everything else as *core.StorageError. Writes
// are atomic: on error nothing persists.
type Store interface {
	// CreateEmployee persists a new employee and returns it with its id and
	// timestamps assigned.
	CreateEmployee(ctx context.Context, e core.Employee) (core.Employee, error)

	// GetEmployee fetches one employee by id.
	GetEmployee(ctx context.Context, id int64) (core.Employee, error)

	// ListEmployees returns employees ordered by name. A non-empty search
	// filters by name or designation substring, case-insensitive.
	ListEmployees(ctx context.Context, search string) ([]core.Employee, error)

	// UpdateEmployee overwrites the mutable fields (name, designation,
	// salary, join date) of an existing employee.
	UpdateEmployee(ctx context.Context, e core.Employee) error

	// DeleteEmployee removes an employee and all their withdrawals in one
	// atomic cascade.
	DeleteEmployee(ctx context.Context, id int64) error

	// CreateWithdrawal persists a withdrawal. The balance check is repeated
	// inside the store transaction so two writers racing past the service
	// check cannot both commit.
	CreateWithdrawal(ctx context.Context, w core.Withdrawal) (core.Withdrawal, error)

	// GetWithdrawal fetches one withdrawal by id.
	GetWithdrawal(ctx context.Context, id int64) (core.Withdrawal, error)

	// ListWithdrawals returns an employee's withdrawals, date ascending then
	// creation order.
	ListWithdrawals(ctx context.Context, employeeID int64) ([]core.Withdrawal, error)

	// RecentWithdrawals returns the most recent withdrawals across the whole
	// ledger, date descending with ties broken by creation order descending,
	// joined with the employee name.
	RecentWithdrawals(ctx context.Context, limit int) ([]core.RecentWithdrawal, error)

	// WithdrawnTotal returns the sum of one employee's withdrawal amounts.
	WithdrawnTotal(ctx context.Context, employeeID int64) (decimal.Decimal, error)

	// WithdrawnTotals returns the withdrawal sum per employee id.
	WithdrawnTotals(ctx context.Context) (map[int64]decimal.Decimal, error)

	// Totals returns the ledger-wide aggregates.
	Totals(ctx context.Context) (core.LedgerTotals, error)

	Close() error
}
