// Package sqlite is the SQLite ledger store, the default persistent backend
// for single-host deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"salarybook/internal/core"
)

// Store wraps a SQLite database file. Amounts are stored as TEXT and summed
// in Go with decimals: SQLite's SUM coerces TEXT to float and would
// reintroduce the drift the decimal type exists to prevent.
type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) CreateEmployee(ctx context.Context, e core.Employee) (core.Employee, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO employees (name, designation, monthly_salary, join_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.Name, e.Designation, e.MonthlySalary.String(), e.JoinDate.String(), now, now)
	if err != nil {
		return core.Employee{}, &core.StorageError{Op: "create employee", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Employee{}, &core.StorageError{Op: "create employee", Err: err}
	}
	e.ID = id
	e.CreatedAt = now
	e.UpdatedAt = now
	return e, nil
}

func (s *Store) GetEmployee(ctx context.Context, id int64) (core.Employee, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, designation, monthly_salary, join_date, created_at, updated_at
		 FROM employees WHERE id = ?`, id)
	e, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Employee{}, &core.NotFoundError{Entity: "employee", ID: id}
	}
	if err != nil {
		return core.Employee{}, &core.StorageError{Op: "get employee", Err: err}
	}
	return e, nil
}

func (s *Store) ListEmployees(ctx context.Context, search string) ([]core.Employee, error) {
	query := `SELECT id, name, designation, monthly_salary, join_date, created_at, updated_at
	          FROM employees`
	args := []any{}
	if search != "" {
		query += ` WHERE name LIKE ? OR designation LIKE ?`
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY name, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &core.StorageError{Op: "list employees", Err: err}
	}
	defer rows.Close()

	var out []core.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, &core.StorageError{Op: "list employees", Err: err}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StorageError{Op: "list employees", Err: err}
	}
	return out, nil
}

func (s *Store) UpdateEmployee(ctx context.Context, e core.Employee) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE employees SET name = ?, designation = ?, monthly_salary = ?, join_date = ?, updated_at = ?
		 WHERE id = ?`,
		e.Name, e.Designation, e.MonthlySalary.String(), e.JoinDate.String(), time.Now().UTC(), e.ID)
	if err != nil {
		return &core.StorageError{Op: "update employee", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &core.StorageError{Op: "update employee", Err: err}
	}
	if n == 0 {
		return &core.NotFoundError{Entity: "employee", ID: e.ID}
	}
	return nil
}

// DeleteEmployee removes the employee and their withdrawals in one
// transaction. The explicit withdrawal delete duplicates the schema's ON
// DELETE CASCADE so the cascade holds even on databases created before
// foreign keys were enforced.
func (s *Store) DeleteEmployee(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &core.StorageError{Op: "delete employee", Err: err}
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM withdrawals WHERE employee_id = ?`, id); err != nil {
		return &core.StorageError{Op: "delete withdrawals", Err: err}
	}

	var res sql.Result
	res, err = tx.ExecContext(ctx, `DELETE FROM employees WHERE id = ?`, id)
	if err != nil {
		return &core.StorageError{Op: "delete employee", Err: err}
	}
	var n int64
	n, err = res.RowsAffected()
	if err != nil {
		return &core.StorageError{Op: "delete employee", Err: err}
	}
	if n == 0 {
		err = &core.NotFoundError{Entity: "employee", ID: id}
		return err
	}

	if err = tx.Commit(); err != nil {
		return &core.StorageError{Op: "delete employee", Err: err}
	}
	return nil
}

// CreateWithdrawal inserts a withdrawal after re-checking the balance inside
// the transaction. The service already validated against the remaining
// balance; this check only fires when a concurrent writer got in between.
func (s *Store) CreateWithdrawal(ctx context.Context, w core.Withdrawal) (core.Withdrawal, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Withdrawal{}, &core.StorageError{Op: "create withdrawal", Err: err}
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var salaryStr string
	err = tx.QueryRowContext(ctx, `SELECT monthly_salary FROM employees WHERE id = ?`, w.EmployeeID).Scan(&salaryStr)
	if errors.Is(err, sql.ErrNoRows) {
		err = &core.NotFoundError{Entity: "employee", ID: w.EmployeeID}
		return core.Withdrawal{}, err
	}
	if err != nil {
		return core.Withdrawal{}, &core.StorageError{Op: "create withdrawal", Err: err}
	}
	salary, err := decimal.NewFromString(salaryStr)
	if err != nil {
		return core.Withdrawal{}, &core.StorageError{Op: "create withdrawal", Err: err}
	}

	var withdrawn decimal.Decimal
	withdrawn, err = sumAmounts(ctx, tx, `SELECT amount FROM withdrawals WHERE employee_id = ?`, w.EmployeeID)
	if err != nil {
		return core.Withdrawal{}, &core.StorageError{Op: "create withdrawal", Err: err}
	}

	remaining := salary.Sub(withdrawn)
	if w.Amount.GreaterThan(remaining) {
		err = &core.ConflictError{Message: "amount exceeds remaining balance", Remaining: &remaining}
		return core.Withdrawal{}, err
	}

	now := time.Now().UTC()
	var res sql.Result
	res, err = tx.ExecContext(ctx,
		`INSERT INTO withdrawals (employee_id, amount, date, note, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		w.EmployeeID, w.Amount.String(), w.Date.String(), w.Note, now)
	if err != nil {
		return core.Withdrawal{}, &core.StorageError{Op: "create withdrawal", Err: err}
	}
	var id int64
	id, err = res.LastInsertId()
	if err != nil {
		return core.Withdrawal{}, &core.StorageError{Op: "create withdrawal", Err: err}
	}

	if err = tx.Commit(); err != nil {
		return core.Withdrawal{}, &core.StorageError{Op: "create withdrawal", Err: err}
	}

	w.ID = id
	w.CreatedAt = now
	return w, nil
}

func (s *Store) GetWithdrawal(ctx context.Context, id int64) (core.Withdrawal, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, employee_id, amount, date, note, created_at FROM withdrawals WHERE id = ?`, id)
	w, err := scanWithdrawal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Withdrawal{}, &core.NotFoundError{Entity: "withdrawal", ID: id}
	}
	if err != nil {
		return core.Withdrawal{}, &core.StorageError{Op: "get withdrawal", Err: err}
	}
	return w, nil
}

func (s *Store) ListWithdrawals(ctx context.Context, employeeID int64) ([]core.Withdrawal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, employee_id, amount, date, note, created_at
		 FROM withdrawals WHERE employee_id = ? ORDER BY date, id`, employeeID)
	if err != nil {
		return nil, &core.StorageError{Op: "list withdrawals", Err: err}
	}
	defer rows.Close()

	var out []core.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, &core.StorageError{Op: "list withdrawals", Err: err}
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StorageError{Op: "list withdrawals", Err: err}
	}
	return out, nil
}

func (s *Store) RecentWithdrawals(ctx context.Context, limit int) ([]core.RecentWithdrawal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT w.id, w.employee_id, w.amount, w.date, w.note, w.created_at, e.name
		 FROM withdrawals w JOIN employees e ON e.id = w.employee_id
		 ORDER BY w.date DESC, w.id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, &core.StorageError{Op: "recent withdrawals", Err: err}
	}
	defer rows.Close()

	var out []core.RecentWithdrawal
	for rows.Next() {
		var (
			w         core.Withdrawal
			amountStr string
			dateStr   string
			name      string
		)
		if err := rows.Scan(&w.ID, &w.EmployeeID, &amountStr, &dateStr, &w.Note, &w.CreatedAt, &name); err != nil {
			return nil, &core.StorageError{Op: "recent withdrawals", Err: err}
		}
		if w.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, &core.StorageError{Op: "recent withdrawals", Err: err}
		}
		if w.Date, err = core.ParseDate(dateStr); err != nil {
			return nil, &core.StorageError{Op: "recent withdrawals", Err: err}
		}
		out = append(out, core.RecentWithdrawal{Withdrawal: w, EmployeeName: name})
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StorageError{Op: "recent withdrawals", Err: err}
	}
	return out, nil
}

func (s *Store) WithdrawnTotal(ctx context.Context, employeeID int64) (decimal.Decimal, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM employees WHERE id = ?`, employeeID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, &core.NotFoundError{Entity: "employee", ID: employeeID}
	}
	if err != nil {
		return decimal.Zero, &core.StorageError{Op: "withdrawn total", Err: err}
	}

	total, err := sumAmounts(ctx, s.db, `SELECT amount FROM withdrawals WHERE employee_id = ?`, employeeID)
	if err != nil {
		return decimal.Zero, &core.StorageError{Op: "withdrawn total", Err: err}
	}
	return total, nil
}

func (s *Store) WithdrawnTotals(ctx context.Context) (map[int64]decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT employee_id, amount FROM withdrawals`)
	if err != nil {
		return nil, &core.StorageError{Op: "withdrawn totals", Err: err}
	}
	defer rows.Close()

	totals := make(map[int64]decimal.Decimal)
	for rows.Next() {
		var (
			employeeID int64
			amountStr  string
		)
		if err := rows.Scan(&employeeID, &amountStr); err != nil {
			return nil, &core.StorageError{Op: "withdrawn totals", Err: err}
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, &core.StorageError{Op: "withdrawn totals", Err: err}
		}
		totals[employeeID] = totals[employeeID].Add(amount)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StorageError{Op: "withdrawn totals", Err: err}
	}
	return totals, nil
}

func (s *Store) Totals(ctx context.Context) (core.LedgerTotals, error) {
	var t core.LedgerTotals
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM employees`).Scan(&t.EmployeeCount); err != nil {
		return t, &core.StorageError{Op: "totals", Err: err}
	}

	salary, err := sumAmounts(ctx, s.db, `SELECT monthly_salary FROM employees`)
	if err != nil {
		return t, &core.StorageError{Op: "totals", Err: err}
	}
	withdrawn, err := sumAmounts(ctx, s.db, `SELECT amount FROM withdrawals`)
	if err != nil {
		return t, &core.StorageError{Op: "totals", Err: err}
	}
	t.TotalSalary = salary
	t.TotalWithdrawn = withdrawn
	return t, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// sumAmounts sums a single TEXT amount column in Go with decimals.
func sumAmounts(ctx context.Context, q querier, query string, args ...any) (decimal.Decimal, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return decimal.Zero, err
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return decimal.Zero, err
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(d)
	}
	return total, rows.Err()
}

func scanEmployee(row rowScanner) (core.Employee, error) {
	var (
		e         core.Employee
		salaryStr string
		dateStr   string
	)
	if err := row.Scan(&e.ID, &e.Name, &e.Designation, &salaryStr, &dateStr, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return core.Employee{}, err
	}
	salary, err := decimal.NewFromString(salaryStr)
	if err != nil {
		return core.Employee{}, err
	}
	joinDate, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Employee{}, err
	}
	e.MonthlySalary = salary
	e.JoinDate = joinDate
	return e, nil
}

func scanWithdrawal(row rowScanner) (core.Withdrawal, error) {
	var (
		w         core.Withdrawal
		amountStr string
		dateStr   string
	)
	if err := row.Scan(&w.ID, &w.EmployeeID, &amountStr, &dateStr, &w.Note, &w.CreatedAt); err != nil {
		return core.Withdrawal{}, err
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return core.Withdrawal{}, err
	}
	date, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Withdrawal{}, err
	}
	w.Amount = amount
	w.Date = date
	return w, nil
}
