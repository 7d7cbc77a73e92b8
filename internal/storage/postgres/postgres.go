// Package postgres is the Postgres ledger store, used when several web
// workers share one database (the original deployment shape in production).
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"salarybook/internal/core"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a Postgres connection pool. Amounts live in NUMERIC columns,
// so SUM stays exact and aggregation happens in SQL.
type Store struct {
	db *sql.DB
}

func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("create postgres driver: %w", err)
	}

	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) CreateEmployee(ctx context.Context, e core.Employee) (core.Employee, error) {
	now := time.Now().UTC()
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO employees (name, designation, monthly_salary, join_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		e.Name, e.Designation, e.MonthlySalary, e.JoinDate.Time, now, now).Scan(&e.ID)
	if err != nil {
		return core.Employee{}, &core.StorageError{Op: "create employee", Err: err}
	}
	e.CreatedAt = now
	e.UpdatedAt = now
	return e, nil
}

func (s *Store) GetEmployee(ctx context.Context, id int64) (core.Employee, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, designation, monthly_salary, join_date, created_at, updated_at
		 FROM employees WHERE id = $1`, id)
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
		query += ` WHERE name ILIKE $1 OR designation ILIKE $1`
		args = append(args, "%"+search+"%")
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
		`UPDATE employees SET name = $1, designation = $2, monthly_salary = $3, join_date = $4, updated_at = $5
		 WHERE id = $6`,
		e.Name, e.Designation, e.MonthlySalary, e.JoinDate.Time, time.Now().UTC(), e.ID)
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

	if _, err = tx.ExecContext(ctx, `DELETE FROM withdrawals WHERE employee_id = $1`, id); err != nil {
		return &core.StorageError{Op: "delete withdrawals", Err: err}
	}

	var res sql.Result
	res, err = tx.ExecContext(ctx, `DELETE FROM employees WHERE id = $1`, id)
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

// CreateWithdrawal locks the employee row before re-checking the balance,
// which serializes concurrent withdrawals for one employee across all
// processes sharing this database.
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

	var salary decimal.Decimal
	err = tx.QueryRowContext(ctx,
		`SELECT monthly_salary FROM employees WHERE id = $1 FOR UPDATE`, w.EmployeeID).Scan(&salary)
	if errors.Is(err, sql.ErrNoRows) {
		err = &core.NotFoundError{Entity: "employee", ID: w.EmployeeID}
		return core.Withdrawal{}, err
	}
	if err != nil {
		return core.Withdrawal{}, &core.StorageError{Op: "create withdrawal", Err: err}
	}

	var withdrawn decimal.Decimal
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM withdrawals WHERE employee_id = $1`, w.EmployeeID).Scan(&withdrawn)
	if err != nil {
		return core.Withdrawal{}, &core.StorageError{Op: "create withdrawal", Err: err}
	}

	remaining := salary.Sub(withdrawn)
	if w.Amount.GreaterThan(remaining) {
		err = &core.ConflictError{Message: "amount exceeds remaining balance", Remaining: &remaining}
		return core.Withdrawal{}, err
	}

	now := time.Now().UTC()
	err = tx.QueryRowContext(ctx,
		`INSERT INTO withdrawals (employee_id, amount, date, note, created_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		w.EmployeeID, w.Amount, w.Date.Time, w.Note, now).Scan(&w.ID)
	if err != nil {
		return core.Withdrawal{}, &core.StorageError{Op: "create withdrawal", Err: err}
	}

	if err = tx.Commit(); err != nil {
		return core.Withdrawal{}, &core.StorageError{Op: "create withdrawal", Err: err}
	}

	w.CreatedAt = now
	return w, nil
}

func (s *Store) GetWithdrawal(ctx context.Context, id int64) (core.Withdrawal, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, employee_id, amount, date, note, created_at FROM withdrawals WHERE id = $1`, id)
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
		 FROM withdrawals WHERE employee_id = $1 ORDER BY date, id`, employeeID)
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
		 ORDER BY w.date DESC, w.id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, &core.StorageError{Op: "recent withdrawals", Err: err}
	}
	defer rows.Close()

	var out []core.RecentWithdrawal
	for rows.Next() {
		var (
			w    core.Withdrawal
			date time.Time
			name string
		)
		if err := rows.Scan(&w.ID, &w.EmployeeID, &w.Amount, &date, &w.Note, &w.CreatedAt, &name); err != nil {
			return nil, &core.StorageError{Op: "recent withdrawals", Err: err}
		}
		w.Date = core.NewDate(date.Year(), int(date.Month()), date.Day())
		out = append(out, core.RecentWithdrawal{Withdrawal: w, EmployeeName: name})
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StorageError{Op: "recent withdrawals", Err: err}
	}
	return out, nil
}

func (s *Store) WithdrawnTotal(ctx context.Context, employeeID int64) (decimal.Decimal, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM employees WHERE id = $1`, employeeID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, &core.NotFoundError{Entity: "employee", ID: employeeID}
	}
	if err != nil {
		return decimal.Zero, &core.StorageError{Op: "withdrawn total", Err: err}
	}

	var total decimal.Decimal
	err = s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM withdrawals WHERE employee_id = $1`, employeeID).Scan(&total)
	if err != nil {
		return decimal.Zero, &core.StorageError{Op: "withdrawn total", Err: err}
	}
	return total, nil
}

func (s *Store) WithdrawnTotals(ctx context.Context) (map[int64]decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT employee_id, SUM(amount) FROM withdrawals GROUP BY employee_id`)
	if err != nil {
		return nil, &core.StorageError{Op: "withdrawn totals", Err: err}
	}
	defer rows.Close()

	totals := make(map[int64]decimal.Decimal)
	for rows.Next() {
		var (
			employeeID int64
			total      decimal.Decimal
		)
		if err := rows.Scan(&employeeID, &total); err != nil {
			return nil, &core.StorageError{Op: "withdrawn totals", Err: err}
		}
		totals[employeeID] = total
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StorageError{Op: "withdrawn totals", Err: err}
	}
	return totals, nil
}

func (s *Store) Totals(ctx context.Context) (core.LedgerTotals, error) {
	var t core.LedgerTotals
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(monthly_salary), 0) FROM employees`).Scan(&t.EmployeeCount, &t.TotalSalary)
	if err != nil {
		return t, &core.StorageError{Op: "totals", Err: err}
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM withdrawals`).Scan(&t.TotalWithdrawn)
	if err != nil {
		return t, &core.StorageError{Op: "totals", Err: err}
	}
	return t, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (core.Employee, error) {
	var (
		e    core.Employee
		join time.Time
	)
	if err := row.Scan(&e.ID, &e.Name, &e.Designation, &e.MonthlySalary, &join, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return core.Employee{}, err
	}
	e.JoinDate = core.NewDate(join.Year(), int(join.Month()), join.Day())
	return e, nil
}

func scanWithdrawal(row rowScanner) (core.Withdrawal, error) {
	var (
		w    core.Withdrawal
		date time.Time
	)
	if err := row.Scan(&w.ID, &w.EmployeeID, &w.Amount, &date, &w.Note, &w.CreatedAt); err != nil {
		return core.Withdrawal{}, err
	}
	w.Date = core.NewDate(date.Year(), int(date.Month()), date.Day())
	return w, nil
}
