// Package ledger implements the application operations on top of a storage
// backend: employee lifecycle, withdrawal recording with balance protection,
// dashboard aggregation, and export projections.
package ledger

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"salarybook/internal/core"
	"salarybook/internal/storage"
)

// Change reasons carried on published ledger events.
const (
	ReasonEmployeeAdded      = "employee.added"
	ReasonEmployeeUpdated    = "employee.updated"
	ReasonEmployeeDeleted    = "employee.deleted"
	ReasonWithdrawalRecorded = "withdrawal.recorded"
)

// EventPublisher notifies downstream consumers that the ledger changed.
// Publishing is best effort: a failure is logged and never rolls back the
// write it describes.
type EventPublisher interface {
	PublishLedgerChange(ctx context.Context, reason string, entityID int64) error
}

// Service coordinates validation, balance checks, and persistence. It is
// safe for concurrent use.
type Service struct {
	store     storage.Store
	publisher EventPublisher
	logger    *slog.Logger

	// Per-employee locks serialize the check-then-write in RecordWithdrawal
	// within this process. The store repeats the check transactionally for
	// writers in other processes.
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// New creates a Service. publisher may be nil when no event broker is
// configured.
func New(store storage.Store, publisher EventPublisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		publisher: publisher,
		logger:    logger,
		locks:     make(map[int64]*sync.Mutex),
	}
}

// EmployeeInput is the raw form input for creating an employee. Salary and
// JoinDate arrive as strings and are parsed here so field errors carry the
// form field name.
type EmployeeInput struct {
	Name        string
	Designation string
	Salary      string
	JoinDate    string
}

// EmployeeUpdate is a partial update. Nil fields keep their current value.
type EmployeeUpdate struct {
	Name        *string
	Designation *string
	Salary      *string
	JoinDate    *string
}

// WithdrawalInput is the raw form input for recording a withdrawal.
type WithdrawalInput struct {
	EmployeeID int64
	Amount     string
	Date       string
	Note       string
}

// EmployeeDetail is one employee with their derived balance and full
// withdrawal history.
type EmployeeDetail struct {
	Balance     core.EmployeeBalance
	Withdrawals []core.Withdrawal
}

func (s *Service) lockFor(employeeID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[employeeID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[employeeID] = l
	}
	return l
}

func (s *Service) releaseLock(employeeID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, employeeID)
}

func (s *Service) publish(ctx context.Context, reason string, entityID int64) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerChange(ctx, reason, entityID); err != nil {
		s.logger.Warn("publish ledger change failed",
			slog.String("reason", reason),
			slog.Int64("entity_id", entityID),
			slog.String("error", err.Error()))
	}
}

// AddEmployee validates and persists a new employee.
func (s *Service) AddEmployee(ctx context.Context, in EmployeeInput) (core.Employee, error) {
	salary, err := core.ParseAmount(in.Salary)
	if err != nil {
		return core.Employee{}, core.NewValidationError("monthly_salary", "invalid amount")
	}
	joinDate, err := core.ParseDate(in.JoinDate)
	if err != nil {
		return core.Employee{}, core.NewValidationError("join_date", "invalid date, expected YYYY-MM-DD")
	}

	e := core.Employee{
		Name:          strings.TrimSpace(in.Name),
		Designation:   strings.TrimSpace(in.Designation),
		MonthlySalary: salary,
		JoinDate:      joinDate,
	}
	if err := e.Validate(); err != nil {
		return core.Employee{}, core.NewValidationError("", err.Error())
	}

	created, err := s.store.CreateEmployee(ctx, e)
	if err != nil {
		return core.Employee{}, err
	}
	s.logger.Info("employee added",
		slog.Int64("employee_id", created.ID),
		slog.String("name", created.Name))
	s.publish(ctx, ReasonEmployeeAdded, created.ID)
	return created, nil
}

// EditEmployee applies a partial update to an existing employee. Lowering
// the salary below the withdrawn total is allowed; the remaining balance
// goes negative and blocks further withdrawals until it recovers.
func (s *Service) EditEmployee(ctx context.Context, id int64, upd EmployeeUpdate) (core.Employee, error) {
	e, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return core.Employee{}, err
	}

	if upd.Name != nil {
		e.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Designation != nil {
		e.Designation = strings.TrimSpace(*upd.Designation)
	}
	if upd.Salary != nil {
		salary, err := core.ParseAmount(*upd.Salary)
		if err != nil {
			return core.Employee{}, core.NewValidationError("monthly_salary", "invalid amount")
		}
		e.MonthlySalary = salary
	}
	if upd.JoinDate != nil {
		joinDate, err := core.ParseDate(*upd.JoinDate)
		if err != nil {
			return core.Employee{}, core.NewValidationError("join_date", "invalid date, expected YYYY-MM-DD")
		}
		e.JoinDate = joinDate
	}
	if err := e.Validate(); err != nil {
		return core.Employee{}, core.NewValidationError("", err.Error())
	}

	if err := s.store.UpdateEmployee(ctx, e); err != nil {
		return core.Employee{}, err
	}
	s.logger.Info("employee updated", slog.Int64("employee_id", id))
	s.publish(ctx, ReasonEmployeeUpdated, id)
	return e, nil
}

// DeleteEmployee removes an employee together with their withdrawal history.
func (s *Service) DeleteEmployee(ctx context.Context, id int64) error {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	if err := s.store.DeleteEmployee(ctx, id); err != nil {
		return err
	}
	s.releaseLock(id)
	s.logger.Info("employee deleted", slog.Int64("employee_id", id))
	s.publish(ctx, ReasonEmployeeDeleted, id)
	return nil
}

// Employee returns one employee with balance and history.
func (s *Service) Employee(ctx context.Context, id int64) (EmployeeDetail, error) {
	e, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return EmployeeDetail{}, err
	}
	withdrawn, err := s.store.WithdrawnTotal(ctx, id)
	if err != nil {
		return EmployeeDetail{}, err
	}
	history, err := s.store.ListWithdrawals(ctx, id)
	if err != nil {
		return EmployeeDetail{}, err
	}
	return EmployeeDetail{
		Balance: core.EmployeeBalance{
			Employee:  e,
			Withdrawn: withdrawn,
			Remaining: e.Remaining(withdrawn),
		},
		Withdrawals: history,
	}, nil
}

// EmployeeBalances lists employees with their derived balances, optionally
// filtered by a name or designation substring.
func (s *Service) EmployeeBalances(ctx context.Context, search string) ([]core.EmployeeBalance, error) {
	employees, err := s.store.ListEmployees(ctx, search)
	if err != nil {
		return nil, err
	}
	totals, err := s.store.WithdrawnTotals(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]core.EmployeeBalance, 0, len(employees))
	for _, e := range employees {
		withdrawn := totals[e.ID]
		out = append(out, core.EmployeeBalance{
			Employee:  e,
			Withdrawn: withdrawn,
			Remaining: e.Remaining(withdrawn),
		})
	}
	return out, nil
}

// RecordWithdrawal validates a withdrawal against the employee's remaining
// balance and persists it. The check runs twice: here under the per-employee
// lock, and again inside the store transaction.
func (s *Service) RecordWithdrawal(ctx context.Context, in WithdrawalInput) (core.Withdrawal, error) {
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Withdrawal{}, core.NewValidationError("amount", "invalid amount")
	}
	if !amount.IsPositive() {
		return core.Withdrawal{}, core.NewValidationError("amount", "amount must be positive")
	}

	date := core.Today()
	if strings.TrimSpace(in.Date) != "" {
		date, err = core.ParseDate(in.Date)
		if err != nil {
			return core.Withdrawal{}, core.NewValidationError("date", "invalid date, expected YYYY-MM-DD")
		}
	}

	w := core.Withdrawal{
		EmployeeID: in.EmployeeID,
		Amount:     amount,
		Date:       date,
		Note:       strings.TrimSpace(in.Note),
	}
	if err := w.Validate(); err != nil {
		return core.Withdrawal{}, core.NewValidationError("", err.Error())
	}

	lock := s.lockFor(in.EmployeeID)
	lock.Lock()
	defer lock.Unlock()

	e, err := s.store.GetEmployee(ctx, in.EmployeeID)
	if err != nil {
		return core.Withdrawal{}, err
	}
	withdrawn, err := s.store.WithdrawnTotal(ctx, in.EmployeeID)
	if err != nil {
		return core.Withdrawal{}, err
	}
	remaining := e.Remaining(withdrawn)
	if amount.GreaterThan(remaining) {
		return core.Withdrawal{}, core.NewBalanceError(remaining)
	}

	created, err := s.store.CreateWithdrawal(ctx, w)
	if err != nil {
		return core.Withdrawal{}, err
	}
	s.logger.Info("withdrawal recorded",
		slog.Int64("withdrawal_id", created.ID),
		slog.Int64("employee_id", created.EmployeeID),
		slog.String("amount", core.FormatAmount(created.Amount)))
	s.publish(ctx, ReasonWithdrawalRecorded, created.ID)
	return created, nil
}

// DashboardSummary computes the ledger-wide aggregates and the ten most
// recent withdrawals.
func (s *Service) DashboardSummary(ctx context.Context) (core.DashboardSummary, error) {
	totals, err := s.store.Totals(ctx)
	if err != nil {
		return core.DashboardSummary{}, err
	}
	recent, err := s.store.RecentWithdrawals(ctx, 10)
	if err != nil {
		return core.DashboardSummary{}, err
	}
	return core.DashboardSummary{
		EmployeeCount:  totals.EmployeeCount,
		TotalSalary:    totals.TotalSalary,
		TotalWithdrawn: totals.TotalWithdrawn,
		TotalRemaining: totals.TotalSalary.Sub(totals.TotalWithdrawn),
		Recent:         recent,
	}, nil
}

// ExportRows builds the flat projection for one export mode. The first row
// is the header. The same rows feed the CSV download and the sheets mirror.
func (s *Service) ExportRows(ctx context.Context, mode core.ExportMode) ([]core.ExportRow, error) {
	if !mode.IsValid() {
		return nil, core.NewValidationError("mode", "unknown export mode")
	}

	employees, err := s.store.ListEmployees(ctx, "")
	if err != nil {
		return nil, err
	}

	switch mode {
	case core.ExportEmployees:
		totals, err := s.store.WithdrawnTotals(ctx)
		if err != nil {
			return nil, err
		}
		rows := []core.ExportRow{core.EmployeeExportHeader}
		for _, e := range employees {
			withdrawn := totals[e.ID]
			rows = append(rows, core.ExportRow{
				e.Name,
				e.Designation,
				e.JoinDate.String(),
				core.FormatAmount(e.MonthlySalary),
				core.FormatAmount(withdrawn),
				core.FormatAmount(e.Remaining(withdrawn)),
			})
		}
		return rows, nil

	case core.ExportWithdrawals:
		rows := []core.ExportRow{core.WithdrawalExportHeader}
		for _, e := range employees {
			history, err := s.store.ListWithdrawals(ctx, e.ID)
			if err != nil {
				return nil, err
			}
			for _, w := range history {
				rows = append(rows, core.ExportRow{
					e.Name,
					w.Date.String(),
					core.FormatAmount(w.Amount),
					w.Note,
				})
			}
		}
		return rows, nil
	}

	return nil, core.NewValidationError("mode", "unknown export mode")
}
