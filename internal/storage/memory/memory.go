// Package memory is the in-memory ledger store. It is the default backend
// for local development and the store the service tests run against.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"salarybook/internal/core"
)

// Store keeps the whole ledger in mutex-guarded maps. Semantics match the
// SQL stores, including the in-"transaction" balance re-check on withdrawal
// creation.
type Store struct {
	mu               sync.RWMutex
	employees        map[int64]core.Employee
	withdrawals      map[int64]core.Withdrawal
	nextEmployeeID   int64
	nextWithdrawalID int64
}

func New() *Store {
	return &Store{
		employees:   make(map[int64]core.Employee),
		withdrawals: make(map[int64]core.Withdrawal),
	}
}

func (s *Store) CreateEmployee(_ context.Context, e core.Employee) (core.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextEmployeeID++
	now := time.Now().UTC()
	e.ID = s.nextEmployeeID
	e.CreatedAt = now
	e.UpdatedAt = now
	s.employees[e.ID] = e
	return e, nil
}

func (s *Store) GetEmployee(_ context.Context, id int64) (core.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.employees[id]
	if !ok {
		return core.Employee{}, &core.NotFoundError{Entity: "employee", ID: id}
	}
	return e, nil
}

func (s *Store) ListEmployees(_ context.Context, search string) ([]core.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]core.Employee, 0, len(s.employees))
	for _, e := range s.employees {
		if needle != "" &&
			!strings.Contains(strings.ToLower(e.Name), needle) &&
			!strings.Contains(strings.ToLower(e.Designation), needle) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateEmployee(_ context.Context, e core.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.employees[e.ID]
	if !ok {
		return &core.NotFoundError{Entity: "employee", ID: e.ID}
	}
	stored.Name = e.Name
	stored.Designation = e.Designation
	stored.MonthlySalary = e.MonthlySalary
	stored.JoinDate = e.JoinDate
	stored.UpdatedAt = time.Now().UTC()
	s.employees[e.ID] = stored
	return nil
}

func (s *Store) DeleteEmployee(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.employees[id]; !ok {
		return &core.NotFoundError{Entity: "employee", ID: id}
	}
	delete(s.employees, id)
	for wid, w := range s.withdrawals {
		if w.EmployeeID == id {
			delete(s.withdrawals, wid)
		}
	}
	return nil
}

func (s *Store) CreateWithdrawal(_ context.Context, w core.Withdrawal) (core.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	emp, ok := s.employees[w.EmployeeID]
	if !ok {
		return core.Withdrawal{}, &core.NotFoundError{Entity: "employee", ID: w.EmployeeID}
	}

	remaining := emp.Remaining(s.withdrawnLocked(w.EmployeeID))
	if w.Amount.GreaterThan(remaining) {
		return core.Withdrawal{}, &core.ConflictError{
			Message:   "amount exceeds remaining balance",
			Remaining: &remaining,
		}
	}

	s.nextWithdrawalID++
	w.ID = s.nextWithdrawalID
	w.CreatedAt = time.Now().UTC()
	s.withdrawals[w.ID] = w
	return w, nil
}

func (s *Store) GetWithdrawal(_ context.Context, id int64) (core.Withdrawal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.withdrawals[id]
	if !ok {
		return core.Withdrawal{}, &core.NotFoundError{Entity: "withdrawal", ID: id}
	}
	return w, nil
}

func (s *Store) ListWithdrawals(_ context.Context, employeeID int64) ([]core.Withdrawal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.Withdrawal
	for _, w := range s.withdrawals {
		if w.EmployeeID == employeeID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) RecentWithdrawals(_ context.Context, limit int) ([]core.RecentWithdrawal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]core.Withdrawal, 0, len(s.withdrawals))
	for _, w := range s.withdrawals {
		all = append(all, w)
	}
	// Date descending, creation order descending on ties.
	sort.Slice(all, func(i, j int) bool {
		if !all[i].Date.Equal(all[j].Date.Time) {
			return all[i].Date.After(all[j].Date.Time)
		}
		return all[i].ID > all[j].ID
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	out := make([]core.RecentWithdrawal, 0, len(all))
	for _, w := range all {
		out = append(out, core.RecentWithdrawal{
			Withdrawal:   w,
			EmployeeName: s.employees[w.EmployeeID].Name,
		})
	}
	return out, nil
}

func (s *Store) WithdrawnTotal(_ context.Context, employeeID int64) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.employees[employeeID]; !ok {
		return decimal.Zero, &core.NotFoundError{Entity: "employee", ID: employeeID}
	}
	return s.withdrawnLocked(employeeID), nil
}

func (s *Store) WithdrawnTotals(_ context.Context) (map[int64]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[int64]decimal.Decimal, len(s.employees))
	for _, w := range s.withdrawals {
		totals[w.EmployeeID] = totals[w.EmployeeID].Add(w.Amount)
	}
	return totals, nil
}

func (s *Store) Totals(_ context.Context) (core.LedgerTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t := core.LedgerTotals{EmployeeCount: len(s.employees)}
	for _, e := range s.employees {
		t.TotalSalary = t.TotalSalary.Add(e.MonthlySalary)
	}
	for _, w := range s.withdrawals {
		t.TotalWithdrawn = t.TotalWithdrawn.Add(w.Amount)
	}
	return t, nil
}

func (s *Store) Close() error { return nil }

// withdrawnLocked sums one employee's withdrawals. Caller holds s.mu.
func (s *Store) withdrawnLocked(employeeID int64) decimal.Decimal {
	total := decimal.Zero
	for _, w := range s.withdrawals {
		if w.EmployeeID == employeeID {
			total = total.Add(w.Amount)
		}
	}
	return total
}
