package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salarybook/internal/core"
	"salarybook/internal/storage/memory"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return New(memory.New(), nil, discardLogger())
}

func addEmployee(t *testing.T, svc *Service, name, salary string) core.Employee {
	t.Helper()
	e, err := svc.AddEmployee(context.Background(), EmployeeInput{
		Name:     name,
		Salary:   salary,
		JoinDate: "2026-01-15",
	})
	require.NoError(t, err)
	return e
}

func TestWithdrawalLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	e := addEmployee(t, svc, "Rahim", "30000")

	w, err := svc.RecordWithdrawal(ctx, WithdrawalInput{
		EmployeeID: e.ID,
		Amount:     "10000",
		Date:       "2026-02-01",
	})
	require.NoError(t, err)
	assert.Equal(t, "10000.00", core.FormatAmount(w.Amount))

	detail, err := svc.Employee(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "20000.00", core.FormatAmount(detail.Balance.Remaining))

	// Over the remaining balance: rejected with the balance attached.
	_, err = svc.RecordWithdrawal(ctx, WithdrawalInput{
		EmployeeID: e.ID,
		Amount:     "25000",
		Date:       "2026-02-02",
	})
	require.Error(t, err)
	var ve *core.ValidationError
	require.True(t, errors.As(err, &ve))
	require.NotNil(t, ve.Remaining)
	assert.Equal(t, "20000.00", core.FormatAmount(*ve.Remaining))

	// Exactly the remaining balance: allowed.
	_, err = svc.RecordWithdrawal(ctx, WithdrawalInput{
		EmployeeID: e.ID,
		Amount:     "20000",
		Date:       "2026-02-03",
	})
	require.NoError(t, err)

	detail, err = svc.Employee(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, detail.Balance.Remaining.IsZero())
	assert.Len(t, detail.Withdrawals, 2)

	require.NoError(t, svc.DeleteEmployee(ctx, e.ID))
	_, err = svc.Employee(ctx, e.ID)
	assert.True(t, core.IsNotFound(err))
}

func TestAddEmployeeValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddEmployee(ctx, EmployeeInput{Name: "   ", Salary: "1000", JoinDate: "2026-01-01"})
	assert.True(t, core.IsValidation(err), "blank name should fail validation")

	_, err = svc.AddEmployee(ctx, EmployeeInput{Name: "Karim", Salary: "-500", JoinDate: "2026-01-01"})
	assert.True(t, core.IsValidation(err), "negative salary should fail validation")

	_, err = svc.AddEmployee(ctx, EmployeeInput{Name: "Karim", Salary: "1000", JoinDate: "01/02/2026"})
	assert.True(t, core.IsValidation(err), "non-ISO date should fail validation")
}

func TestEditEmployeePartialUpdate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	e := addEmployee(t, svc, "Fatima", "18000")

	salary := "22000"
	updated, err := svc.EditEmployee(ctx, e.ID, EmployeeUpdate{Salary: &salary})
	require.NoError(t, err)
	assert.Equal(t, "Fatima", updated.Name)
	assert.Equal(t, "22000.00", core.FormatAmount(updated.MonthlySalary))
	assert.Equal(t, e.JoinDate.String(), updated.JoinDate.String())

	bad := ""
	_, err = svc.EditEmployee(ctx, e.ID, EmployeeUpdate{Name: &bad})
	assert.True(t, core.IsValidation(err))
}

func TestSalaryLoweredBelowWithdrawn(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	e := addEmployee(t, svc, "Jamal", "20000")
	_, err := svc.RecordWithdrawal(ctx, WithdrawalInput{EmployeeID: e.ID, Amount: "15000", Date: "2026-03-01"})
	require.NoError(t, err)

	// Lowering the salary is permitted even though it overdraws the balance.
	salary := "10000"
	_, err = svc.EditEmployee(ctx, e.ID, EmployeeUpdate{Salary: &salary})
	require.NoError(t, err)

	detail, err := svc.Employee(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "-5000.00", core.FormatAmount(detail.Balance.Remaining))

	// New withdrawals are blocked until the balance recovers.
	_, err = svc.RecordWithdrawal(ctx, WithdrawalInput{EmployeeID: e.ID, Amount: "1", Date: "2026-03-02"})
	assert.True(t, core.IsValidation(err))
}

func TestRecordWithdrawalUnknownEmployee(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.RecordWithdrawal(context.Background(), WithdrawalInput{
		EmployeeID: 42,
		Amount:     "100",
		Date:       "2026-02-01",
	})
	assert.True(t, core.IsNotFound(err))
}

func TestConcurrentWithdrawalsSingleWinner(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	e := addEmployee(t, svc, "Nadia", "1000")

	// Two racing withdrawals of 700 against a balance of 1000: exactly one
	// may commit.
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejects   int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordWithdrawal(ctx, WithdrawalInput{
				EmployeeID: e.ID,
				Amount:     "700",
				Date:       "2026-02-01",
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if core.IsValidation(err) || core.IsConflict(err) {
				rejects++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, rejects)

	detail, err := svc.Employee(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "300.00", core.FormatAmount(detail.Balance.Remaining))
}

type failingPublisher struct {
	calls int
}

func (p *failingPublisher) PublishLedgerChange(context.Context, string, int64) error {
	p.calls++
	return errors.New("broker unreachable")
}

func TestPublishFailureDoesNotBlockWrites(t *testing.T) {
	pub := &failingPublisher{}
	svc := New(memory.New(), pub, discardLogger())
	ctx := context.Background()

	e, err := svc.AddEmployee(ctx, EmployeeInput{Name: "Imran", Salary: "5000", JoinDate: "2026-01-01"})
	require.NoError(t, err)

	_, err = svc.RecordWithdrawal(ctx, WithdrawalInput{EmployeeID: e.ID, Amount: "100", Date: "2026-02-01"})
	require.NoError(t, err)

	assert.Equal(t, 2, pub.calls)
}

func TestDashboardSummary(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a := addEmployee(t, svc, "Ayesha", "30000")
	b := addEmployee(t, svc, "Babul", "20000")

	_, err := svc.RecordWithdrawal(ctx, WithdrawalInput{EmployeeID: a.ID, Amount: "5000", Date: "2026-02-01"})
	require.NoError(t, err)
	_, err = svc.RecordWithdrawal(ctx, WithdrawalInput{EmployeeID: b.ID, Amount: "2500.50", Date: "2026-02-05"})
	require.NoError(t, err)

	sum, err := svc.DashboardSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.EmployeeCount)
	assert.Equal(t, "50000.00", core.FormatAmount(sum.TotalSalary))
	assert.Equal(t, "7500.50", core.FormatAmount(sum.TotalWithdrawn))
	assert.Equal(t, "42499.50", core.FormatAmount(sum.TotalRemaining))
	require.Len(t, sum.Recent, 2)
	assert.Equal(t, "Babul", sum.Recent[0].EmployeeName)
}

func TestExportRows(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	e := addEmployee(t, svc, "Rahim", "30000")
	_, err := svc.RecordWithdrawal(ctx, WithdrawalInput{
		EmployeeID: e.ID,
		Amount:     "10000",
		Date:       "2026-02-01",
		Note:       "advance",
	})
	require.NoError(t, err)

	rows, err := svc.ExportRows(ctx, core.ExportEmployees)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, core.EmployeeExportHeader, rows[0])
	assert.Equal(t, core.ExportRow{"Rahim", "", "2026-01-15", "30000.00", "10000.00", "20000.00"}, rows[1])

	rows, err = svc.ExportRows(ctx, core.ExportWithdrawals)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, core.ExportRow{"Rahim", "2026-02-01", "10000.00", "advance"}, rows[1])

	_, err = svc.ExportRows(ctx, core.ExportMode("bogus"))
	assert.True(t, core.IsValidation(err))
}

func TestWithdrawalDateDefaultsToToday(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	e := addEmployee(t, svc, "Selina", "10000")
	w, err := svc.RecordWithdrawal(ctx, WithdrawalInput{EmployeeID: e.ID, Amount: "50"})
	require.NoError(t, err)
	assert.Equal(t, core.Today().String(), w.Date.String())

	var sum decimal.Decimal
	detail, err := svc.Employee(ctx, e.ID)
	require.NoError(t, err)
	for _, h := range detail.Withdrawals {
		sum = sum.Add(h.Amount)
	}
	assert.Equal(t, "50.00", core.FormatAmount(sum))
}
