package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ISODate is the wire format for calendar dates.
const ISODate = "2006-01-02"

type (
	// Date is a calendar date pinned to UTC midnight. Time-of-day is never
	// significant in the ledger.
	Date struct {
		time.Time
	}

	// Employee is one staff member and their salary terms. MonthlySalary is
	// exact decimal; never convert it through float64.
	Employee struct {
		ID            int64
		Name          string
		Designation   string
		MonthlySalary decimal.Decimal
		JoinDate      Date
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}

	// Withdrawal is one payout event against an employee's salary balance.
	// Withdrawals are create-only: no edit or delete once recorded.
	Withdrawal struct {
		ID         int64
		EmployeeID int64
		Amount     decimal.Decimal
		Date       Date
		Note       string
		CreatedAt  time.Time
	}
)

var (
	ErrEmptyName      = errors.New("name cannot be empty")
	ErrNameTooLong    = errors.New("name too long (max 100 characters)")
	ErrNegativeSalary = errors.New("monthly salary cannot be negative")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrInvalidDate    = errors.New("invalid date")
	ErrNoteTooLong    = errors.New("note too long (max 500 characters)")
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar date in UTC.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// ParseDate parses an ISO calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(ISODate, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t.UTC()}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(ISODate)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (e Employee) Validate() error {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > 100 {
		return ErrNameTooLong
	}
	if e.MonthlySalary.IsNegative() {
		return ErrNegativeSalary
	}
	if err := e.JoinDate.Validate(); err != nil {
		return err
	}
	return nil
}

// Remaining returns the salary balance left after the given withdrawn total.
// The result can be negative when a salary was lowered after withdrawals.
func (e Employee) Remaining(withdrawn decimal.Decimal) decimal.Decimal {
	return e.MonthlySalary.Sub(withdrawn)
}

func (w Withdrawal) Validate() error {
	if w.EmployeeID <= 0 {
		return errors.New("missing employee reference")
	}
	if !w.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if err := w.Date.Validate(); err != nil {
		return err
	}
	if len(w.Note) > 500 {
		return ErrNoteTooLong
	}
	return nil
}
