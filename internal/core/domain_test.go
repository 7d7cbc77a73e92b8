package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2024, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDateRoundTrip(t *testing.T) {
	d, err := ParseDate("2024-01-15")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := d.String(); got != "2024-01-15" {
		t.Fatalf("round trip got %q", got)
	}
	if _, err := ParseDate("15/01/2024"); err == nil {
		t.Fatal("expected error for non-ISO date")
	}
	if _, err := ParseDate(""); err == nil {
		t.Fatal("expected error for empty date")
	}
}

func TestEmployeeValidate(t *testing.T) {
	good := Employee{
		Name:          "Raj",
		Designation:   "Waiter",
		MonthlySalary: decimal.NewFromInt(20000),
		JoinDate:      NewDate(2024, 1, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Employee{
		{Name: "", MonthlySalary: decimal.NewFromInt(20000), JoinDate: NewDate(2024, 1, 1)},
		{Name: "   ", MonthlySalary: decimal.NewFromInt(20000), JoinDate: NewDate(2024, 1, 1)},
		{Name: "Raj", MonthlySalary: decimal.NewFromInt(-500), JoinDate: NewDate(2024, 1, 1)},
		{Name: "Raj", MonthlySalary: decimal.NewFromInt(20000), JoinDate: Date{}},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}

	// Zero salary is allowed, negative is not.
	zero := good
	zero.MonthlySalary = decimal.Zero
	if err := zero.Validate(); err != nil {
		t.Fatalf("zero salary should be valid, got %v", err)
	}
}

func TestWithdrawalValidate(t *testing.T) {
	good := Withdrawal{
		EmployeeID: 1,
		Amount:     decimal.NewFromInt(100),
		Date:       NewDate(2024, 2, 1),
		Note:       "advance",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Withdrawal{
		{EmployeeID: 0, Amount: decimal.NewFromInt(100), Date: NewDate(2024, 2, 1)},
		{EmployeeID: 1, Amount: decimal.Zero, Date: NewDate(2024, 2, 1)},
		{EmployeeID: 1, Amount: decimal.NewFromInt(-10), Date: NewDate(2024, 2, 1)},
		{EmployeeID: 1, Amount: decimal.NewFromInt(100), Date: Date{}},
	}
	for i, w := range bads {
		if err := w.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestEmployeeRemaining(t *testing.T) {
	e := Employee{MonthlySalary: decimal.NewFromInt(30000)}
	rem := e.Remaining(decimal.NewFromInt(10000))
	if !rem.Equal(decimal.NewFromInt(20000)) {
		t.Fatalf("remaining = %s, want 20000", rem)
	}
	// Salary lowered below withdrawn total: remaining goes negative.
	e.MonthlySalary = decimal.NewFromInt(5000)
	if !e.Remaining(decimal.NewFromInt(10000)).IsNegative() {
		t.Fatal("expected negative remaining")
	}
}
