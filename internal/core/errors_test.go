package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
)

func TestErrorTaxonomy(t *testing.T) {
	val := NewValidationError("name", "cannot be empty")
	nf := &NotFoundError{Entity: "employee", ID: 7}
	conf := &ConflictError{Message: "balance changed"}
	st := &StorageError{Op: "create withdrawal", Err: errors.New("disk full")}

	if !IsValidation(val) || IsValidation(nf) {
		t.Fatal("IsValidation misclassified")
	}
	if !IsNotFound(nf) || IsNotFound(val) {
		t.Fatal("IsNotFound misclassified")
	}
	if !IsConflict(conf) || IsConflict(st) {
		t.Fatal("IsConflict misclassified")
	}

	// Helpers must see through wrapping.
	wrapped := fmt.Errorf("record withdrawal: %w", val)
	if !IsValidation(wrapped) {
		t.Fatal("IsValidation should unwrap")
	}
	if !errors.Is(st, st.Err) {
		t.Fatal("StorageError should unwrap to its cause")
	}
}

func TestBalanceErrorCarriesRemaining(t *testing.T) {
	rem := decimal.NewFromInt(20000)
	err := NewBalanceError(rem)
	if err.Remaining == nil || !err.Remaining.Equal(rem) {
		t.Fatalf("remaining not carried: %+v", err)
	}
	if err.Field != "amount" {
		t.Fatalf("field = %q", err.Field)
	}
}
