package domain

import (
	"errors"
	"testing"
	"time"
)

func TestLoanStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to LoanStatus
		want     bool
	}{
		{StatusBorrowed, StatusReturned, true},
		{StatusBorrowed, StatusBorrowed, false},
		{StatusReturned, StatusBorrowed, false},
		{StatusReturned, StatusReturned, false},
		{LoanStatus("LOST"), StatusReturned, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("%s → %s: expected %v, got %v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestLoanStatus_Valid(t *testing.T) {
	if !StatusBorrowed.Valid() || !StatusReturned.Valid() {
		t.Fatal("known statuses must be valid")
	}
	if LoanStatus("borrowed").Valid() {
		t.Fatal("status matching is case-sensitive")
	}
}

func TestNewLoan_IsOpen(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	l := NewLoan("b1", "u1", at)

	if l.ID != "" {
		t.Fatalf("expected empty id before persistence, got %q", l.ID)
	}
	if l.Status != StatusBorrowed || !l.IsOpen() {
		t.Fatalf("expected BORROWED, got %s", l.Status)
	}
	if l.ReturnDate != nil {
		t.Fatal("open loan must not have a return date")
	}
	if !l.LoanDate.Equal(at) {
		t.Fatalf("expected loan date %v, got %v", at, l.LoanDate)
	}
	if !l.Consistent() {
		t.Fatal("new loan must be consistent")
	}
}

func TestLoan_MarkReturned(t *testing.T) {
	l := NewLoan("b1", "u1", time.Now())
	l.ID = "7"
	at := time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC)

	if err := l.MarkReturned(at); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Status != StatusReturned || l.IsOpen() {
		t.Fatalf("expected RETURNED, got %s", l.Status)
	}
	if l.ReturnDate == nil || !l.ReturnDate.Equal(at) {
		t.Fatalf("expected return date %v, got %v", at, l.ReturnDate)
	}
	if !l.Consistent() {
		t.Fatal("returned loan must be consistent")
	}
}

func TestLoan_MarkReturned_Twice(t *testing.T) {
	l := NewLoan("b1", "u1", time.Now())
	first := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	_ = l.MarkReturned(first)

	err := l.MarkReturned(first.Add(time.Hour))
	if !errors.Is(err, ErrAlreadyReturned) {
		t.Fatalf("expected ErrAlreadyReturned, got %v", err)
	}
	if !l.ReturnDate.Equal(first) {
		t.Fatal("second return must not move the return date")
	}
}

func TestLoan_Consistent(t *testing.T) {
	now := time.Now()
	bad := []*Loan{
		{Status: StatusBorrowed, ReturnDate: &now},
		{Status: StatusReturned},
	}
	for _, l := range bad {
		if l.Consistent() {
			t.Errorf("expected inconsistent: %+v", l)
		}
	}
}

func TestLoan_Clone_IsDeep(t *testing.T) {
	now := time.Now()
	l := &Loan{ID: "1", Status: StatusReturned, ReturnDate: &now}
	c := l.Clone()

	*c.ReturnDate = now.Add(time.Hour)
	c.Status = StatusBorrowed

	if !l.ReturnDate.Equal(now) || l.Status != StatusReturned {
		t.Fatal("mutating the clone changed the original")
	}
}

func TestDeltaDirection(t *testing.T) {
	if got := DeltaDirection(BorrowDelta); got != "decrement" {
		t.Fatalf("expected decrement, got %s", got)
	}
	if got := DeltaDirection(ReturnDelta); got != "increment" {
		t.Fatalf("expected increment, got %s", got)
	}
	adj := &PendingAdjustment{Delta: -1}
	if adj.Direction() != "decrement" {
		t.Fatalf("expected decrement, got %s", adj.Direction())
	}
}
