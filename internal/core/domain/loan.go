package domain

import (
	"errors"
	"fmt"
	"time"
)

// LoanStatus represents the lifecycle state of a loan.
type LoanStatus string

const (
	StatusBorrowed LoanStatus = "BORROWED"
	StatusReturned LoanStatus = "RETURNED"
)

// validTransitions defines the allowed state machine transitions.
// RETURNED is terminal.
var validTransitions = map[LoanStatus][]LoanStatus{
	StatusBorrowed: {StatusReturned},
}

var (
	ErrBookUnavailable = errors.New("book not found or not available")
	ErrBookNotFound    = errors.New("book not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrDuplicateBorrow = errors.New("user already has this book borrowed")
	ErrLoanNotFound    = errors.New("loan record not found")
	ErrAlreadyReturned = errors.New("book already returned")
	ErrInvalidAction   = errors.New("invalid loan action type")
)

// CanTransitionTo reports whether a transition from current status to next is valid.
func (s LoanStatus) CanTransitionTo(next LoanStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status.
func (s LoanStatus) Valid() bool {
	return s == StatusBorrowed || s == StatusReturned
}

// Loan records a book borrowed by a user until it is returned.
type Loan struct {
	ID         string     `json:"id"`
	BookID     string     `json:"bookId"`
	UserID     string     `json:"userId"`
	LoanDate   time.Time  `json:"loanDate"`
	ReturnDate *time.Time `json:"returnDate"`
	Status     LoanStatus `json:"status"`
}

// NewLoan returns an open loan for the pair. The ID is left for the store to assign.
func NewLoan(bookID, userID string, at time.Time) *Loan {
	return &Loan{
		BookID:   bookID,
		UserID:   userID,
		LoanDate: at,
		Status:   StatusBorrowed,
	}
}

// IsOpen reports whether the loan has not been returned yet.
func (l *Loan) IsOpen() bool {
	return l.Status == StatusBorrowed
}

// MarkReturned closes the loan at the given time. It fails with
// ErrAlreadyReturned when the loan is no longer open and leaves it untouched.
func (l *Loan) MarkReturned(at time.Time) error {
	if !l.Status.CanTransitionTo(StatusReturned) {
		return fmt.Errorf("loan %s: %w", l.ID, ErrAlreadyReturned)
	}
	returned := at
	l.ReturnDate = &returned
	l.Status = StatusReturned
	return nil
}

// Consistent reports whether ReturnDate and Status agree with each other.
func (l *Loan) Consistent() bool {
	return (l.ReturnDate != nil) == (l.Status == StatusReturned)
}

// Clone returns a deep copy so callers can't mutate stored state.
func (l *Loan) Clone() *Loan {
	c := *l
	if l.ReturnDate != nil {
		rd := *l.ReturnDate
		c.ReturnDate = &rd
	}
	return &c
}
