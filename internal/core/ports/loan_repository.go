package ports

import (
	"context"

	"github.com/citylibrary/loan-service/internal/core/domain"
)

// LoanRepository defines persistence operations for loans.
// Lookups that find nothing return domain.ErrLoanNotFound.
type LoanRepository interface {
	// Create persists a new loan and returns it with its assigned ID.
	// Implementations report a second open loan for the same pair as
	// domain.ErrDuplicateBorrow.
	Create(ctx context.Context, loan *domain.Loan) (*domain.Loan, error)
	Get(ctx context.Context, id string) (*domain.Loan, error)
	// Update writes the loan back only while the stored record is still open;
	// otherwise it returns domain.ErrAlreadyReturned.
	Update(ctx context.Context, loan *domain.Loan) (*domain.Loan, error)
	List(ctx context.Context) ([]*domain.Loan, error)
	// FindOpenLoan returns the BORROWED loan for the pair, if any.
	FindOpenLoan(ctx context.Context, bookID, userID string) (*domain.Loan, error)
}

// AdjustmentRepository keeps inventory adjustments that could not be applied.
type AdjustmentRepository interface {
	Record(ctx context.Context, adj *domain.PendingAdjustment) error
	ListPending(ctx context.Context) ([]*domain.PendingAdjustment, error)
}
