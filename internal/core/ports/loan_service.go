package ports

import (
	"context"

	"github.com/citylibrary/loan-service/internal/core/domain"
)

// ActionResult is returned by SubmitAction.
type ActionResult struct {
	Loan *domain.Loan
	// Created is true for a borrow, false for a return.
	Created bool
	// InventorySynced is false when the inventory adjustment failed after the
	// loan change was committed.
	InventorySynced bool
}

// LoanService defines use-case operations for loans.
type LoanService interface {
	ListLoans(ctx context.Context) ([]*domain.Loan, error)
	GetLoan(ctx context.Context, id string) (*domain.Loan, error)
	SubmitAction(ctx context.Context, action domain.Action) (*ActionResult, error)
	ListPendingAdjustments(ctx context.Context) ([]*domain.PendingAdjustment, error)
}

// LoanObserver receives orchestration outcomes, typically for metrics.
type LoanObserver interface {
	ActionCompleted(kind domain.ActionKind, outcome string)
	InventoryAdjustFailed(direction string)
}

// NopObserver discards every notification.
type NopObserver struct{}

func (NopObserver) ActionCompleted(domain.ActionKind, string) {}
func (NopObserver) InventoryAdjustFailed(string)              {}
