package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/citylibrary/loan-service/internal/core/domain"
	"github.com/citylibrary/loan-service/internal/core/ports"
)

const tracerName = "github.com/citylibrary/loan-service/internal/core/service"

// Outcome labels reported to the observer.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// LoanService orchestrates borrow and return across the loan store, the
// inventory service and the user directory. It holds no per-request state and
// is safe for concurrent use.
type LoanService struct {
	loans       ports.LoanRepository
	adjustments ports.AdjustmentRepository
	inventory   ports.InventoryService
	users       ports.UserDirectory
	observer    ports.LoanObserver
	now         func() time.Time
	tracer      trace.Tracer
	logger      zerolog.Logger
}

// Option configures a LoanService.
type Option func(*LoanService)

// WithObserver sets the receiver of orchestration outcomes.
func WithObserver(o ports.LoanObserver) Option {
	return func(s *LoanService) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithClock overrides the time source used for loan and return dates.
func WithClock(now func() time.Time) Option {
	return func(s *LoanService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewLoanService(
	loans ports.LoanRepository,
	adjustments ports.AdjustmentRepository,
	inventory ports.InventoryService,
	users ports.UserDirectory,
	logger zerolog.Logger,
	opts ...Option,
) *LoanService {
	s := &LoanService{
		loans:       loans,
		adjustments: adjustments,
		inventory:   inventory,
		users:       users,
		observer:    ports.NopObserver{},
		now:         func() time.Time { return time.Now().UTC() },
		tracer:      otel.Tracer(tracerName),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListLoans returns every loan known to the store.
func (s *LoanService) ListLoans(ctx context.Context) ([]*domain.Loan, error) {
	loans, err := s.loans.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	return loans, nil
}

// GetLoan returns a single loan or domain.ErrLoanNotFound.
func (s *LoanService) GetLoan(ctx context.Context, id string) (*domain.Loan, error) {
	loan, err := s.loans.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get loan %s: %w", id, err)
	}
	return loan, nil
}

// ListPendingAdjustments returns inventory changes that were recorded as not applied.
func (s *LoanService) ListPendingAdjustments(ctx context.Context) ([]*domain.PendingAdjustment, error) {
	adjs, err := s.adjustments.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending adjustments: %w", err)
	}
	return adjs, nil
}

// SubmitAction dispatches a borrow or return.
func (s *LoanService) SubmitAction(ctx context.Context, action domain.Action) (*ports.ActionResult, error) {
	if action == nil {
		return nil, fmt.Errorf("submit action: %w", domain.ErrInvalidAction)
	}

	ctx, span := s.tracer.Start(ctx, "LoanService.SubmitAction", trace.WithAttributes(
		attribute.String("loan.action", string(action.Kind())),
	))
	defer span.End()

	var (
		res *ports.ActionResult
		err error
	)
	switch a := action.(type) {
	case domain.BorrowAction:
		res, err = s.borrow(ctx, a)
	case domain.ReturnAction:
		res, err = s.returnLoan(ctx, a)
	default:
		return nil, s.fail(span, fmt.Errorf("submit action: %w", domain.ErrInvalidAction))
	}

	outcome := outcomeOf(err)
	span.SetAttributes(attribute.String("loan.outcome", outcome))
	s.observer.ActionCompleted(action.Kind(), outcome)
	return res, err
}

// borrow runs the checks book → user → duplicate, then creates the loan and
// decrements the inventory. The first failing check wins.
func (s *LoanService) borrow(ctx context.Context, a domain.BorrowAction) (*ports.ActionResult, error) {
	ctx, span := s.tracer.Start(ctx, "LoanService.Borrow", trace.WithAttributes(
		attribute.String("loan.book_id", a.BookID),
		attribute.String("loan.user_id", a.UserID),
	))
	defer span.End()

	// 1. Book must exist and have a copy available.
	avail, err := s.inventory.GetAvailability(ctx, a.BookID)
	if err != nil {
		if !errors.Is(err, domain.ErrBookNotFound) {
			s.logger.Warn().Err(err).Str("book_id", a.BookID).Msg("inventory lookup failed")
		}
		return nil, s.fail(span, fmt.Errorf("borrow book %s: %w", a.BookID, domain.ErrBookUnavailable))
	}
	if avail.AvailableQuantity <= 0 {
		return nil, s.fail(span, fmt.Errorf("borrow book %s: %w", a.BookID, domain.ErrBookUnavailable))
	}

	// 2. User must exist.
	exists, err := s.users.Exists(ctx, a.UserID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", a.UserID).Msg("user directory lookup failed")
	}
	if err != nil || !exists {
		return nil, s.fail(span, fmt.Errorf("borrow book %s: user %s: %w", a.BookID, a.UserID, domain.ErrUserNotFound))
	}

	// 3. No open loan for the same pair.
	open, err := s.loans.FindOpenLoan(ctx, a.BookID, a.UserID)
	switch {
	case err == nil && open != nil:
		return nil, s.fail(span, fmt.Errorf("borrow book %s: user %s: %w", a.BookID, a.UserID, domain.ErrDuplicateBorrow))
	case err != nil && !errors.Is(err, domain.ErrLoanNotFound):
		return nil, s.fail(span, fmt.Errorf("borrow book %s: find open loan: %w", a.BookID, err))
	}

	// 4. Persist.
	created, err := s.loans.Create(ctx, domain.NewLoan(a.BookID, a.UserID, s.now()))
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("borrow book %s: create loan: %w", a.BookID, err))
	}
	span.SetAttributes(attribute.String("loan.id", created.ID))

	// 5. Inventory decrement; never fails the operation.
	synced := s.adjustInventory(ctx, created, domain.BorrowDelta)

	s.logger.Info().
		Str("loan_id", created.ID).
		Str("book_id", created.BookID).
		Str("user_id", created.UserID).
		Bool("inventory_synced", synced).
		Msg("book borrowed")

	return &ports.ActionResult{Loan: created, Created: true, InventorySynced: synced}, nil
}

// returnLoan closes an open loan and increments the inventory.
func (s *LoanService) returnLoan(ctx context.Context, a domain.ReturnAction) (*ports.ActionResult, error) {
	ctx, span := s.tracer.Start(ctx, "LoanService.Return", trace.WithAttributes(
		attribute.String("loan.id", a.LoanID),
	))
	defer span.End()

	loan, err := s.loans.Get(ctx, a.LoanID)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("return loan %s: %w", a.LoanID, err))
	}

	if err := loan.MarkReturned(s.now()); err != nil {
		return nil, s.fail(span, fmt.Errorf("return loan: %w", err))
	}

	updated, err := s.loans.Update(ctx, loan)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("return loan %s: update: %w", a.LoanID, err))
	}

	synced := s.adjustInventory(ctx, updated, domain.ReturnDelta)

	s.logger.Info().
		Str("loan_id", updated.ID).
		Str("book_id", updated.BookID).
		Bool("inventory_synced", synced).
		Msg("book returned")

	return &ports.ActionResult{Loan: updated, Created: false, InventorySynced: synced}, nil
}

// adjustInventory applies delta to the loan's book. On failure the loan change
// stays committed; the divergence is logged, counted and recorded as pending.
func (s *LoanService) adjustInventory(ctx context.Context, loan *domain.Loan, delta int) bool {
	err := s.inventory.AdjustAvailability(ctx, loan.BookID, delta)
	if err == nil {
		return true
	}

	direction := domain.DeltaDirection(delta)
	s.observer.InventoryAdjustFailed(direction)
	s.logger.Warn().
		Err(err).
		Str("loan_id", loan.ID).
		Str("book_id", loan.BookID).
		Int("delta", delta).
		Msg("inventory adjustment failed, loan and inventory diverge")

	adj := &domain.PendingAdjustment{
		LoanID:     loan.ID,
		BookID:     loan.BookID,
		Delta:      delta,
		Reason:     err.Error(),
		RecordedAt: s.now(),
	}
	// The request may already be cancelled; the record must still land.
	if recErr := s.adjustments.Record(context.WithoutCancel(ctx), adj); recErr != nil {
		s.logger.Error().
			Err(recErr).
			Str("loan_id", loan.ID).
			Str("direction", direction).
			Msg("failed to record pending inventory adjustment")
	}
	return false
}

func (s *LoanService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// outcomeOf classifies an action error: domain rejections versus unexpected failures.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSucceeded
	case errors.Is(err, domain.ErrBookUnavailable),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrDuplicateBorrow),
		errors.Is(err, domain.ErrAlreadyReturned),
		errors.Is(err, domain.ErrLoanNotFound),
		errors.Is(err, domain.ErrInvalidAction):
		return OutcomeRejected
	default:
		return OutcomeFailed
	}
}
