// Package memory provides process-local implementations of the storage ports.
// They back STORE_DRIVER=memory and the test suites.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/citylibrary/loan-service/internal/core/domain"
)

type pairKey struct {
	bookID string
	userID string
}

// LoanRepository keeps loans in a map guarded by a mutex. Create enforces the
// one-open-loan-per-pair rule atomically.
type LoanRepository struct {
	mu    sync.RWMutex
	seq   int64
	byID  map[string]*domain.Loan
	open  map[pairKey]string
	order []string
}

func NewLoanRepository() *LoanRepository {
	return &LoanRepository{
		byID: make(map[string]*domain.Loan),
		open: make(map[pairKey]string),
	}
}

// Create assigns a sequential numeric ID.
func (r *LoanRepository) Create(_ context.Context, loan *domain.Loan) (*domain.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey{loan.BookID, loan.UserID}
	if loan.IsOpen() {
		if _, taken := r.open[key]; taken {
			return nil, domain.ErrDuplicateBorrow
		}
	}

	r.seq++
	stored := loan.Clone()
	stored.ID = strconv.FormatInt(r.seq, 10)
	r.byID[stored.ID] = stored
	r.order = append(r.order, stored.ID)
	if stored.IsOpen() {
		r.open[key] = stored.ID
	}
	return stored.Clone(), nil
}

func (r *LoanRepository) Get(_ context.Context, id string) (*domain.Loan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	loan, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	return loan.Clone(), nil
}

// Update replaces the stored loan while it is still open.
func (r *LoanRepository) Update(_ context.Context, loan *domain.Loan) (*domain.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[loan.ID]
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	if !current.IsOpen() {
		return nil, domain.ErrAlreadyReturned
	}

	stored := loan.Clone()
	r.byID[stored.ID] = stored
	if !stored.IsOpen() {
		delete(r.open, pairKey{current.BookID, current.UserID})
	}
	return stored.Clone(), nil
}

// List returns loans ordered by loan date; creation order breaks ties.
func (r *LoanRepository) List(_ context.Context) ([]*domain.Loan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Loan, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id].Clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LoanDate.Before(out[j].LoanDate) })
	return out, nil
}

func (r *LoanRepository) FindOpenLoan(_ context.Context, bookID, userID string) (*domain.Loan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.open[pairKey{bookID, userID}]
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	return r.byID[id].Clone(), nil
}

// AdjustmentRepository is an append-only list of pending adjustments.
type AdjustmentRepository struct {
	mu    sync.Mutex
	items []*domain.PendingAdjustment
}

func NewAdjustmentRepository() *AdjustmentRepository {
	return &AdjustmentRepository{}
}

func (r *AdjustmentRepository) Record(_ context.Context, adj *domain.PendingAdjustment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := *adj
	c.ID = strconv.Itoa(len(r.items) + 1)
	r.items = append(r.items, &c)
	return nil
}

// ListPending returns the recorded adjustments, oldest first.
func (r *AdjustmentRepository) ListPending(_ context.Context) ([]*domain.PendingAdjustment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.PendingAdjustment, len(r.items))
	for i, a := range r.items {
		c := *a
		out[i] = &c
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}
