package domain

import "time"

const (
	BorrowDelta = -1
	ReturnDelta = 1
)

// PendingAdjustment records an inventory change that was not applied after the
// loan record had already been committed.
type PendingAdjustment struct {
	ID         string    `json:"id"`
	LoanID     string    `json:"loanId"`
	BookID     string    `json:"bookId"`
	Delta      int       `json:"delta"`
	Reason     string    `json:"reason"`
	RecordedAt time.Time `json:"recordedAt"`
}

// Direction labels the adjustment for logs and metrics.
func (a *PendingAdjustment) Direction() string {
	return DeltaDirection(a.Delta)
}

// DeltaDirection returns "decrement" for negative deltas and "increment" otherwise.
func DeltaDirection(delta int) string {
	if delta < 0 {
		return "decrement"
	}
	return "increment"
}
