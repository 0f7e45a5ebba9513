package handler

import (
	"github.com/citylibrary/loan-service/internal/core/domain"
)

// --- Request → domain action ---

func toAction(req actionRequest) (domain.Action, error) {
	return domain.ParseAction(req.Type, string(req.BookID), string(req.UserID), string(req.LoanID))
}

// --- Domain → HTTP response ---

func toLoanResponse(l *domain.Loan) loanResponse {
	resp := loanResponse{
		ID:       l.ID,
		BookID:   l.BookID,
		UserID:   l.UserID,
		LoanDate: l.LoanDate.UTC(),
		Status:   string(l.Status),
	}
	if l.ReturnDate != nil {
		rd := l.ReturnDate.UTC()
		resp.ReturnDate = &rd
	}
	return resp
}

func toLoanListResponse(loans []*domain.Loan) []loanResponse {
	out := make([]loanResponse, len(loans))
	for i, l := range loans {
		out[i] = toLoanResponse(l)
	}
	return out
}

func toAdjustmentListResponse(adjs []*domain.PendingAdjustment) []pendingAdjustmentResponse {
	out := make([]pendingAdjustmentResponse, len(adjs))
	for i, a := range adjs {
		out[i] = pendingAdjustmentResponse{
			ID:         a.ID,
			LoanID:     a.LoanID,
			BookID:     a.BookID,
			Delta:      a.Delta,
			Direction:  a.Direction(),
			Reason:     a.Reason,
			RecordedAt: a.RecordedAt.UTC(),
		}
	}
	return out
}
