package domain

import (
	"fmt"
	"strings"
)

// ActionKind tags a loan action.
type ActionKind string

const (
	ActionBorrow ActionKind = "borrow"
	ActionReturn ActionKind = "return"
)

// Action is the closed set of requests the loan orchestrator accepts.
// Only BorrowAction and ReturnAction implement it.
type Action interface {
	Kind() ActionKind
	isAction()
}

// BorrowAction asks to open a loan of BookID for UserID.
type BorrowAction struct {
	BookID string
	UserID string
}

func (BorrowAction) Kind() ActionKind { return ActionBorrow }
func (BorrowAction) isAction()        {}

// ReturnAction asks to close the loan identified by LoanID.
type ReturnAction struct {
	LoanID string
}

func (ReturnAction) Kind() ActionKind { return ActionReturn }
func (ReturnAction) isAction()        {}

// ParseAction builds an Action from its wire form. The kind is matched
// case-insensitively; unknown kinds and missing identifiers yield ErrInvalidAction.
func ParseAction(kind, bookID, userID, loanID string) (Action, error) {
	switch ActionKind(strings.ToLower(strings.TrimSpace(kind))) {
	case ActionBorrow:
		if bookID == "" || userID == "" {
			return nil, fmt.Errorf("%w: borrow requires bookId and userId", ErrInvalidAction)
		}
		return BorrowAction{BookID: bookID, UserID: userID}, nil
	case ActionReturn:
		if loanID == "" {
			return nil, fmt.Errorf("%w: return requires loanId", ErrInvalidAction)
		}
		return ReturnAction{LoanID: loanID}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, kind)
	}
}
