package handler

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request / Response types ---

// flexibleID accepts an identifier sent either as a JSON integer or a string.
type flexibleID string

func (id *flexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0, bytes.Equal(b, []byte("null")):
		*id = ""
		return nil
	case b[0] == '"':
		var s string
		if err := jsoniter.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = flexibleID(s)
		return nil
	default:
		n, ok := integerNumber(b)
		if !ok {
			return fmt.Errorf("identifier must be an integer or a string, got %s", b)
		}
		*id = flexibleID(strconv.FormatInt(n, 10))
		return nil
	}
}

// integerNumber accepts any JSON number with an exact integer value, so 101,
// 101.0 and 1.01e2 all yield 101.
func integerNumber(b []byte) (int64, bool) {
	if b[0] != '-' && (b[0] < '0' || b[0] > '9') {
		return 0, false
	}
	var num jsoniter.Number
	if err := jsoniter.Unmarshal(b, &num); err != nil {
		return 0, false
	}
	if n, err := num.Int64(); err == nil {
		return n, true
	}
	f, err := num.Float64()
	if err != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// actionRequest is the body of POST /api/loans.
type actionRequest struct {
	Type   string     `json:"type"   validate:"max=16"`
	BookID flexibleID `json:"bookId" validate:"max=64"`
	UserID flexibleID `json:"userId" validate:"max=64"`
	LoanID flexibleID `json:"loanId" validate:"max=64"`
}

// loanResponse is the wire form of a loan. ReturnDate is null while open.
type loanResponse struct {
	ID         string     `json:"id"`
	BookID     string     `json:"bookId"`
	UserID     string     `json:"userId"`
	LoanDate   time.Time  `json:"loanDate"`
	ReturnDate *time.Time `json:"returnDate"`
	Status     string     `json:"status"`
}

type pendingAdjustmentResponse struct {
	ID         string    `json:"id"`
	LoanID     string    `json:"loanId"`
	BookID     string    `json:"bookId"`
	Delta      int       `json:"delta"`
	Direction  string    `json:"direction"`
	Reason     string    `json:"reason"`
	RecordedAt time.Time `json:"recordedAt"`
}
