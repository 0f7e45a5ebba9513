package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/citylibrary/loan-service/internal/core/domain"
)

func TestHTTPErrorHandler_Mapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"book unavailable", fmt.Errorf("borrow: %w", domain.ErrBookUnavailable), http.StatusBadRequest, "Book not found or not available."},
		{"user missing", fmt.Errorf("borrow: %w", domain.ErrUserNotFound), http.StatusBadRequest, "User not found."},
		{"duplicate", fmt.Errorf("borrow: %w", domain.ErrDuplicateBorrow), http.StatusConflict, "User already has this book borrowed."},
		{"loan missing", fmt.Errorf("return: %w", domain.ErrLoanNotFound), http.StatusNotFound, "Loan record not found."},
		{"already returned", fmt.Errorf("return: %w", domain.ErrAlreadyReturned), http.StatusBadRequest, "Book already returned."},
		{"invalid action", fmt.Errorf("%w: %q", domain.ErrInvalidAction, "renew"), http.StatusBadRequest, "Invalid loan action type"},
		{"echo error", echo.NewHTTPError(http.StatusMethodNotAllowed, "method not allowed"), http.StatusMethodNotAllowed, "method not allowed"},
		{"unexpected", errors.New("mongo: connection reset"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodPost, "/api/loans", nil), rec)

			NewHTTPErrorHandler(zerolog.Nop())(tc.err, c)

			if rec.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, rec.Code)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if body.Error != tc.wantMsg {
				t.Fatalf("expected %q, got %q", tc.wantMsg, body.Error)
			}
		})
	}
}

func TestHTTPErrorHandler_CommittedResponseUntouched(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	_ = c.String(http.StatusOK, "done")

	NewHTTPErrorHandler(zerolog.Nop())(errors.New("late"), c)

	if rec.Code != http.StatusOK || rec.Body.String() != "done" {
		t.Fatalf("committed response was modified: %d %q", rec.Code, rec.Body.String())
	}
}
