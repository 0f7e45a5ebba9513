package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/citylibrary/loan-service/internal/core/ports"
)

// HeaderInventoryAdjustment is set to "pending" when the loan change was
// committed but the inventory count was not updated.
const HeaderInventoryAdjustment = "X-Inventory-Adjustment"

// LoanHandler handles HTTP requests for loan operations. Errors are returned
// to Echo and rendered by the central error handler.
type LoanHandler struct {
	service ports.LoanService
}

func NewLoanHandler(service ports.LoanService) *LoanHandler {
	return &LoanHandler{service: service}
}

// List handles GET /api/loans.
//
// @Summary      List all loans
// @Tags         loans
// @Produce      json
// @Success      200  {array}   loanResponse
// @Failure      500  {object}  errorResponse
// @Router       /api/loans [get]
func (h *LoanHandler) List(c echo.Context) error {
	loans, err := h.service.ListLoans(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toLoanListResponse(loans))
}

// Get handles GET /api/loans/:id.
//
// @Summary      Get a loan by id
// @Tags         loans
// @Produce      json
// @Param        id   path      string  true  "Loan id"
// @Success      200  {object}  loanResponse
// @Failure      404  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /api/loans/{id} [get]
func (h *LoanHandler) Get(c echo.Context) error {
	loan, err := h.service.GetLoan(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toLoanResponse(loan))
}

// Submit handles POST /api/loans.
//
// @Summary      Borrow or return a book
// @Description  {"type":"borrow","bookId":..,"userId":..} opens a loan (201).
// @Description  {"type":"return","loanId":..} closes it (200).
// @Tags         loans
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header    string         false  "Replays the first successful response for the same request"
// @Param        body             body      actionRequest  true   "Loan action"
// @Success      200              {object}  loanResponse
// @Success      201              {object}  loanResponse
// @Failure      400              {object}  errorResponse
// @Failure      404              {object}  errorResponse
// @Failure      409              {object}  errorResponse
// @Failure      422              {object}  errorResponse  "Idempotency-Key reused for a different request"
// @Failure      500              {object}  errorResponse
// @Router       /api/loans [post]
func (h *LoanHandler) Submit(c echo.Context) error {
	var req actionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	action, err := toAction(req)
	if err != nil {
		return err
	}

	res, err := h.service.SubmitAction(c.Request().Context(), action)
	if err != nil {
		return err
	}

	if !res.InventorySynced {
		c.Response().Header().Set(HeaderInventoryAdjustment, "pending")
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	return c.JSON(status, toLoanResponse(res.Loan))
}

// ListAdjustments handles GET /api/loans/adjustments.
//
// @Summary      List inventory adjustments that could not be applied
// @Tags         loans
// @Produce      json
// @Success      200  {array}   pendingAdjustmentResponse
// @Failure      500  {object}  errorResponse
// @Router       /api/loans/adjustments [get]
func (h *LoanHandler) ListAdjustments(c echo.Context) error {
	adjs, err := h.service.ListPendingAdjustments(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAdjustmentListResponse(adjs))
}

// Health handles GET /api/loans/health.
//
// @Summary      Loan API liveness
// @Tags         health
// @Produce      plain
// @Success      200  {string}  string  "OK"
// @Router       /api/loans/health [get]
func (h *LoanHandler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}
