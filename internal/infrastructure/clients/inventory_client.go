package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/citylibrary/loan-service/internal/core/domain"
	"github.com/citylibrary/loan-service/internal/core/ports"
)

// bookPayload is the part of the book resource the loan service reads.
type bookPayload struct {
	AvailableQuantity *int `json:"availableQuantity"`
}

// InventoryClient talks to the book service.
//
//	GET {base}/{bookId}                          → 200 {"availableQuantity": n} | 404
//	PUT {base}/{bookId}/available?change={delta} → 2xx
type InventoryClient struct {
	remote
}

func NewInventoryClient(baseURL string, timeout time.Duration) *InventoryClient {
	return &InventoryClient{remote: newRemote("inventory", baseURL, timeout)}
}

func (c *InventoryClient) GetAvailability(ctx context.Context, bookID string) (*ports.Availability, error) {
	target := fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(bookID))

	resp, finish, err := c.do(ctx, "get_availability", http.MethodGet, target)
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		finish(resultNotFound, nil)
		return nil, fmt.Errorf("book %s: %w", bookID, domain.ErrBookNotFound)
	case resp.StatusCode != http.StatusOK:
		err := fmt.Errorf("inventory get_availability: unexpected status %d", resp.StatusCode)
		finish(resultError, err)
		return nil, err
	}

	var body bookPayload
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		err = fmt.Errorf("inventory get_availability: decode: %w", err)
		finish(resultError, err)
		return nil, err
	}
	if body.AvailableQuantity == nil {
		err := fmt.Errorf("inventory get_availability: availableQuantity missing")
		finish(resultError, err)
		return nil, err
	}

	finish(resultOK, nil)
	return &ports.Availability{BookID: bookID, AvailableQuantity: *body.AvailableQuantity}, nil
}

func (c *InventoryClient) AdjustAvailability(ctx context.Context, bookID string, delta int) error {
	target := fmt.Sprintf("%s/%s/available?change=%d", c.baseURL, url.PathEscape(bookID), delta)

	resp, finish, err := c.do(ctx, "adjust_availability", http.MethodPut, target)
	if err != nil {
		return err
	}
	defer drain(resp)

	if !isSuccess(resp.StatusCode) {
		err := fmt.Errorf("inventory adjust_availability: unexpected status %d", resp.StatusCode)
		finish(resultError, err)
		return err
	}
	finish(resultOK, nil)
	return nil
}
