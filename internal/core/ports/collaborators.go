package ports

import "context"

// Availability is the inventory view of a single book.
type Availability struct {
	BookID            string
	AvailableQuantity int
}

// InventoryService is the remote owner of book availability counts.
type InventoryService interface {
	// GetAvailability returns domain.ErrBookNotFound when the book does not exist.
	GetAvailability(ctx context.Context, bookID string) (*Availability, error)
	AdjustAvailability(ctx context.Context, bookID string, delta int) error
}

// UserDirectory is the remote owner of user identities.
type UserDirectory interface {
	// Exists reports false, without error, when the user is unknown.
	Exists(ctx context.Context, userID string) (bool, error)
}
