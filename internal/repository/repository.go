package repository

import (
	"context"

	"storefront/internal/model"

	"github.com/shopspring/decimal"
)

// ProductRepository defines the read-only catalogue access used by the core.
type ProductRepository interface {
	// List returns one page of products ordered by name, optionally
	// restricted to a category.
	List(ctx context.Context, q model.ProductQuery) ([]model.Product, error)

	// GetByID retrieves a single product by its ID.
	// Returns nil, nil when the product does not exist.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// GetByIDs retrieves multiple products by their IDs.
	GetByIDs(ctx context.Context, ids []string) ([]model.Product, error)
}

// CartRepository stores cart lines, one per (user, product).
// All mutations are single-document atomic operations.
type CartRepository interface {
	// AddQuantity increments the line for (userID, productID) by delta, creating
	// it with unitPrice when absent. Returns the resulting line.
	AddQuantity(ctx context.Context, userID, productID string, delta int, unitPrice decimal.Decimal) (*model.CartLine, error)

	// SetQuantity overwrites the quantity of a line owned by userID.
	// Returns model.ErrLineNotFound when userID owns no such line.
	SetQuantity(ctx context.Context, userID, lineID string, quantity int) (*model.CartLine, error)

	// Delete removes a line owned by userID. Deleting a line that no longer
	// exists succeeds; deleting another user's line returns model.ErrLineNotFound.
	Delete(ctx context.Context, userID, lineID string) error

	// DeleteAll removes every line of userID and reports how many were removed.
	DeleteAll(ctx context.Context, userID string) (int64, error)

	// ListByUser returns the user's lines in insertion order.
	ListByUser(ctx context.Context, userID string) ([]model.CartLine, error)

	// FindByProduct returns the user's line for productID, or nil when absent.
	FindByProduct(ctx context.Context, userID, productID string) (*model.CartLine, error)

	// CountLines returns the number of distinct lines in the cart.
	CountLines(ctx context.Context, userID string) (int64, error)

	// CountItems returns the sum of quantities in the cart.
	CountItems(ctx context.Context, userID string) (int, error)
}

// InsertOutcome tags the result of recording an order.
type InsertOutcome int

const (
	// OrderInserted means a new row was written.
	OrderInserted InsertOutcome = iota + 1
	// OrderAlreadyExists means an order with the same session id was already recorded.
	OrderAlreadyExists
)

func (o InsertOutcome) String() string {
	switch o {
	case OrderInserted:
		return "inserted"
	case OrderAlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// Create records an order. A session id that is already recorded yields
	// OrderAlreadyExists with a nil error; any other failure is returned as an error.
	Create(ctx context.Context, order *model.Order) (InsertOutcome, error)

	// GetBySessionID retrieves the order recorded for a payment session.
	// Returns nil, nil when no order exists.
	GetBySessionID(ctx context.Context, sessionID string) (*model.Order, error)

	// ListByUser returns a user's orders, newest first.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Order, error)

	// ListAll returns every order, newest first.
	ListAll(ctx context.Context, limit, offset int) ([]model.Order, error)

	// Stats aggregates order count and revenue.
	Stats(ctx context.Context) (*model.OrderStats, error)
}
