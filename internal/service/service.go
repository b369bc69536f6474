package service

import (
	"context"
	"net/http"

	"storefront/internal/model"
)

// ProductService defines read access to the catalogue.
type ProductService interface {
	// List returns one page of the catalogue. Out-of-range limits and offsets
	// are clamped rather than rejected.
	List(ctx context.Context, q model.ProductQuery) ([]model.Product, error)

	// GetByID retrieves a single product by ID.
	// Returns model.ErrProductNotFound when it does not exist.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// GetByIDs retrieves multiple products by their IDs.
	GetByIDs(ctx context.Context, ids []string) ([]model.Product, error)
}

// CartService maintains one line per product per user.
type CartService interface {
	// AddItem adds delta units of a product, creating the line at the current
	// catalogue price when absent.
	AddItem(ctx context.Context, userID, productID string, delta int) (*model.CartLine, error)

	// SetQuantity overwrites a line's quantity. A quantity of zero or less
	// removes the line and returns a nil line.
	SetQuantity(ctx context.Context, userID, lineID string, quantity int) (*model.CartLine, error)

	// RemoveItem deletes a line. Removing an absent line succeeds.
	RemoveItem(ctx context.Context, userID, lineID string) error

	// Clear deletes every line of the user.
	Clear(ctx context.Context, userID string) error

	// Snapshot returns the user's lines and their aggregates.
	Snapshot(ctx context.Context, userID string) (*model.CartSnapshot, error)

	// Count returns the total number of items in the cart.
	Count(ctx context.Context, userID string) (int, error)

	// Summary returns the snapshot priced with the current settings.
	Summary(ctx context.Context, userID string) (*model.CartSummary, error)
}

// CheckoutService opens payment sessions for carts.
type CheckoutService interface {
	// Checkout prices the user's cart and opens a gateway session for it.
	// Nothing is persisted locally.
	Checkout(ctx context.Context, userID string) (*model.CheckoutResponse, error)
}

// SettlementOutcome tags what a webhook delivery did.
type SettlementOutcome int

const (
	// Settled means a new order was recorded and the cart cleared.
	Settled SettlementOutcome = iota + 1
	// AlreadySettled means the session had an order already; the cart was cleared again.
	AlreadySettled
	// Ignored means the event was acknowledged without changing state.
	Ignored
)

func (o SettlementOutcome) String() string {
	switch o {
	case Settled:
		return "settled"
	case AlreadySettled:
		return "already_settled"
	case Ignored:
		return "ignored"
	default:
		return "unknown"
	}
}

// SettlementResult describes a processed webhook delivery.
type SettlementResult struct {
	Outcome   SettlementOutcome
	EventID   string
	SessionID string
	Reason    string // why an event was ignored
}

// SettlementService turns payment notifications into orders.
type SettlementService interface {
	// Settle verifies and processes one webhook delivery. Returned errors
	// carrying model.ErrSignature or a validation code are permanent; any
	// other error should be retried by the gateway.
	Settle(ctx context.Context, payload []byte, headers http.Header) (*SettlementResult, error)
}

// OrderService defines read operations on recorded orders.
type OrderService interface {
	// ListForUser returns the caller's orders, newest first.
	ListForUser(ctx context.Context, userID string, limit, offset int) ([]model.Order, error)

	// GetBySession returns the caller's order for a payment session with its products.
	GetBySession(ctx context.Context, userID, sessionID string) (*model.OrderResponse, error)

	// ListAll returns every order, newest first.
	ListAll(ctx context.Context, limit, offset int) ([]model.Order, error)

	// Stats returns aggregate order figures.
	Stats(ctx context.Context) (*model.OrderStats, error)
}

// clampPage applies the listing limits shared by every paginated read.
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
