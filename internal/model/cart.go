package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is one (user, product) row in a cart. UnitPrice is captured when
// the line is created and never follows later catalogue changes.
type CartLine struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// LineTotal returns quantity × unit price.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartSnapshot is a point-in-time view of a user's cart.
type CartSnapshot struct {
	UserID     string          `json:"userId"`
	Lines      []CartLine      `json:"lines"`
	TotalItems int             `json:"totalItems"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// NewCartSnapshot builds a snapshot and its aggregates from lines.
func NewCartSnapshot(userID string, lines []CartLine) *CartSnapshot {
	if lines == nil {
		lines = []CartLine{}
	}
	snap := &CartSnapshot{
		UserID:     userID,
		Lines:      lines,
		TotalPrice: decimal.Zero,
	}
	for _, line := range lines {
		snap.TotalItems += line.Quantity
		snap.TotalPrice = snap.TotalPrice.Add(line.LineTotal())
	}
	return snap
}

// ProductIDs returns the product id of every line, in line order.
func (s *CartSnapshot) ProductIDs() []string {
	ids := make([]string, len(s.Lines))
	for i, line := range s.Lines {
		ids[i] = line.ProductID
	}
	return ids
}

// AddItemRequest represents the request payload for adding a product to the cart.
type AddItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity,omitempty"`
}

// SetQuantityRequest represents the request payload for overwriting a line's quantity.
type SetQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

// CartCountResponse is returned by the cart badge endpoint.
type CartCountResponse struct {
	TotalItems int `json:"totalItems"`
}

// CartSummary is the cart preview: snapshot plus the amounts checkout would charge.
type CartSummary struct {
	Cart   *CartSnapshot `json:"cart"`
	Totals Totals        `json:"totals"`
}
