package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the durable record of a settled payment session.
type Order struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	SessionID     string          `json:"sessionId" db:"session_id"`
	UserID        string          `json:"userId" db:"user_id"`
	CustomerEmail string          `json:"customerEmail" db:"customer_email"`
	CustomerName  string          `json:"customerName" db:"customer_name"`
	TotalAmount   decimal.Decimal `json:"totalAmount" db:"total_amount"`
	Currency      string          `json:"currency" db:"currency"`
	Region        string          `json:"region" db:"region"`
	ProductIDs    []string        `json:"productIds" db:"product_ids"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
}

// OrderStats aggregates settled orders for the admin dashboard.
type OrderStats struct {
	OrderCount int64           `json:"orderCount"`
	Revenue    decimal.Decimal `json:"revenue"`
}

// CheckoutResponse is returned when a payment session is opened.
type CheckoutResponse struct {
	SessionID   string `json:"sessionId"`
	ClientToken string `json:"clientToken"`
	Totals      Totals `json:"totals"`
}

// OrderEvent is published once an order has been recorded.
type OrderEvent struct {
	Type          string          `json:"type"`
	OrderID       uuid.UUID       `json:"orderId"`
	SessionID     string          `json:"sessionId"`
	UserID        string          `json:"userId"`
	CustomerEmail string          `json:"customerEmail"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	Currency      string          `json:"currency"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

// OrderEventSettled is the type of event emitted on settlement.
const OrderEventSettled = "order.settled"

// OrderResponse is an order together with the catalogue entries it references.
// Products no longer in the catalogue are omitted.
type OrderResponse struct {
	Order
	Products []Product `json:"products"`
}
