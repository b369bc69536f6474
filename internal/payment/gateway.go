// Package payment talks to the external payment gateway: it opens checkout
// sessions, re-reads them at settlement and verifies inbound webhooks.
package payment

import (
	"context"

	"storefront/internal/model"
)

// MetadataUserID is the session metadata key that links a payment to a cart owner.
const MetadataUserID = "userId"

// PaymentStatusPaid is the only session payment status that settles an order.
const PaymentStatusPaid = "paid"

// CreateSessionParams describes one checkout session.
type CreateSessionParams struct {
	AmountMinor int64 // grand total in minor units
	Currency    string
	UserID      string
	ReturnURL   string
	Label       string
}

// Session is the handle returned when a checkout session is opened.
type Session struct {
	ID          string
	ClientToken string
}

// SessionDetails is the canonical state of a session as held by the gateway.
type SessionDetails struct {
	ID            string
	AmountTotal   int64
	Currency      string
	PaymentStatus string
	CustomerEmail string
	CustomerName  string
	Region        string
	UserID        string
}

// Gateway opens and reads checkout sessions.
type Gateway interface {
	CreateSession(ctx context.Context, params CreateSessionParams) (*Session, error)
	RetrieveSession(ctx context.Context, sessionID string) (*SessionDetails, error)
}

// unconfiguredGateway refuses every call. It stands in when no secret key is set.
type unconfiguredGateway struct{}

// NewUnconfiguredGateway returns a Gateway that fails with model.ErrGatewayNotConfigured.
func NewUnconfiguredGateway() Gateway {
	return unconfiguredGateway{}
}

func (unconfiguredGateway) CreateSession(context.Context, CreateSessionParams) (*Session, error) {
	return nil, model.ErrGatewayNotConfigured
}

func (unconfiguredGateway) RetrieveSession(context.Context, string) (*SessionDetails, error) {
	return nil, model.ErrGatewayNotConfigured
}
