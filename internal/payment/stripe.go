package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"storefront/internal/model"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// stripeGateway implements Gateway with Stripe embedded checkout sessions.
type stripeGateway struct {
	api    *client.API
	logger zerolog.Logger
}

// NewStripeGateway creates a Gateway for the given secret key. backends may be
// nil to use the live Stripe endpoints.
func NewStripeGateway(secretKey string, backends *stripe.Backends, logger zerolog.Logger) Gateway {
	return &stripeGateway{
		api:    client.New(secretKey, backends),
		logger: logger.With().Str("gateway", "stripe").Logger(),
	}
}

// CreateSession opens an embedded checkout session for a single priced line.
func (g *stripeGateway) CreateSession(ctx context.Context, p CreateSessionParams) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Params:    stripe.Params{Context: ctx},
		UIMode:    stripe.String(string(stripe.CheckoutSessionUIModeEmbedded)),
		Mode:      stripe.String(string(stripe.CheckoutSessionModePayment)),
		ReturnURL: stripe.String(p.ReturnURL),
		// Card payments are paid by the time the session completes.
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(p.Currency),
					UnitAmount: stripe.Int64(p.AmountMinor),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(p.Label),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{MetadataUserID: p.UserID},
	}

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		g.logger.Error().
			Err(err).
			Str("user_id", p.UserID).
			Int64("amount", p.AmountMinor).
			Msg("failed to create checkout session")
		return nil, model.ErrGateway.Wrap(fmt.Errorf("create session: %w", err))
	}

	g.logger.Info().
		Str("session_id", s.ID).
		Str("user_id", p.UserID).
		Int64("amount", p.AmountMinor).
		Msg("checkout session created")

	return &Session{ID: s.ID, ClientToken: s.ClientSecret}, nil
}

// RetrieveSession reads the canonical session state.
func (g *stripeGateway) RetrieveSession(ctx context.Context, sessionID string) (*SessionDetails, error) {
	params := &stripe.CheckoutSessionParams{Params: stripe.Params{Context: ctx}}

	s, err := g.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		g.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to retrieve checkout session")
		return nil, model.ErrGateway.Wrap(fmt.Errorf("retrieve session %s: %w", sessionID, err))
	}

	details := &SessionDetails{
		ID:            s.ID,
		AmountTotal:   s.AmountTotal,
		Currency:      string(s.Currency),
		PaymentStatus: string(s.PaymentStatus),
		UserID:        s.Metadata[MetadataUserID],
	}
	if cd := s.CustomerDetails; cd != nil {
		details.CustomerEmail = cd.Email
		details.CustomerName = cd.Name
		if cd.Address != nil {
			details.Region = cd.Address.Country
		}
	}

	return details, nil
}

// clientError reports whether err is a gateway rejection of this request
// (4xx other than rate limiting), as opposed to the gateway being unavailable.
func clientError(err error) bool {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return false
	}
	if se.HTTPStatusCode == http.StatusTooManyRequests {
		return false
	}
	return se.HTTPStatusCode >= http.StatusBadRequest && se.HTTPStatusCode < http.StatusInternalServerError
}
