package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"
	"storefront/internal/payment"
	"storefront/internal/pricing"
	"storefront/internal/settings"

	"github.com/rs/zerolog"
)

// CheckoutOptions holds the fixed parameters of every session.
type CheckoutOptions struct {
	Currency  string
	ReturnURL string
	Label     string
}

// checkoutService implements CheckoutService.
type checkoutService struct {
	cart     CartService
	settings settings.Provider
	gateway  payment.Gateway
	opts     CheckoutOptions
	logger   zerolog.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	cart CartService,
	settingsProvider settings.Provider,
	gateway payment.Gateway,
	opts CheckoutOptions,
	logger zerolog.Logger,
) CheckoutService {
	return &checkoutService{
		cart:     cart,
		settings: settingsProvider,
		gateway:  gateway,
		opts:     opts,
		logger:   logger.With().Str("service", "checkout").Logger(),
	}
}

func (s *checkoutService) Checkout(ctx context.Context, userID string) (*model.CheckoutResponse, error) {
	snap, err := s.cart.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	if snap.TotalItems == 0 {
		return nil, model.ErrEmptyCart
	}

	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	totals := pricing.ComputeTotal(snap.TotalPrice, cfg)

	session, err := s.gateway.CreateSession(ctx, payment.CreateSessionParams{
		AmountMinor: pricing.MinorUnits(totals.GrandTotal),
		Currency:    s.opts.Currency,
		UserID:      userID,
		ReturnURL:   s.opts.ReturnURL,
		Label:       s.opts.Label,
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", userID).
			Str("grand_total", totals.GrandTotal.String()).
			Msg("failed to open payment session")

		var de *model.DomainError
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, model.ErrGateway.Wrap(err)
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("session_id", session.ID).
		Int("items", snap.TotalItems).
		Str("grand_total", totals.GrandTotal.String()).
		Msg("checkout session opened")

	return &model.CheckoutResponse{
		SessionID:   session.ID,
		ClientToken: session.ClientToken,
		Totals:      totals,
	}, nil
}
