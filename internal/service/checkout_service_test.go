package service

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/model"
	"storefront/internal/payment"
	"storefront/internal/settings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testCheckoutOptions = CheckoutOptions{
	Currency:  "usd",
	ReturnURL: "https://shop.test/return?session_id={CHECKOUT_SESSION_ID}",
	Label:     "Storefront order",
}

func newTestCheckoutService(cartRepo *MockCartRepository, gateway payment.Gateway) CheckoutService {
	provider := settings.NewStaticProvider(testSettings())
	cart := NewCartService(cartRepo, new(MockProductRepository), provider, zerolog.Nop())
	return NewCheckoutService(cart, provider, gateway, testCheckoutOptions, zerolog.Nop())
}

func TestCheckoutService_Checkout(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		lines         []model.CartLine
		expectedMinor int64
		expectedTotal string
	}{
		{
			name:          "below free shipping threshold",
			lines:         []model.CartLine{{ProductID: "P001", Quantity: 4, UnitPrice: decimal.RequireFromString("10.00")}},
			expectedMinor: 4939,
			expectedTotal: "49.39",
		},
		{
			name:          "free shipping",
			lines:         []model.CartLine{{ProductID: "P001", Quantity: 3, UnitPrice: decimal.RequireFromString("20.00")}},
			expectedMinor: 6510,
			expectedTotal: "65.10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cartRepo := new(MockCartRepository)
			cartRepo.On("ListByUser", ctx, "u1").Return(tt.lines, nil)

			gateway := new(MockGateway)
			gateway.On("CreateSession", ctx, payment.CreateSessionParams{
				AmountMinor: tt.expectedMinor,
				Currency:    "usd",
				UserID:      "u1",
				ReturnURL:   testCheckoutOptions.ReturnURL,
				Label:       testCheckoutOptions.Label,
			}).Return(&payment.Session{ID: "cs_1", ClientToken: "secret"}, nil)

			resp, err := newTestCheckoutService(cartRepo, gateway).Checkout(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, "cs_1", resp.SessionID)
			assert.Equal(t, "secret", resp.ClientToken)
			assert.True(t, decimal.RequireFromString(tt.expectedTotal).Equal(resp.Totals.GrandTotal))
			gateway.AssertExpectations(t)
		})
	}
}

func TestCheckoutService_EmptyCartOpensNoSession(t *testing.T) {
	ctx := context.Background()
	cartRepo := new(MockCartRepository)
	cartRepo.On("ListByUser", ctx, "u1").Return([]model.CartLine{}, nil)
	gateway := new(MockGateway)

	_, err := newTestCheckoutService(cartRepo, gateway).Checkout(ctx, "u1")
	assert.ErrorIs(t, err, model.ErrEmptyCart)
	gateway.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything)
}

func TestCheckoutService_GatewayFailures(t *testing.T) {
	ctx := context.Background()
	lines := []model.CartLine{{ProductID: "P001", Quantity: 1, UnitPrice: decimal.RequireFromString("10.00")}}

	t.Run("untyped failure becomes gateway error", func(t *testing.T) {
		cartRepo := new(MockCartRepository)
		cartRepo.On("ListByUser", ctx, "u1").Return(lines, nil)
		gateway := new(MockGateway)
		gateway.On("CreateSession", ctx, mock.Anything).Return(nil, errors.New("connection reset"))

		_, err := newTestCheckoutService(cartRepo, gateway).Checkout(ctx, "u1")
		assert.ErrorIs(t, err, model.ErrGateway)
		assert.ErrorContains(t, err, "connection reset")
		cartRepo.AssertNotCalled(t, "DeleteAll", mock.Anything, mock.Anything)
	})

	t.Run("not configured passes through", func(t *testing.T) {
		cartRepo := new(MockCartRepository)
		cartRepo.On("ListByUser", ctx, "u1").Return(lines, nil)

		_, err := newTestCheckoutService(cartRepo, payment.NewUnconfiguredGateway()).Checkout(ctx, "u1")
		assert.ErrorIs(t, err, model.ErrGatewayNotConfigured)
	})
}

func TestCheckoutService_Unauthorised(t *testing.T) {
	_, err := newTestCheckoutService(new(MockCartRepository), new(MockGateway)).Checkout(context.Background(), "")
	assert.ErrorIs(t, err, model.ErrUnauthorised)
}
