package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"storefront/internal/model"
	"storefront/internal/payment"
	"storefront/internal/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const completedPayload = `{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`

type settlementMocks struct {
	verifier  *MockVerifier
	gateway   *MockGateway
	cartRepo  *MockCartRepository
	orderRepo *MockOrderRepository
	publisher *MockPublisher
}

func newSettlementMocks() *settlementMocks {
	m := &settlementMocks{
		verifier:  new(MockVerifier),
		gateway:   new(MockGateway),
		cartRepo:  new(MockCartRepository),
		orderRepo: new(MockOrderRepository),
		publisher: new(MockPublisher),
	}
	m.verifier.On("Verify", mock.Anything, mock.Anything).Return(nil).Maybe()
	return m
}

func (m *settlementMocks) service() SettlementService {
	return NewSettlementService(m.verifier, m.gateway, m.cartRepo, m.orderRepo, m.publisher, zerolog.Nop())
}

func paidSession() *payment.SessionDetails {
	return &payment.SessionDetails{
		ID:            "cs_1",
		AmountTotal:   4939,
		Currency:      "usd",
		PaymentStatus: payment.PaymentStatusPaid,
		CustomerEmail: "ann@example.com",
		CustomerName:  "Ann",
		Region:        "US",
		UserID:        "u1",
	}
}

func cartLines() []model.CartLine {
	return []model.CartLine{
		{ID: "l1", ProductID: "P001", Quantity: 2},
		{ID: "l2", ProductID: "P002", Quantity: 1},
	}
}

func TestSettlementService_Settle_NewOrder(t *testing.T) {
	ctx := context.Background()
	m := newSettlementMocks()
	m.gateway.On("RetrieveSession", ctx, "cs_1").Return(paidSession(), nil)
	m.cartRepo.On("ListByUser", ctx, "u1").Return(cartLines(), nil)

	var recorded *model.Order
	m.orderRepo.On("Create", ctx, mock.AnythingOfType("*model.Order")).
		Run(func(args mock.Arguments) { recorded = args.Get(1).(*model.Order) }).
		Return(repository.OrderInserted, nil)
	m.cartRepo.On("DeleteAll", ctx, "u1").Return(int64(2), nil)
	m.publisher.On("PublishOrderSettled", ctx, mock.MatchedBy(func(e model.OrderEvent) bool {
		return e.SessionID == "cs_1" && e.UserID == "u1"
	})).Return(nil)

	result, err := m.service().Settle(ctx, []byte(completedPayload), http.Header{})
	require.NoError(t, err)
	assert.Equal(t, Settled, result.Outcome)
	assert.Equal(t, "cs_1", result.SessionID)

	require.NotNil(t, recorded)
	assert.Equal(t, "cs_1", recorded.SessionID)
	assert.Equal(t, "u1", recorded.UserID)
	assert.Equal(t, "ann@example.com", recorded.CustomerEmail)
	assert.Equal(t, "US", recorded.Region)
	assert.True(t, decimal.RequireFromString("49.39").Equal(recorded.TotalAmount))
	assert.Equal(t, []string{"P001", "P002"}, recorded.ProductIDs)

	m.cartRepo.AssertExpectations(t)
	m.publisher.AssertExpectations(t)
}

func TestSettlementService_Settle_DuplicateDelivery(t *testing.T) {
	ctx := context.Background()
	m := newSettlementMocks()
	m.gateway.On("RetrieveSession", ctx, "cs_1").Return(paidSession(), nil)
	m.cartRepo.On("ListByUser", ctx, "u1").Return([]model.CartLine{}, nil)
	m.orderRepo.On("Create", ctx, mock.Anything).Return(repository.OrderAlreadyExists, nil)
	m.cartRepo.On("DeleteAll", ctx, "u1").Return(int64(0), nil)

	result, err := m.service().Settle(ctx, []byte(completedPayload), http.Header{})
	require.NoError(t, err)
	assert.Equal(t, AlreadySettled, result.Outcome)

	m.cartRepo.AssertCalled(t, "DeleteAll", ctx, "u1")
	m.publisher.AssertNotCalled(t, "PublishOrderSettled", mock.Anything, mock.Anything)
}

func TestSettlementService_Settle_PublishFailureStillSettles(t *testing.T) {
	ctx := context.Background()
	m := newSettlementMocks()
	m.gateway.On("RetrieveSession", ctx, "cs_1").Return(paidSession(), nil)
	m.cartRepo.On("ListByUser", ctx, "u1").Return(cartLines(), nil)
	m.orderRepo.On("Create", ctx, mock.Anything).Return(repository.OrderInserted, nil)
	m.cartRepo.On("DeleteAll", ctx, "u1").Return(int64(2), nil)
	m.publisher.On("PublishOrderSettled", ctx, mock.Anything).Return(errors.New("broker down"))

	result, err := m.service().Settle(ctx, []byte(completedPayload), http.Header{})
	require.NoError(t, err)
	assert.Equal(t, Settled, result.Outcome)
}

func TestSettlementService_Settle_Rejected(t *testing.T) {
	ctx := context.Background()

	t.Run("not configured", func(t *testing.T) {
		m := newSettlementMocks()
		svc := NewSettlementService(nil, m.gateway, m.cartRepo, m.orderRepo, m.publisher, zerolog.Nop())

		_, err := svc.Settle(ctx, []byte(completedPayload), http.Header{})
		assert.ErrorIs(t, err, model.ErrWebhookNotConfigured)
	})

	t.Run("bad signature changes nothing", func(t *testing.T) {
		m := &settlementMocks{
			verifier:  new(MockVerifier),
			gateway:   new(MockGateway),
			cartRepo:  new(MockCartRepository),
			orderRepo: new(MockOrderRepository),
			publisher: new(MockPublisher),
		}
		m.verifier.On("Verify", mock.Anything, mock.Anything).Return(model.ErrSignature.Wrap(errors.New("no match")))

		_, err := m.service().Settle(ctx, []byte(completedPayload), http.Header{})
		assert.ErrorIs(t, err, model.ErrSignature)
		m.gateway.AssertNotCalled(t, "RetrieveSession", mock.Anything, mock.Anything)
		m.orderRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		m.cartRepo.AssertNotCalled(t, "DeleteAll", mock.Anything, mock.Anything)
	})

	t.Run("malformed body", func(t *testing.T) {
		m := newSettlementMocks()

		_, err := m.service().Settle(ctx, []byte(`not json`), http.Header{})
		assert.True(t, model.IsValidation(err))
	})
}

func TestSettlementService_Settle_Ignored(t *testing.T) {
	ctx := context.Background()

	t.Run("other event type", func(t *testing.T) {
		m := newSettlementMocks()
		payload := `{"id":"evt_2","type":"payment_intent.created","data":{"object":{"id":"pi_1"}}}`

		result, err := m.service().Settle(ctx, []byte(payload), http.Header{})
		require.NoError(t, err)
		assert.Equal(t, Ignored, result.Outcome)
		m.gateway.AssertNotCalled(t, "RetrieveSession", mock.Anything, mock.Anything)
	})

	t.Run("unpaid session", func(t *testing.T) {
		m := newSettlementMocks()
		session := paidSession()
		session.PaymentStatus = "unpaid"
		m.gateway.On("RetrieveSession", ctx, "cs_1").Return(session, nil)

		result, err := m.service().Settle(ctx, []byte(completedPayload), http.Header{})
		require.NoError(t, err)
		assert.Equal(t, Ignored, result.Outcome)
		m.orderRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("missing user metadata", func(t *testing.T) {
		m := newSettlementMocks()
		session := paidSession()
		session.UserID = ""
		m.gateway.On("RetrieveSession", ctx, "cs_1").Return(session, nil)

		result, err := m.service().Settle(ctx, []byte(completedPayload), http.Header{})
		require.NoError(t, err)
		assert.Equal(t, Ignored, result.Outcome)
		assert.Equal(t, "missing user metadata", result.Reason)
		m.cartRepo.AssertNotCalled(t, "ListByUser", mock.Anything, mock.Anything)
		m.orderRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestSettlementService_Settle_TransientFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("gateway unavailable", func(t *testing.T) {
		m := newSettlementMocks()
		m.gateway.On("RetrieveSession", ctx, "cs_1").Return(nil, model.ErrGateway)

		_, err := m.service().Settle(ctx, []byte(completedPayload), http.Header{})
		assert.ErrorIs(t, err, model.ErrGateway)
	})

	t.Run("order insert fails, cart kept", func(t *testing.T) {
		m := newSettlementMocks()
		m.gateway.On("RetrieveSession", ctx, "cs_1").Return(paidSession(), nil)
		m.cartRepo.On("ListByUser", ctx, "u1").Return(cartLines(), nil)
		m.orderRepo.On("Create", ctx, mock.Anything).Return(repository.InsertOutcome(0), errors.New("db down"))

		_, err := m.service().Settle(ctx, []byte(completedPayload), http.Header{})
		assert.ErrorContains(t, err, "failed to record order")
		m.cartRepo.AssertNotCalled(t, "DeleteAll", mock.Anything, mock.Anything)
	})

	t.Run("cart clear fails after insert", func(t *testing.T) {
		m := newSettlementMocks()
		m.gateway.On("RetrieveSession", ctx, "cs_1").Return(paidSession(), nil)
		m.cartRepo.On("ListByUser", ctx, "u1").Return(cartLines(), nil)
		m.orderRepo.On("Create", ctx, mock.Anything).Return(repository.OrderInserted, nil)
		m.cartRepo.On("DeleteAll", ctx, "u1").Return(int64(0), errors.New("mongo down"))

		_, err := m.service().Settle(ctx, []byte(completedPayload), http.Header{})
		assert.ErrorContains(t, err, "failed to clear cart")
		m.publisher.AssertNotCalled(t, "PublishOrderSettled", mock.Anything, mock.Anything)
	})
}

func TestSettlementOutcome_String(t *testing.T) {
	assert.Equal(t, "settled", Settled.String())
	assert.Equal(t, "already_settled", AlreadySettled.String())
	assert.Equal(t, "ignored", Ignored.String())
	assert.Equal(t, "unknown", SettlementOutcome(0).String())
}

func TestSettlementService_Settle_DelayedPayment(t *testing.T) {
	ctx := context.Background()
	m := newSettlementMocks()

	unpaid := paidSession()
	unpaid.PaymentStatus = "unpaid"
	m.gateway.On("RetrieveSession", ctx, "cs_1").Return(unpaid, nil).Once()

	result, err := m.service().Settle(ctx, []byte(completedPayload), http.Header{})
	require.NoError(t, err)
	assert.Equal(t, Ignored, result.Outcome)
	m.orderRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)

	// The funds arrive later and the session is now paid.
	m.gateway.On("RetrieveSession", ctx, "cs_1").Return(paidSession(), nil).Once()
	m.cartRepo.On("ListByUser", ctx, "u1").Return(cartLines(), nil)
	m.orderRepo.On("Create", ctx, mock.MatchedBy(func(o *model.Order) bool {
		return o.SessionID == "cs_1" && o.UserID == "u1"
	})).Return(repository.OrderInserted, nil).Once()
	m.cartRepo.On("DeleteAll", ctx, "u1").Return(int64(2), nil)
	m.publisher.On("PublishOrderSettled", ctx, mock.Anything).Return(nil)

	succeeded := `{"id":"evt_2","type":"checkout.session.async_payment_succeeded","data":{"object":{"id":"cs_1"}}}`
	result, err = m.service().Settle(ctx, []byte(succeeded), http.Header{})
	require.NoError(t, err)
	assert.Equal(t, Settled, result.Outcome)
	assert.Equal(t, "evt_2", result.EventID)

	m.orderRepo.AssertExpectations(t)
	m.gateway.AssertExpectations(t)
}

func TestSettlementService_Settle_AsyncPaymentFailedIgnored(t *testing.T) {
	ctx := context.Background()
	m := newSettlementMocks()

	failed := `{"id":"evt_3","type":"checkout.session.async_payment_failed","data":{"object":{"id":"cs_1"}}}`
	result, err := m.service().Settle(ctx, []byte(failed), http.Header{})
	require.NoError(t, err)
	assert.Equal(t, Ignored, result.Outcome)
	m.gateway.AssertNotCalled(t, "RetrieveSession", mock.Anything, mock.Anything)
}
