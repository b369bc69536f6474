package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"storefront/internal/events"
	"storefront/internal/model"
	"storefront/internal/payment"
	"storefront/internal/pricing"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// settlementService implements SettlementService.
//
// Order creation happens before the cart is cleared. A redelivery after a
// crash between the two finds the order already recorded and clears again.
type settlementService struct {
	verifier  payment.Verifier
	gateway   payment.Gateway
	cartRepo  repository.CartRepository
	orderRepo repository.OrderRepository
	publisher events.Publisher
	logger    zerolog.Logger
}

// NewSettlementService creates a new settlement service. A nil verifier
// makes every delivery fail with model.ErrWebhookNotConfigured.
func NewSettlementService(
	verifier payment.Verifier,
	gateway payment.Gateway,
	cartRepo repository.CartRepository,
	orderRepo repository.OrderRepository,
	publisher events.Publisher,
	logger zerolog.Logger,
) SettlementService {
	return &settlementService{
		verifier:  verifier,
		gateway:   gateway,
		cartRepo:  cartRepo,
		orderRepo: orderRepo,
		publisher: publisher,
		logger:    logger.With().Str("service", "settlement").Logger(),
	}
}

func (s *settlementService) Settle(ctx context.Context, payload []byte, headers http.Header) (*SettlementResult, error) {
	if s.verifier == nil {
		s.logger.Error().Msg("webhook received but signing secret is not configured")
		return nil, model.ErrWebhookNotConfigured
	}

	if err := s.verifier.Verify(payload, headers); err != nil {
		s.logger.Warn().Err(err).Msg("rejected webhook with invalid signature")
		return nil, err
	}

	event, err := payment.ParseEvent(payload)
	if err != nil {
		s.logger.Warn().Err(err).Msg("rejected malformed webhook")
		return nil, err
	}

	result := &SettlementResult{EventID: event.ID, SessionID: event.SessionID}
	log := s.logger.With().
		Str("event_id", event.ID).
		Str("event_type", event.Type).
		Str("session_id", event.SessionID).
		Logger()

	if !payment.Settles(event.Type) {
		log.Debug().Msg("ignoring event type")
		return ignore(result, "event type not handled"), nil
	}
	if event.SessionID == "" {
		log.Warn().Msg("completed event carries no session id")
		return ignore(result, "no session id"), nil
	}

	session, err := s.gateway.RetrieveSession(ctx, event.SessionID)
	if err != nil {
		log.Error().Err(err).Msg("failed to retrieve session for settlement")
		return nil, fmt.Errorf("failed to retrieve session: %w", err)
	}

	if session.PaymentStatus != payment.PaymentStatusPaid {
		log.Info().Str("payment_status", session.PaymentStatus).Msg("session not paid yet, not settling")
		return ignore(result, "payment status "+session.PaymentStatus), nil
	}
	if session.UserID == "" {
		log.Error().Err(model.ErrMissingMetadata).Msg("cannot attribute paid session to a cart")
		return ignore(result, "missing user metadata"), nil
	}

	log = log.With().Str("user_id", session.UserID).Logger()

	lines, err := s.cartRepo.ListByUser(ctx, session.UserID)
	if err != nil {
		log.Error().Err(err).Msg("failed to read cart for settlement")
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}

	order := &model.Order{
		ID:            uuid.New(),
		SessionID:     session.ID,
		UserID:        session.UserID,
		CustomerEmail: session.CustomerEmail,
		CustomerName:  session.CustomerName,
		TotalAmount:   pricing.FromMinorUnits(session.AmountTotal),
		Currency:      session.Currency,
		Region:        session.Region,
		ProductIDs:    model.NewCartSnapshot(session.UserID, lines).ProductIDs(),
		CreatedAt:     time.Now().UTC(),
	}

	outcome, err := s.orderRepo.Create(ctx, order)
	if err != nil {
		log.Error().Err(err).Msg("failed to record order")
		return nil, fmt.Errorf("failed to record order: %w", err)
	}

	if _, err := s.cartRepo.DeleteAll(ctx, session.UserID); err != nil {
		log.Error().Err(err).Str("outcome", outcome.String()).Msg("failed to clear cart after settlement")
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}

	if outcome == repository.OrderAlreadyExists {
		log.Info().Msg("duplicate delivery, order already recorded")
		result.Outcome = AlreadySettled
		return result, nil
	}

	log.Info().
		Str("order_id", order.ID.String()).
		Str("total", order.TotalAmount.String()).
		Int("products", len(order.ProductIDs)).
		Msg("order settled")

	// The order is durable at this point; a lost event does not fail the delivery.
	if err := s.publisher.PublishOrderSettled(ctx, model.OrderEvent{
		OrderID:       order.ID,
		SessionID:     order.SessionID,
		UserID:        order.UserID,
		CustomerEmail: order.CustomerEmail,
		TotalAmount:   order.TotalAmount,
		Currency:      order.Currency,
		OccurredAt:    order.CreatedAt,
	}); err != nil {
		log.Warn().Err(err).Str("order_id", order.ID.String()).Msg("order event not published")
	}

	result.Outcome = Settled
	return result, nil
}

func ignore(result *SettlementResult, reason string) *SettlementResult {
	result.Outcome = Ignored
	result.Reason = reason
	return result
}
