package service

import (
	"context"
	"fmt"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/rs/zerolog"
)

// orderService implements OrderService.
type orderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	logger      zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		logger:      logger.With().Str("service", "order").Logger(),
	}
}

func (s *orderService) ListForUser(ctx context.Context, userID string, limit, offset int) ([]model.Order, error) {
	if userID == "" {
		return nil, model.ErrUnauthorised
	}
	limit, offset = clampPage(limit, offset)

	orders, err := s.orderRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// GetBySession returns model.ErrOrderNotFound both before settlement and
// when the session belongs to another user.
func (s *orderService) GetBySession(ctx context.Context, userID, sessionID string) (*model.OrderResponse, error) {
	if userID == "" {
		return nil, model.ErrUnauthorised
	}

	order, err := s.orderRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	if order.UserID != userID {
		s.logger.Warn().
			Str("user_id", userID).
			Str("session_id", sessionID).
			Msg("order lookup for another user's session")
		return nil, model.ErrOrderNotFound
	}

	products, err := s.productRepo.GetByIDs(ctx, order.ProductIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get order products: %w", err)
	}

	return &model.OrderResponse{Order: *order, Products: products}, nil
}

func (s *orderService) ListAll(ctx context.Context, limit, offset int) ([]model.Order, error) {
	limit, offset = clampPage(limit, offset)

	orders, err := s.orderRepo.ListAll(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *orderService) Stats(ctx context.Context) (*model.OrderStats, error) {
	stats, err := s.orderRepo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate orders: %w", err)
	}
	return stats, nil
}
