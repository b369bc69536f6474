package service

import (
	"context"
	"fmt"

	"storefront/internal/model"
	"storefront/internal/pricing"
	"storefront/internal/repository"
	"storefront/internal/settings"

	"github.com/rs/zerolog"
)

// cartService implements CartService.
type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	settings    settings.Provider
	logger      zerolog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	settingsProvider settings.Provider,
	logger zerolog.Logger,
) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		settings:    settingsProvider,
		logger:      logger.With().Str("service", "cart").Logger(),
	}
}

// AddItem validates the product and performs a single atomic upsert. The
// cart limit counts distinct lines and only applies to products not yet in
// the cart.
func (s *cartService) AddItem(ctx context.Context, userID, productID string, delta int) (*model.CartLine, error) {
	if userID == "" {
		return nil, model.ErrUnauthorised
	}
	if productID == "" {
		return nil, model.NewValidationError("productId is required")
	}
	if delta <= 0 {
		return nil, model.ErrInvalidQuantity
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up product: %w", err)
	}
	if product == nil {
		s.logger.Debug().Str("product_id", productID).Msg("add of unknown product")
		return nil, model.ErrProductNotFound
	}

	if err := s.checkLimit(ctx, userID, productID); err != nil {
		return nil, err
	}

	line, err := s.cartRepo.AddQuantity(ctx, userID, productID, delta, product.Price)
	if err != nil {
		return nil, fmt.Errorf("failed to add item: %w", err)
	}

	s.logger.Debug().
		Str("user_id", userID).
		Str("product_id", productID).
		Int("delta", delta).
		Int("quantity", line.Quantity).
		Msg("item added to cart")

	return line, nil
}

// checkLimit is a soft limit: it reads before the upsert, so concurrent adds
// of distinct new products can overshoot CartLimit.
func (s *cartService) checkLimit(ctx context.Context, userID, productID string) error {
	existing, err := s.cartRepo.FindByProduct(ctx, userID, productID)
	if err != nil {
		return fmt.Errorf("failed to look up cart line: %w", err)
	}
	if existing != nil {
		return nil
	}

	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}

	lines, err := s.cartRepo.CountLines(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to count cart lines: %w", err)
	}
	if lines >= int64(cfg.CartLimit) {
		s.logger.Info().
			Str("user_id", userID).
			Int64("lines", lines).
			Int("limit", cfg.CartLimit).
			Msg("cart limit reached")
		return model.ErrCartLimit
	}

	return nil
}

func (s *cartService) SetQuantity(ctx context.Context, userID, lineID string, quantity int) (*model.CartLine, error) {
	if userID == "" {
		return nil, model.ErrUnauthorised
	}

	if quantity <= 0 {
		if err := s.cartRepo.Delete(ctx, userID, lineID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	line, err := s.cartRepo.SetQuantity(ctx, userID, lineID, quantity)
	if err != nil {
		return nil, err
	}

	return line, nil
}

func (s *cartService) RemoveItem(ctx context.Context, userID, lineID string) error {
	if userID == "" {
		return model.ErrUnauthorised
	}
	return s.cartRepo.Delete(ctx, userID, lineID)
}

func (s *cartService) Clear(ctx context.Context, userID string) error {
	if userID == "" {
		return model.ErrUnauthorised
	}

	if _, err := s.cartRepo.DeleteAll(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func (s *cartService) Snapshot(ctx context.Context, userID string) (*model.CartSnapshot, error) {
	if userID == "" {
		return nil, model.ErrUnauthorised
	}

	lines, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}

	return model.NewCartSnapshot(userID, lines), nil
}

func (s *cartService) Count(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, model.ErrUnauthorised
	}

	n, err := s.cartRepo.CountItems(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count cart items: %w", err)
	}
	return n, nil
}

// Summary prices the cart with the same function checkout uses.
func (s *cartService) Summary(ctx context.Context, userID string) (*model.CartSummary, error) {
	snap, err := s.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	return &model.CartSummary{
		Cart:   snap,
		Totals: pricing.ComputeTotal(snap.TotalPrice, cfg),
	}, nil
}
