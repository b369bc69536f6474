package service

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/rs/zerolog"
)

// productService implements ProductService over the read-only catalogue.
type productService struct {
	products repository.ProductRepository
	logger   zerolog.Logger
}

// NewProductService creates a new product service.
func NewProductService(products repository.ProductRepository, logger zerolog.Logger) ProductService {
	return &productService{
		products: products,
		logger:   logger.With().Str("service", "product").Logger(),
	}
}

func (s *productService) List(ctx context.Context, q model.ProductQuery) ([]model.Product, error) {
	q.Limit, q.Offset = clampPage(q.Limit, q.Offset)
	q.Category = strings.TrimSpace(q.Category)

	products, err := s.products.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (s *productService) GetByID(ctx context.Context, id string) (*model.Product, error) {
	if id == "" {
		return nil, model.ErrProductNotFound
	}

	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		s.logger.Debug().Str("product_id", id).Msg("product not in catalogue")
		return nil, model.ErrProductNotFound
	}
	return product, nil
}

// GetByIDs tolerates ids that have left the catalogue since they were
// referenced; the result then holds fewer products than requested.
func (s *productService) GetByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	if missing := len(ids) - len(products); missing > 0 {
		s.logger.Debug().Int("missing", missing).Msg("referenced products no longer in catalogue")
	}
	return products, nil
}
