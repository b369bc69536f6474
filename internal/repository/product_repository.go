package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Prices are read as text so they reach decimal.Decimal without a float hop.
const selectProducts = `SELECT id, name, price::text, category, images, created_at FROM products`

// productRepository reads the catalogue from PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

func (r *productRepository) List(ctx context.Context, q model.ProductQuery) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx, selectProducts+`
		WHERE ($1 = '' OR category = $1)
		ORDER BY name, id
		LIMIT $2 OFFSET $3`,
		q.Category, q.Limit, q.Offset,
	)
	if err != nil {
		r.logger.Error().Err(err).
			Str("category", q.Category).
			Int("limit", q.Limit).
			Int("offset", q.Offset).
			Msg("failed to list products")
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return r.collect(rows)
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, selectProducts+` WHERE id = $1`, id))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, nil
	case err != nil:
		r.logger.Error().Err(err).Str("product_id", id).Msg("failed to load product")
		return nil, fmt.Errorf("failed to load product %s: %w", id, err)
	}
	return p, nil
}

// GetByIDs returns the products that still exist among ids; unknown ids are
// skipped.
func (r *productRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	rows, err := r.pool.Query(ctx, selectProducts+` WHERE id = ANY($1) ORDER BY name, id`, ids)
	if err != nil {
		r.logger.Error().Err(err).Strs("product_ids", ids).Msg("failed to load products")
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	return r.collect(rows)
}

func (r *productRepository) collect(rows pgx.Rows) ([]model.Product, error) {
	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Product, error) {
		p, err := scanProduct(row)
		if err != nil {
			return model.Product{}, err
		}
		return *p, nil
	})
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to read product rows")
		return nil, fmt.Errorf("failed to read products: %w", err)
	}
	if products == nil {
		products = []model.Product{}
	}
	return products, nil
}

func scanProduct(row pgx.Row) (*model.Product, error) {
	var (
		p     model.Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &price, &p.Category, &p.Images, &p.CreatedAt); err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q for product %s: %w", price, p.ID, err)
	}
	p.Price = amount

	return &p, nil
}
