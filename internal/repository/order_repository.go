package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	pgUniqueViolation      = "23505"
	orderSessionConstraint = "orders_session_id_key"

	orderColumns = `id, session_id, user_id, customer_email, customer_name,
		total_amount::text, currency, region, product_ids, created_at`
)

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// Create inserts an order. The unique constraint on session_id is what makes
// settlement idempotent: a second insert for the same session is reported as
// OrderAlreadyExists rather than as an error.
func (r *orderRepository) Create(ctx context.Context, order *model.Order) (InsertOutcome, error) {
	query := `
		INSERT INTO orders (id, session_id, user_id, customer_email, customer_name,
			total_amount, currency, region, product_ids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	productIDs := order.ProductIDs
	if productIDs == nil {
		productIDs = []string{}
	}

	_, err := r.pool.Exec(ctx, query,
		order.ID,
		order.SessionID,
		order.UserID,
		order.CustomerEmail,
		order.CustomerName,
		order.TotalAmount.StringFixed(2),
		order.Currency,
		order.Region,
		productIDs,
		order.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == orderSessionConstraint {
			r.logger.Info().
				Str("session_id", order.SessionID).
				Msg("order for session already recorded")
			return OrderAlreadyExists, nil
		}
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Str("session_id", order.SessionID).
			Msg("failed to create order")
		return 0, fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("session_id", order.SessionID).
		Msg("order created successfully")

	return OrderInserted, nil
}

// GetBySessionID retrieves the order recorded for a payment session.
func (r *orderRepository) GetBySessionID(ctx context.Context, sessionID string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE session_id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("session_id", sessionID).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	return order, nil
}

// ListByUser returns a user's orders, newest first.
func (r *orderRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID).Msg("failed to query user orders")
		return nil, fmt.Errorf("failed to query user orders: %w", err)
	}

	return r.collect(rows)
}

// ListAll returns every order, newest first.
func (r *orderRepository) ListAll(ctx context.Context, limit, offset int) ([]model.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	return r.collect(rows)
}

// Stats aggregates order count and revenue.
func (r *orderRepository) Stats(ctx context.Context) (*model.OrderStats, error) {
	query := `SELECT COUNT(*), COALESCE(SUM(total_amount), 0)::text FROM orders`

	var (
		stats   model.OrderStats
		revenue string
	)
	if err := r.pool.QueryRow(ctx, query).Scan(&stats.OrderCount, &revenue); err != nil {
		r.logger.Error().Err(err).Msg("failed to aggregate orders")
		return nil, fmt.Errorf("failed to aggregate orders: %w", err)
	}

	amount, err := decimal.NewFromString(revenue)
	if err != nil {
		return nil, fmt.Errorf("invalid revenue %q: %w", revenue, err)
	}
	stats.Revenue = amount

	return &stats, nil
}

func (r *orderRepository) collect(rows pgx.Rows) ([]model.Order, error) {
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o     model.Order
		total string
	)
	err := row.Scan(
		&o.ID,
		&o.SessionID,
		&o.UserID,
		&o.CustomerEmail,
		&o.CustomerName,
		&total,
		&o.Currency,
		&o.Region,
		&o.ProductIDs,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("invalid total %q for order %s: %w", total, o.ID, err)
	}
	o.TotalAmount = amount

	return &o, nil
}
