package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"bistro/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const orderColumns = `id, items, customer_name, customer_email, notes, created_at, images`

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

// Create inserts a new order. Items are stored as a JSON document.
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to encode order items: %w", err)
	}

	if order.Images == nil {
		order.Images = []string{}
	}

	query := `
		INSERT INTO orders (id, items, customer_name, customer_email, notes, images)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err = r.pool.QueryRow(ctx, query,
		order.ID,
		string(items),
		order.CustomerName,
		order.CustomerEmail,
		order.Notes,
		order.Images,
	).Scan(&order.CreatedAt)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Int("items", len(order.Items)).
		Msg("order created successfully")

	return nil
}

// GetByID retrieves an order by its ID.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	return order, nil
}

// GetAll retrieves every order, newest first.
func (r *orderRepository) GetAll(ctx context.Context) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
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

// AppendImage appends the URL in a single statement so concurrent
// attachments to the same order never overwrite each other.
func (r *orderRepository) AppendImage(ctx context.Context, id uuid.UUID, url string) ([]string, error) {
	query := `
		UPDATE orders
		SET images = array_append(images, $2)
		WHERE id = $1
		RETURNING images
	`

	var images []string
	err := r.pool.QueryRow(ctx, query, id, url).Scan(&images)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", model.ErrOrderNotFound, id)
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to append order image")
		return nil, fmt.Errorf("failed to append order image: %w", err)
	}

	r.logger.Debug().
		Str("order_id", id.String()).
		Int("images", len(images)).
		Msg("order image appended")

	return images, nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		order model.Order
		items []byte
	)

	err := row.Scan(
		&order.ID,
		&items,
		&order.CustomerName,
		&order.CustomerEmail,
		&order.Notes,
		&order.CreatedAt,
		&order.Images,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(items, &order.Items); err != nil {
		return nil, fmt.Errorf("failed to decode order items: %w", err)
	}
	if order.Items == nil {
		order.Items = []model.OrderItem{}
	}
	if order.Images == nil {
		order.Images = []string{}
	}

	return &order, nil
}
