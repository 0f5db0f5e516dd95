package repository

import (
	"context"
	"fmt"

	"bistro/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const dishRowColumns = `d.id, d.name, d.description, d.price, d.image, dc.category_id, d.created_at`

// dishRepository implements the DishRepository interface using PostgreSQL.
type dishRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewDishRepository creates a new PostgreSQL-backed dish repository.
func NewDishRepository(pool *pgxpool.Pool, logger zerolog.Logger) DishRepository {
	return &dishRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "dish").Logger(),
	}
}

// GetAll retrieves one row per dish membership ordered by dish name.
func (r *dishRepository) GetAll(ctx context.Context) ([]model.DishRow, error) {
	query := `
		SELECT ` + dishRowColumns + `
		FROM dishes d
		JOIN dish_categories dc ON dc.dish_id = d.id
		ORDER BY d.name, d.id, dc.category_id
	`

	return r.queryRows(ctx, query)
}

// GetByID retrieves the membership rows of a single dish.
func (r *dishRepository) GetByID(ctx context.Context, id int64) ([]model.DishRow, error) {
	query := `
		SELECT ` + dishRowColumns + `
		FROM dishes d
		JOIN dish_categories dc ON dc.dish_id = d.id
		WHERE d.id = $1
		ORDER BY dc.category_id
	`

	return r.queryRows(ctx, query, id)
}

func (r *dishRepository) queryRows(ctx context.Context, query string, args ...any) ([]model.DishRow, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query dishes")
		return nil, fmt.Errorf("failed to query dishes: %w", err)
	}

	dishes, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.DishRow])
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to scan dish rows")
		return nil, fmt.Errorf("failed to scan dishes: %w", err)
	}

	return dishes, nil
}

// Create inserts the dish and its category memberships in one transaction.
func (r *dishRepository) Create(ctx context.Context, dish *model.Dish) ([]model.DishRow, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO dishes (name, description, price, image)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, dish.Name, dish.Description, dish.Price, dish.Image).Scan(&dish.ID, &dish.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("dish_name", dish.Name).Msg("failed to create dish")
		return nil, fmt.Errorf("failed to create dish: %w", err)
	}

	batch := &pgx.Batch{}
	for _, categoryID := range dish.CategoryIDs {
		batch.Queue(`INSERT INTO dish_categories (dish_id, category_id) VALUES ($1, $2)`, dish.ID, categoryID)
	}

	results := tx.SendBatch(ctx, batch)
	for _, categoryID := range dish.CategoryIDs {
		if _, err := results.Exec(); err != nil {
			results.Close()
			if isPgError(err, pgForeignKeyViolation) {
				return nil, fmt.Errorf("%w: %q", model.ErrUnknownCategory, categoryID)
			}
			if isPgError(err, pgUniqueViolation) {
				return nil, fmt.Errorf("%w: category %q listed twice", model.ErrDuplicateID, categoryID)
			}
			r.logger.Error().
				Err(err).
				Int64("dish_id", dish.ID).
				Str("category_id", categoryID).
				Msg("failed to create dish membership")
			return nil, fmt.Errorf("failed to create dish membership: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return nil, fmt.Errorf("failed to create dish memberships: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error().Err(err).Int64("dish_id", dish.ID).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to create dish: %w", err)
	}

	r.logger.Debug().
		Int64("dish_id", dish.ID).
		Int("categories", len(dish.CategoryIDs)).
		Msg("dish created successfully")

	rows := make([]model.DishRow, 0, len(dish.CategoryIDs))
	for _, categoryID := range dish.CategoryIDs {
		rows = append(rows, model.DishRow{
			ID:          dish.ID,
			Name:        dish.Name,
			Description: dish.Description,
			Price:       dish.Price,
			Image:       dish.Image,
			CategoryID:  categoryID,
			CreatedAt:   dish.CreatedAt,
		})
	}

	return rows, nil
}

// Delete removes a dish. Memberships go with it through ON DELETE CASCADE.
func (r *dishRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM dishes WHERE id = $1`, id)
	if err != nil {
		r.logger.Error().Err(err).Int64("dish_id", id).Msg("failed to delete dish")
		return false, fmt.Errorf("failed to delete dish: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}
