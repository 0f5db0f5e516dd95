package repository

import (
	"context"
	"errors"
	"fmt"

	"bistro/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// categoryRepository implements the CategoryRepository interface using PostgreSQL.
type categoryRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCategoryRepository creates a new PostgreSQL-backed category repository.
func NewCategoryRepository(pool *pgxpool.Pool, logger zerolog.Logger) CategoryRepository {
	return &categoryRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "category").Logger(),
	}
}

// GetAll retrieves all categories ordered by name.
func (r *categoryRepository) GetAll(ctx context.Context) ([]model.Category, error) {
	query := `
		SELECT id, name, color, description, created_at
		FROM categories
		ORDER BY name, id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query categories")
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.Description, &c.CreatedAt); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan category row")
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating category rows")
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// GetByID retrieves a single category by its ID.
func (r *categoryRepository) GetByID(ctx context.Context, id string) (*model.Category, error) {
	query := `
		SELECT id, name, color, description, created_at
		FROM categories
		WHERE id = $1
	`

	var c model.Category
	err := r.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.Color, &c.Description, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("category_id", id).Msg("category not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("category_id", id).Msg("failed to query category")
		return nil, fmt.Errorf("failed to query category: %w", err)
	}

	return &c, nil
}

// Create inserts a new category.
func (r *categoryRepository) Create(ctx context.Context, category *model.Category) error {
	query := `
		INSERT INTO categories (id, name, color, description)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err := r.pool.QueryRow(ctx, query, category.ID, category.Name, category.Color, category.Description).
		Scan(&category.CreatedAt)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			r.logger.Debug().Str("category_id", category.ID).Msg("category ID already exists")
			return fmt.Errorf("%w: category %q", model.ErrDuplicateID, category.ID)
		}
		r.logger.Error().Err(err).Str("category_id", category.ID).Msg("failed to create category")
		return fmt.Errorf("failed to create category: %w", err)
	}

	r.logger.Debug().Str("category_id", category.ID).Msg("category created successfully")

	return nil
}

// ValidateCategoriesExist checks that every ID refers to an existing category.
func (r *categoryRepository) ValidateCategoriesExist(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := `
		SELECT id
		FROM categories
		WHERE id = ANY($1)
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to validate categories exist")
		return fmt.Errorf("failed to validate categories exist: %w", err)
	}

	found, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to collect category IDs")
		return fmt.Errorf("failed to validate categories exist: %w", err)
	}

	existing := make(map[string]struct{}, len(found))
	for _, id := range found {
		existing[id] = struct{}{}
	}

	for _, id := range ids {
		if _, ok := existing[id]; !ok {
			r.logger.Warn().Str("category_id", id).Msg("category does not exist")
			return fmt.Errorf("%w: %q", model.ErrUnknownCategory, id)
		}
	}

	return nil
}

// DeleteCascade removes the category and every dish left without a category.
func (r *categoryRepository) DeleteCascade(ctx context.Context, id string) ([]int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var locked string
	err = tx.QueryRow(ctx, `SELECT id FROM categories WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", model.ErrCategoryNotFound, id)
		}
		r.logger.Error().Err(err).Str("category_id", id).Msg("failed to lock category")
		return nil, fmt.Errorf("failed to lock category: %w", err)
	}

	// Drop memberships first, then the dishes that no longer belong anywhere.
	rows, err := tx.Query(ctx, `DELETE FROM dish_categories WHERE category_id = $1 RETURNING dish_id`, id)
	if err != nil {
		r.logger.Error().Err(err).Str("category_id", id).Msg("failed to delete dish memberships")
		return nil, fmt.Errorf("failed to delete dish memberships: %w", err)
	}
	affected, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to delete dish memberships: %w", err)
	}

	removed := []int64{}
	if len(affected) > 0 {
		rows, err = tx.Query(ctx, `
			DELETE FROM dishes d
			WHERE d.id = ANY($1)
				AND NOT EXISTS (SELECT 1 FROM dish_categories dc WHERE dc.dish_id = d.id)
			RETURNING d.id
		`, affected)
		if err != nil {
			r.logger.Error().Err(err).Str("category_id", id).Msg("failed to delete orphaned dishes")
			return nil, fmt.Errorf("failed to delete dishes: %w", err)
		}
		removed, err = pgx.CollectRows(rows, pgx.RowTo[int64])
		if err != nil {
			return nil, fmt.Errorf("failed to delete dishes: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id); err != nil {
		r.logger.Error().Err(err).Str("category_id", id).Msg("failed to delete category")
		return nil, fmt.Errorf("failed to delete category: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error().Err(err).Str("category_id", id).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to delete category: %w", err)
	}

	r.logger.Debug().
		Str("category_id", id).
		Int("memberships_removed", len(affected)).
		Int("dishes_removed", len(removed)).
		Msg("category deleted")

	return removed, nil
}
