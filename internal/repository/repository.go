package repository

import (
	"context"
	"errors"

	"bistro/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes the repositories translate into domain errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// CategoryRepository defines the interface for category data access operations.
type CategoryRepository interface {
	// GetAll retrieves all categories ordered by name.
	GetAll(ctx context.Context) ([]model.Category, error)

	// GetByID retrieves a single category by its ID.
	// Returns nil without error when the category does not exist.
	GetByID(ctx context.Context, id string) (*model.Category, error)

	// Create inserts a new category. Returns model.ErrDuplicateID if the ID is taken.
	Create(ctx context.Context, category *model.Category) error

	// ValidateCategoriesExist checks that every ID refers to an existing category.
	// Returns an error wrapping model.ErrUnknownCategory naming the first missing ID.
	ValidateCategoriesExist(ctx context.Context, ids []string) error

	// DeleteCascade removes the category and, in the same transaction, every dish
	// that is left without a category. It returns the IDs of the removed dishes.
	DeleteCascade(ctx context.Context, id string) ([]int64, error)
}

// DishRepository defines the interface for dish data access operations.
type DishRepository interface {
	// GetAll retrieves one row per (dish, category) membership ordered by dish name.
	GetAll(ctx context.Context) ([]model.DishRow, error)

	// GetByID retrieves the membership rows of a single dish.
	// Returns an empty slice when the dish does not exist.
	GetByID(ctx context.Context, id int64) ([]model.DishRow, error)

	// Create inserts the dish and one membership per category in a single
	// transaction, and returns the created membership rows.
	Create(ctx context.Context, dish *model.Dish) ([]model.DishRow, error)

	// Delete removes a dish together with all its memberships.
	// It reports whether a dish was removed.
	Delete(ctx context.Context, id int64) (bool, error)
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// Create inserts a new order.
	Create(ctx context.Context, order *model.Order) error

	// GetByID retrieves an order by its ID.
	// Returns nil without error when the order does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetAll retrieves every order, newest first.
	GetAll(ctx context.Context) ([]model.Order, error)

	// AppendImage atomically appends an image URL to the order and returns the
	// resulting image list. Returns model.ErrOrderNotFound if the order does not exist.
	AppendImage(ctx context.Context, id uuid.UUID, url string) ([]string, error)
}

// isPgError reports whether err is a PostgreSQL error with the given code.
func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
