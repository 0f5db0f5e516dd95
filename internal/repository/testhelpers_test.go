package repository

import (
	"context"
	"testing"
	"time"

	"bistro/internal/database"
	"bistro/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a PostgreSQL container and applies the schema migrations.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	settings := database.DefaultPoolSettings()
	settings.MinConns = 1
	pool, err := database.Connect(ctx, connStr, settings, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, database.Migrate(ctx, pool, zerolog.Nop()))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

// seedCategories inserts categories directly for testing.
func seedCategories(t *testing.T, pool *pgxpool.Pool, ids ...string) {
	t.Helper()

	for _, id := range ids {
		_, err := pool.Exec(context.Background(),
			`INSERT INTO categories (id, name) VALUES ($1, $2)`, id, id)
		require.NoError(t, err)
	}
}

func newDish(name, price string, categories ...string) *model.Dish {
	return &model.Dish{
		Name:        name,
		Description: name + " description",
		Price:       decimal.RequireFromString(price),
		Image:       "https://cdn.example.com/" + name + ".jpg",
		CategoryIDs: categories,
	}
}
