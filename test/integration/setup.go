package integration

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"bistro/internal/cart"
	"bistro/internal/database"
	"bistro/internal/handler"
	"bistro/internal/imaging"
	"bistro/internal/oplock"
	"bistro/internal/repository"
	"bistro/internal/router"
	"bistro/internal/service"
	"bistro/internal/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testAPIKey = "test-api-key"
	testBucket = "food-images"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container, a connection pool and the schema.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	// Create PostgreSQL container
	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	// Get connection string
	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	settings := database.DefaultPoolSettings()
	settings.MaxConns = 10
	settings.MinConns = 2

	logger := zerolog.Nop()
	pool, err := database.Connect(ctx, connStr, settings, logger)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := database.Migrate(ctx, pool, logger); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{"dish_categories", "dishes", "categories", "orders"}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}

// MemoryStore is an in-process object store serving objects from a fake CDN host.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]storage.BucketOptions
	objects map[string][]byte
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets: map[string]storage.BucketOptions{},
		objects: map[string][]byte{},
	}
}

func (m *MemoryStore) ListBuckets(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.buckets))
	for name := range m.buckets {
		names = append(names, name)
	}
	return names, nil
}

func (m *MemoryStore) CreateBucket(ctx context.Context, name string, opts storage.BucketOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.buckets[name] = opts
	return nil
}

func (m *MemoryStore) PutObject(ctx context.Context, bucket, key, contentType string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.buckets[bucket]; !ok {
		return fmt.Errorf("bucket %s does not exist", bucket)
	}
	m.objects[bucket+"/"+key] = body
	return nil
}

func (m *MemoryStore) DeleteObject(ctx context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects, bucket+"/"+key)
	return nil
}

func (m *MemoryStore) PublicURL(bucket, key string) (string, error) {
	return "https://cdn.test/" + bucket + "/" + key, nil
}

// Objects returns the number of stored objects.
func (m *MemoryStore) Objects() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// TestApp is the fully wired application under test.
type TestApp struct {
	Handler http.Handler
	Menu    service.MenuService
	Orders  service.OrderService
	Store   *MemoryStore
}

// NewTestApp wires repositories, services and the router against testDB.
func NewTestApp(t *testing.T, testDB *TestDB) *TestApp {
	t.Helper()

	logger := zerolog.Nop()
	store := NewMemoryStore()
	uploader := storage.NewUploader(store, testBucket, 0, logger)
	processor := imaging.NewProcessor()
	locks := &oplock.Set{}

	menuService := service.NewMenuService(
		repository.NewCategoryRepository(testDB.Pool, logger),
		repository.NewDishRepository(testDB.Pool, logger),
		processor,
		uploader,
		locks,
		0,
		logger,
	)
	orderService := service.NewOrderService(
		repository.NewOrderRepository(testDB.Pool, logger),
		nil,
		processor,
		uploader,
		locks,
		0,
		logger,
	)
	cartService := service.NewCartService(cart.NewStore(time.Hour), menuService, orderService, locks, logger)

	mux := router.New(router.Handlers{
		Health: handler.NewHealthHandler(testDB.Pool, logger),
		Menu:   handler.NewMenuHandler(menuService, logger),
		Order:  handler.NewOrderHandler(orderService, logger),
		Cart:   handler.NewCartHandler(cartService, logger),
	}, router.Options{
		APIKey:         testAPIKey,
		AllowedOrigins: []string{"*"},
	}, logger)

	return &TestApp{
		Handler: mux,
		Menu:    menuService,
		Orders:  orderService,
		Store:   store,
	}
}
