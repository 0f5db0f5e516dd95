// Command seed loads a YAML menu file into the database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"bistro/internal/config"
	"bistro/internal/database"
	"bistro/internal/imaging"
	"bistro/internal/oplock"
	"bistro/internal/repository"
	"bistro/internal/seed"
	"bistro/internal/service"
	"bistro/internal/storage"
)

func main() {
	file := flag.String("file", "cmd/seed/menu.yaml", "path to the menu YAML file (.gz accepted)")
	migrate := flag.Bool("migrate", true, "apply database migrations before seeding")
	flag.Parse()

	if err := run(*file, *migrate); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(file string, migrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)
	ctx := context.Background()

	menu, err := seed.LoadFile(file)
	if err != nil {
		return err
	}

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if migrate {
		if err := database.Migrate(ctx, pool, logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	store, err := storage.NewS3Store(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize image storage: %w", err)
	}
	uploader := storage.NewUploader(store, cfg.Storage.Bucket, cfg.Storage.MaxObjectBytes, logger)
	processor := imaging.NewProcessor()
	locks := &oplock.Set{}

	menuService := service.NewMenuService(
		repository.NewCategoryRepository(pool, logger),
		repository.NewDishRepository(pool, logger),
		processor,
		uploader,
		locks,
		cfg.Storage.UploadRetries,
		logger,
	)
	orderService := service.NewOrderService(
		repository.NewOrderRepository(pool, logger),
		nil,
		processor,
		uploader,
		locks,
		cfg.Storage.UploadRetries,
		logger,
	)

	result, err := seed.NewSeeder(menuService, orderService, logger).Apply(ctx, menu)
	if err != nil {
		return err
	}

	fmt.Printf("categories: %d created, %d skipped\n", result.CategoriesCreated, result.CategoriesSkipped)
	fmt.Printf("dishes: %d created, %d skipped\n", result.DishesCreated, result.DishesSkipped)
	fmt.Printf("orders: %d created\n", result.OrdersCreated)

	return nil
}
