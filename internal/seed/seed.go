// Package seed loads a menu description from YAML and applies it through the
// menu and order services.
package seed

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"bistro/internal/model"
	"bistro/internal/service"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Menu is the YAML seed document.
type Menu struct {
	Categories []Category `yaml:"categories"`
	Dishes     []Dish     `yaml:"dishes"`
	Orders     []Order    `yaml:"orders"`
}

// Category is a seeded category.
type Category struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Color       string `yaml:"color"`
	Description string `yaml:"description"`
}

// Dish is a seeded dish. Price is kept as text so it parses exactly.
type Dish struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Price       string   `yaml:"price"`
	Image       string   `yaml:"image"`
	Categories  []string `yaml:"categories"`
}

// Order is a seeded sample order.
type Order struct {
	CustomerName  string      `yaml:"customerName"`
	CustomerEmail string      `yaml:"customerEmail"`
	Notes         string      `yaml:"notes"`
	Items         []OrderItem `yaml:"items"`
}

// OrderItem is a line of a seeded order. DishName must match a seeded dish.
type OrderItem struct {
	DishName string `yaml:"dishName"`
	Quantity int    `yaml:"quantity"`
	Note     string `yaml:"note"`
}

// Result counts what Apply created and skipped.
type Result struct {
	CategoriesCreated int
	CategoriesSkipped int
	DishesCreated     int
	DishesSkipped     int
	OrdersCreated     int
}

// LoadFile reads a seed file. Files ending in .gz are decompressed.
func LoadFile(path string) (*Menu, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file %s: %w", path, err)
	}
	defer file.Close()

	var r io.Reader = file
	if strings.HasSuffix(path, ".gz") {
		gzipReader, err := gzip.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader for %s: %w", path, err)
		}
		defer gzipReader.Close()
		r = gzipReader
	}

	return Decode(r)
}

// Decode parses a seed document.
func Decode(r io.Reader) (*Menu, error) {
	var menu Menu
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&menu); err != nil {
		if errors.Is(err, io.EOF) {
			return &menu, nil
		}
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &menu, nil
}

// Seeder applies seed documents.
type Seeder struct {
	menu   service.MenuService
	orders service.OrderService
	logger zerolog.Logger
}

// NewSeeder creates a new seeder.
func NewSeeder(menu service.MenuService, orders service.OrderService, logger zerolog.Logger) *Seeder {
	return &Seeder{
		menu:   menu,
		orders: orders,
		logger: logger.With().Str("component", "seed").Logger(),
	}
}

// Apply creates the categories, dishes and orders of a seed document.
// Categories whose ID exists and dishes whose name exists are skipped, so
// reapplying a document leaves the menu unchanged. Orders have no natural key
// and are submitted again on every run.
func (s *Seeder) Apply(ctx context.Context, menu *Menu) (*Result, error) {
	result := &Result{}

	for _, c := range menu.Categories {
		_, err := s.menu.CreateCategory(ctx, &model.CategoryRequest{
			ID:          c.ID,
			Name:        c.Name,
			Color:       c.Color,
			Description: c.Description,
		})
		if errors.Is(err, model.ErrDuplicateID) {
			s.logger.Debug().Str("category", c.Name).Msg("category exists, skipping")
			result.CategoriesSkipped++
			continue
		}
		if err != nil {
			return result, fmt.Errorf("failed to seed category %q: %w", c.Name, err)
		}
		result.CategoriesCreated++
	}

	existing, err := s.menu.Menu(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to load menu: %w", err)
	}
	dishes := make(map[string]model.Dish, len(existing))
	for _, dish := range existing {
		dishes[strings.ToLower(dish.Name)] = dish
	}

	for _, d := range menu.Dishes {
		if _, ok := dishes[strings.ToLower(d.Name)]; ok {
			s.logger.Debug().Str("dish", d.Name).Msg("dish exists, skipping")
			result.DishesSkipped++
			continue
		}

		price, err := decimal.NewFromString(d.Price)
		if err != nil {
			return result, fmt.Errorf("%w: dish %q has price %q", model.ErrInvalidPrice, d.Name, d.Price)
		}

		resp, err := s.menu.CreateDish(ctx, &model.DishRequest{
			Name:                 d.Name,
			Description:          d.Description,
			Price:                price,
			Image:                d.Image,
			CategoryIDs:          d.Categories,
			PlaceholderOnFailure: true,
		})
		if err != nil {
			return result, fmt.Errorf("failed to seed dish %q: %w", d.Name, err)
		}
		dishes[strings.ToLower(d.Name)] = resp.Dish
		result.DishesCreated++
	}

	for i, o := range menu.Orders {
		req, err := orderRequest(o, dishes)
		if err != nil {
			return result, fmt.Errorf("seed order %d: %w", i+1, err)
		}
		if _, err := s.orders.Submit(ctx, req); err != nil {
			return result, fmt.Errorf("failed to seed order %d: %w", i+1, err)
		}
		result.OrdersCreated++
	}

	s.logger.Info().
		Int("categories_created", result.CategoriesCreated).
		Int("categories_skipped", result.CategoriesSkipped).
		Int("dishes_created", result.DishesCreated).
		Int("dishes_skipped", result.DishesSkipped).
		Int("orders_created", result.OrdersCreated).
		Msg("seed applied")

	return result, nil
}

func orderRequest(o Order, dishes map[string]model.Dish) (*model.OrderRequest, error) {
	req := &model.OrderRequest{CustomerName: o.CustomerName}
	if o.CustomerEmail != "" {
		req.CustomerEmail = &o.CustomerEmail
	}
	if o.Notes != "" {
		req.Notes = &o.Notes
	}

	for _, item := range o.Items {
		dish, ok := dishes[strings.ToLower(item.DishName)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", model.ErrDishNotFound, item.DishName)
		}
		req.Items = append(req.Items, model.OrderItem{
			DishID:   dish.ID,
			DishName: dish.Name,
			Quantity: item.Quantity,
			Price:    dish.Price,
			Note:     item.Note,
		})
	}

	return req, nil
}
