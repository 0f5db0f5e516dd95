package service

import (
	"context"

	"bistro/internal/cart"
	"bistro/internal/model"
	"bistro/internal/storage"

	"github.com/google/uuid"
)

// MaxMealPhotoBytes caps the processed data URL of a meal photo.
const MaxMealPhotoBytes = 200 * 1024

// Object key prefixes inside the image bucket.
const (
	DishImagePrefix  = "dishes"
	OrderImagePrefix = "orders"
)

// ImageProcessor shrinks raw image bytes to a JPEG data URL.
type ImageProcessor interface {
	Process(data []byte, maxWidth int) (string, error)
}

// ImageUploader stores data URLs in object storage.
type ImageUploader interface {
	// UploadWithRetry uploads dataURL under pathPrefix and returns its public URL.
	UploadWithRetry(ctx context.Context, dataURL, pathPrefix string, retries int) (string, error)

	// CheckAvailability probes the image bucket.
	CheckAvailability(ctx context.Context) storage.Availability
}

// MenuService defines operations for menu management.
type MenuService interface {
	// ListCategories returns all categories ordered by name.
	ListCategories(ctx context.Context) ([]model.Category, error)

	// CreateCategory creates a category, deriving the ID from the name when omitted.
	CreateCategory(ctx context.Context, req *model.CategoryRequest) (*model.Category, error)

	// DeleteCategory deletes a category and every dish left without one.
	// It returns the IDs of the deleted dishes.
	DeleteCategory(ctx context.Context, id string) ([]int64, error)

	// ListDishes returns one row per dish and category, ordered by dish name.
	ListDishes(ctx context.Context) ([]model.DishRow, error)

	// Menu returns the dishes grouped with all their categories.
	Menu(ctx context.Context) ([]model.Dish, error)

	// GetDish returns a single dish.
	GetDish(ctx context.Context, id int64) (*model.Dish, error)

	// CreateDish creates a dish in every requested category.
	CreateDish(ctx context.Context, req *model.DishRequest) (*model.DishResponse, error)

	// DeleteDish deletes a dish from every category.
	DeleteDish(ctx context.Context, id int64) error

	// UploadImage processes and uploads a raw image for later use on a dish.
	UploadImage(ctx context.Context, data []byte) (string, error)

	// StorageStatus reports whether image storage accepts writes.
	StorageStatus(ctx context.Context) storage.Availability
}

// OrderService defines operations for order management.
type OrderService interface {
	// Submit validates and stores an order, then notifies the restaurant.
	Submit(ctx context.Context, req *model.OrderRequest) (*model.OrderResponse, error)

	// Get retrieves a single order with its total.
	Get(ctx context.Context, id uuid.UUID) (*model.OrderSummary, error)

	// History returns all orders, newest first.
	History(ctx context.Context) ([]model.OrderSummary, error)

	// AttachMealPhoto processes, uploads and appends a photo to an order.
	AttachMealPhoto(ctx context.Context, id uuid.UUID, data []byte) (*model.PhotoResponse, error)
}

// CartService defines operations on session carts.
type CartService interface {
	// Get returns the current contents of a session cart without creating
	// one.
	Get(session uuid.UUID) cart.View

	// AddItem adds one unit of a dish to the cart.
	AddItem(ctx context.Context, session uuid.UUID, dishID int64) (cart.View, error)

	// UpdateItem sets the quantity of a dish in the cart, and its note when
	// given. A quantity below one removes the dish.
	UpdateItem(session uuid.UUID, dishID int64, quantity int, note *string) (cart.View, error)

	// RemoveItem removes a dish from the cart. Removing an absent dish is a
	// no-op.
	RemoveItem(session uuid.UUID, dishID int64) (cart.View, error)

	// Checkout submits the cart as an order and discards it.
	Checkout(ctx context.Context, session uuid.UUID, req *model.CheckoutRequest) (*model.OrderResponse, error)
}
