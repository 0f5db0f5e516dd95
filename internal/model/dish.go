package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlaceholderImage is stored when a caller explicitly gives up on an image upload.
const PlaceholderImage = "/placeholder.svg"

// Dish is a logical menu item together with every category it belongs to.
type Dish struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	CategoryIDs []string        `json:"categoryIds"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// DishRow is one (dish, category) membership, the flat shape returned by dish listings.
type DishRow struct {
	ID          int64           `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Image       string          `json:"image" db:"image"`
	CategoryID  string          `json:"categoryId" db:"category_id"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
}

// DishRequest represents the request payload for creating a dish.
type DishRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	CategoryIDs []string        `json:"categoryIds"`

	// PlaceholderOnFailure stores PlaceholderImage instead of failing
	// the request when the image upload does not succeed.
	PlaceholderOnFailure bool `json:"placeholderOnFailure,omitempty"`
}

// DishResponse represents the response payload for a created dish.
type DishResponse struct {
	Dish          Dish      `json:"dish"`
	Rows          []DishRow `json:"rows"`
	ImageFallback bool      `json:"imageFallback"`
}

// GroupDishes folds membership rows back into logical dishes.
// Rows are grouped by dish ID, so distinct dishes sharing a name stay distinct.
// The order of first appearance is preserved.
func GroupDishes(rows []DishRow) []Dish {
	dishes := make([]Dish, 0, len(rows))
	index := make(map[int64]int, len(rows))

	for _, row := range rows {
		if i, ok := index[row.ID]; ok {
			dishes[i].CategoryIDs = append(dishes[i].CategoryIDs, row.CategoryID)
			continue
		}
		index[row.ID] = len(dishes)
		dishes = append(dishes, Dish{
			ID:          row.ID,
			Name:        row.Name,
			Description: row.Description,
			Price:       row.Price,
			Image:       row.Image,
			CategoryIDs: []string{row.CategoryID},
			CreatedAt:   row.CreatedAt,
		})
	}

	return dishes
}
