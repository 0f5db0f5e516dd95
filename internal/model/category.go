package model

import (
	"strings"
	"time"
)

// DefaultCategoryColor is used when a category is created without a colour token.
const DefaultCategoryColor = "gray"

// Category groups dishes on the menu.
type Category struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Color       string    `json:"color" db:"color"`
	Description string    `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// CategoryRequest represents the request payload for creating a category.
type CategoryRequest struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Color       string `json:"color,omitempty"`
	Description string `json:"description,omitempty"`
}

// CategorySlug derives a category ID from its display name:
// lower-cased, with every run of whitespace replaced by a hyphen.
func CategorySlug(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}
