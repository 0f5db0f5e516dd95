package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCustomerName is recorded when an order is submitted without a name.
const DefaultCustomerName = "Customer"

// Order represents a customer order.
type Order struct {
	ID            uuid.UUID   `json:"id" db:"id"`
	Items         []OrderItem `json:"items" db:"items"`
	CustomerName  string      `json:"customerName" db:"customer_name"`
	CustomerEmail *string     `json:"customerEmail,omitempty" db:"customer_email"`
	Notes         *string     `json:"notes,omitempty" db:"notes"`
	CreatedAt     time.Time   `json:"createdAt" db:"created_at"`
	Images        []string    `json:"images" db:"images"`
}

// OrderItem represents a line item in an order. Items are stored as a JSON
// document on the order, so name and price are a snapshot taken at submission.
type OrderItem struct {
	DishID   int64           `json:"dishId"`
	DishName string          `json:"dishName"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Note     string          `json:"note,omitempty"`
}

// Subtotal returns price multiplied by quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Total sums the item subtotals. No total is persisted, so it is always derived.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// OrderRequest represents the request payload for creating an order.
type OrderRequest struct {
	Items         []OrderItem `json:"items"`
	CustomerName  string      `json:"customerName"`
	CustomerEmail *string     `json:"customerEmail,omitempty"`
	Notes         *string     `json:"notes,omitempty"`
}

// OrderResponse represents the response payload for a submitted order.
type OrderResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	OrderID uuid.UUID `json:"orderId"`
}

// OrderSummary is an order as shown in the order history, with its derived total.
type OrderSummary struct {
	Order
	Total string `json:"total"`
}

// NewOrderSummary derives the display total of an order to two decimal places.
func NewOrderSummary(order Order) OrderSummary {
	return OrderSummary{
		Order: order,
		Total: order.Total().StringFixed(2),
	}
}

// PhotoResponse represents the response payload for an attached meal photo.
type PhotoResponse struct {
	URL    string   `json:"url"`
	Images []string `json:"images"`
}

// ImageResponse represents the response payload for an uploaded menu image.
type ImageResponse struct {
	URL string `json:"url"`
}

// CheckoutRequest carries the customer details submitted with a cart.
type CheckoutRequest struct {
	CustomerName  string  `json:"customerName"`
	CustomerEmail *string `json:"customerEmail,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}
