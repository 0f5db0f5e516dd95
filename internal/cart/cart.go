// Package cart holds the per-session shopping carts of customers.
package cart

import (
	"sync"

	"bistro/internal/model"

	"github.com/shopspring/decimal"
)

// Item is a dish snapshot with a quantity of at least one.
type Item struct {
	DishID   int64           `json:"dishId"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image,omitempty"`
	Quantity int             `json:"quantity"`
	Note     string          `json:"note,omitempty"`
}

// Subtotal returns price multiplied by quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is an ordered list of items keyed by dish ID. It is safe for
// concurrent use.
type Cart struct {
	mu    sync.Mutex
	items []Item
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// AddItem adds one unit of dish, or increments its quantity if it is
// already in the cart.
func (c *Cart) AddItem(dish model.Dish) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.index(dish.ID); i >= 0 {
		c.items[i].Quantity++
		return
	}

	c.items = append(c.items, Item{
		DishID:   dish.ID,
		Name:     dish.Name,
		Price:    dish.Price,
		Image:    dish.Image,
		Quantity: 1,
	})
}

// RemoveItem drops a dish from the cart. Removing an absent dish is a no-op.
func (c *Cart) RemoveItem(dishID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.index(dishID); i >= 0 {
		c.items = append(c.items[:i], c.items[i+1:]...)
	}
}

// SetQuantity sets the quantity of a dish already in the cart. A quantity
// below one removes it. It reports whether the dish was in the cart.
func (c *Cart) SetQuantity(dishID int64, quantity int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.index(dishID)
	if i < 0 {
		return false
	}

	if quantity < 1 {
		c.items = append(c.items[:i], c.items[i+1:]...)
		return true
	}

	c.items[i].Quantity = quantity
	return true
}

// SetNote attaches a free-text note to a dish in the cart.
func (c *Cart) SetNote(dishID int64, note string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.index(dishID)
	if i < 0 {
		return false
	}
	c.items[i].Note = note
	return true
}

// Total returns the exact sum of all subtotals.
func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Items returns a copy of the cart contents in insertion order.
func (c *Cart) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]Item, len(c.items))
	copy(items, c.items)
	return items
}

// Len returns the number of distinct dishes in the cart.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}

// OrderItems converts the cart into order lines.
func (c *Cart) OrderItems() []model.OrderItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := make([]model.OrderItem, 0, len(c.items))
	for _, item := range c.items {
		lines = append(lines, model.OrderItem{
			DishID:   item.DishID,
			DishName: item.Name,
			Quantity: item.Quantity,
			Price:    item.Price,
			Note:     item.Note,
		})
	}
	return lines
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = nil
}

func (c *Cart) index(dishID int64) int {
	for i, item := range c.items {
		if item.DishID == dishID {
			return i
		}
	}
	return -1
}

// View is the JSON shape of a cart.
type View struct {
	Items []Item `json:"items"`
	Count int    `json:"count"`
	Total string `json:"total"`
}

// View snapshots the cart for rendering.
func (c *Cart) View() View {
	items := c.Items()

	count := 0
	total := decimal.Zero
	for _, item := range items {
		count += item.Quantity
		total = total.Add(item.Subtotal())
	}

	return View{Items: items, Count: count, Total: total.StringFixed(2)}
}
