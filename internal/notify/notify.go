// Package notify tells restaurant staff about newly placed orders.
package notify

import (
	"context"
	"errors"

	"bistro/internal/model"
)

// Notifier delivers a new-order notification.
type Notifier interface {
	OrderPlaced(ctx context.Context, order *model.Order) error
}

// Multi fans a notification out to every notifier and joins their errors.
// A failing notifier does not stop the others.
type Multi []Notifier

// OrderPlaced implements Notifier.
func (m Multi) OrderPlaced(ctx context.Context, order *model.Order) error {
	var errs []error
	for _, n := range m {
		if err := n.OrderPlaced(ctx, order); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
