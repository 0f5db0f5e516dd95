package service

import (
	"context"
	"fmt"

	"bistro/internal/cart"
	"bistro/internal/model"
	"bistro/internal/oplock"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// cartService implements CartService.
type cartService struct {
	carts  *cart.Store
	menu   MenuService
	orders OrderService
	locks  *oplock.Set
	logger zerolog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(
	carts *cart.Store,
	menu MenuService,
	orders OrderService,
	locks *oplock.Set,
	logger zerolog.Logger,
) CartService {
	return &cartService{
		carts:  carts,
		menu:   menu,
		orders: orders,
		locks:  locks,
		logger: logger.With().Str("service", "cart").Logger(),
	}
}

// Get returns the current contents of a session cart. An unknown session
// reads as an empty cart and is not stored.
func (s *cartService) Get(session uuid.UUID) cart.View {
	if c, ok := s.carts.Lookup(session); ok {
		return c.View()
	}
	return cart.New().View()
}

// AddItem looks the dish up and adds one unit of it to the cart.
func (s *cartService) AddItem(ctx context.Context, session uuid.UUID, dishID int64) (cart.View, error) {
	release, ok := s.lock(session)
	if !ok {
		return cart.View{}, model.ErrOperationInProgress
	}
	defer release()

	dish, err := s.menu.GetDish(ctx, dishID)
	if err != nil {
		return cart.View{}, err
	}

	c := s.carts.Get(session)
	c.AddItem(*dish)

	s.logger.Debug().
		Str("session", session.String()).
		Int64("dish_id", dishID).
		Msg("item added to cart")

	return c.View(), nil
}

// UpdateItem sets the quantity of a dish in the cart, and its note when given.
func (s *cartService) UpdateItem(session uuid.UUID, dishID int64, quantity int, note *string) (cart.View, error) {
	release, ok := s.lock(session)
	if !ok {
		return cart.View{}, model.ErrOperationInProgress
	}
	defer release()

	c, found := s.carts.Lookup(session)
	if !found || !c.SetQuantity(dishID, quantity) {
		return cart.View{}, fmt.Errorf("%w: %d is not in the cart", model.ErrDishNotFound, dishID)
	}
	if note != nil && quantity > 0 {
		c.SetNote(dishID, *note)
	}

	return c.View(), nil
}

// RemoveItem removes a dish from the cart.
func (s *cartService) RemoveItem(session uuid.UUID, dishID int64) (cart.View, error) {
	release, ok := s.lock(session)
	if !ok {
		return cart.View{}, model.ErrOperationInProgress
	}
	defer release()

	c, found := s.carts.Lookup(session)
	if !found {
		return cart.New().View(), nil
	}
	c.RemoveItem(dishID)
	return c.View(), nil
}

// Checkout submits the cart as an order. The cart is discarded only when the
// order was stored, so a failed checkout can be retried.
func (s *cartService) Checkout(ctx context.Context, session uuid.UUID, req *model.CheckoutRequest) (*model.OrderResponse, error) {
	release, ok := s.lock(session)
	if !ok {
		return nil, model.ErrOperationInProgress
	}
	defer release()

	c, found := s.carts.Lookup(session)
	if !found {
		return nil, model.ErrEmptyOrder
	}
	items := c.OrderItems()
	if len(items) == 0 {
		return nil, model.ErrEmptyOrder
	}

	if req == nil {
		req = &model.CheckoutRequest{}
	}

	resp, err := s.orders.Submit(ctx, &model.OrderRequest{
		Items:         items,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Notes:         req.Notes,
	})
	if err != nil {
		return nil, err
	}

	s.carts.Remove(session)

	s.logger.Info().
		Str("session", session.String()).
		Str("order_id", resp.OrderID.String()).
		Msg("cart checked out")

	return resp, nil
}

// lock claims the session cart for one mutation. Checkout holds it until the
// order is stored.
func (s *cartService) lock(session uuid.UUID) (func(), bool) {
	return s.locks.TryAcquire("cart:" + session.String())
}
