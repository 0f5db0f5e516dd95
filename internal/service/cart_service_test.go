package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"bistro/internal/cart"
	"bistro/internal/model"
	"bistro/internal/oplock"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newCartService() (CartService, *cart.Store, *MockMenuService, *MockOrderService, *oplock.Set) {
	store := cart.NewStore(time.Hour)
	menu := new(MockMenuService)
	orders := new(MockOrderService)
	locks := &oplock.Set{}
	return NewCartService(store, menu, orders, locks, zerolog.Nop()), store, menu, orders, locks
}

func TestCartService_AddUpdateRemove(t *testing.T) {
	ctx := context.Background()
	svc, _, menu, _, _ := newCartService()
	session := uuid.New()

	menu.On("GetDish", ctx, int64(1)).Return(&model.Dish{ID: 1, Name: "Burger", Price: decimal.RequireFromString("12.90")}, nil)
	menu.On("GetDish", ctx, int64(9)).Return(nil, model.ErrDishNotFound)

	view, err := svc.AddItem(ctx, session, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Count)

	_, err = svc.AddItem(ctx, session, 9)
	assert.ErrorIs(t, err, model.ErrDishNotFound)

	note := "no onions"
	view, err = svc.UpdateItem(session, 1, 3, &note)
	require.NoError(t, err)
	assert.Equal(t, 3, view.Count)
	assert.Equal(t, "38.70", view.Total)
	assert.Equal(t, "no onions", view.Items[0].Note)

	_, err = svc.UpdateItem(session, 9, 1, nil)
	assert.ErrorIs(t, err, model.ErrDishNotFound)

	view, err = svc.RemoveItem(session, 1)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Equal(t, "0.00", svc.Get(session).Total)
}

func TestCartService_Checkout(t *testing.T) {
	ctx := context.Background()
	svc, store, _, orders, _ := newCartService()
	session := uuid.New()

	store.Get(session).AddItem(model.Dish{ID: 1, Name: "Burger", Price: decimal.RequireFromString("12.90")})

	orderID := uuid.New()
	orders.On("Submit", ctx, mock.MatchedBy(func(req *model.OrderRequest) bool {
		return len(req.Items) == 1 && req.Items[0].DishName == "Burger" && req.CustomerName == "Jo"
	})).Return(&model.OrderResponse{Success: true, OrderID: orderID}, nil)

	resp, err := svc.Checkout(ctx, session, &model.CheckoutRequest{CustomerName: "Jo"})

	require.NoError(t, err)
	assert.Equal(t, orderID, resp.OrderID)
	assert.Equal(t, 0, store.Get(session).Len(), "cart is discarded after checkout")
}

func TestCartService_Checkout_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty cart", func(t *testing.T) {
		svc, _, _, orders, _ := newCartService()

		_, err := svc.Checkout(ctx, uuid.New(), nil)
		assert.ErrorIs(t, err, model.ErrEmptyOrder)
		orders.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
	})

	t.Run("Submit failure keeps the cart", func(t *testing.T) {
		svc, store, _, orders, _ := newCartService()
		session := uuid.New()
		store.Get(session).AddItem(model.Dish{ID: 1, Name: "Burger", Price: decimal.NewFromInt(10)})
		orders.On("Submit", ctx, mock.Anything).Return(nil, errors.New("db down"))

		_, err := svc.Checkout(ctx, session, nil)
		require.Error(t, err)
		assert.Equal(t, 1, store.Get(session).Len())
	})

	t.Run("Concurrent checkout", func(t *testing.T) {
		svc, store, _, _, locks := newCartService()
		session := uuid.New()
		store.Get(session).AddItem(model.Dish{ID: 1, Name: "Burger", Price: decimal.NewFromInt(10)})

		release, ok := locks.TryAcquire("cart:" + session.String())
		require.True(t, ok)
		defer release()

		_, err := svc.Checkout(ctx, session, nil)
		assert.ErrorIs(t, err, model.ErrOperationInProgress)
	})
}

func TestCartService_Get_DoesNotStore(t *testing.T) {
	svc, store, _, _, _ := newCartService()

	for i := 0; i < 100; i++ {
		view := svc.Get(uuid.New())
		assert.Empty(t, view.Items)
		assert.Equal(t, "0.00", view.Total)
	}

	assert.Equal(t, 0, store.Len())
}

func TestCartService_RemoveAndUpdate_UnknownSession(t *testing.T) {
	svc, store, _, _, _ := newCartService()
	session := uuid.New()

	view, err := svc.RemoveItem(session, 1)
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	_, err = svc.UpdateItem(session, 1, 2, nil)
	assert.ErrorIs(t, err, model.ErrDishNotFound)

	assert.Equal(t, 0, store.Len())
}

func TestCartService_MutationsDuringCheckout(t *testing.T) {
	ctx := context.Background()
	svc, store, menu, orders, _ := newCartService()
	session := uuid.New()

	store.Get(session).AddItem(model.Dish{ID: 1, Name: "Burger", Price: decimal.RequireFromString("12.90")})
	menu.On("GetDish", ctx, int64(2)).Return(&model.Dish{ID: 2, Name: "Pasta", Price: decimal.RequireFromString("9.50")}, nil).Maybe()

	var addErr, updateErr, removeErr error
	orders.On("Submit", ctx, mock.Anything).
		Run(func(mock.Arguments) {
			_, addErr = svc.AddItem(ctx, session, 2)
			_, updateErr = svc.UpdateItem(session, 1, 5, nil)
			_, removeErr = svc.RemoveItem(session, 1)
		}).
		Return(&model.OrderResponse{Success: true, OrderID: uuid.New()}, nil)

	_, err := svc.Checkout(ctx, session, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, addErr, model.ErrOperationInProgress)
	assert.ErrorIs(t, updateErr, model.ErrOperationInProgress)
	assert.ErrorIs(t, removeErr, model.ErrOperationInProgress)
	orders.AssertNumberOfCalls(t, "Submit", 1)
	menu.AssertNotCalled(t, "GetDish", mock.Anything, mock.Anything)

	// The lock is released once checkout returns.
	view, err := svc.AddItem(ctx, session, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Count)
}
