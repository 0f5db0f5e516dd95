package service

import (
	"context"
	"errors"
	"testing"

	"bistro/internal/model"
	"bistro/internal/oplock"
	"bistro/internal/storage"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type menuMocks struct {
	categories *MockCategoryRepository
	dishes     *MockDishRepository
	processor  *MockProcessor
	uploader   *MockUploader
	locks      *oplock.Set
}

func newMenuService() (MenuService, *menuMocks) {
	m := &menuMocks{
		categories: new(MockCategoryRepository),
		dishes:     new(MockDishRepository),
		processor:  new(MockProcessor),
		uploader:   new(MockUploader),
		locks:      &oplock.Set{},
	}
	svc := NewMenuService(m.categories, m.dishes, m.processor, m.uploader, m.locks, 2, zerolog.Nop())
	return svc, m
}

func TestMenuService_CreateCategory(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		req       *model.CategoryRequest
		setup     func(m *menuMocks)
		want      *model.Category
		wantErr   error
		repoCalls int
	}{
		{
			name: "Derives ID, colour and description",
			req:  &model.CategoryRequest{Name: "  Hot   Drinks "},
			setup: func(m *menuMocks) {
				m.categories.On("Create", ctx, mock.Anything).Return(nil)
			},
			want: &model.Category{
				ID:          "hot-drinks",
				Name:        "Hot   Drinks",
				Color:       "gray",
				Description: "Hot   Drinks category",
			},
			repoCalls: 1,
		},
		{
			name: "Keeps explicit values",
			req:  &model.CategoryRequest{ID: "mains", Name: "Mains", Color: "red", Description: "Big plates"},
			setup: func(m *menuMocks) {
				m.categories.On("Create", ctx, mock.Anything).Return(nil)
			},
			want:      &model.Category{ID: "mains", Name: "Mains", Color: "red", Description: "Big plates"},
			repoCalls: 1,
		},
		{
			name:    "Missing name",
			req:     &model.CategoryRequest{ID: "mains"},
			wantErr: model.ErrMissingField,
		},
		{
			name: "Duplicate ID",
			req:  &model.CategoryRequest{ID: "mains", Name: "Mains"},
			setup: func(m *menuMocks) {
				m.categories.On("Create", ctx, mock.Anything).Return(model.ErrDuplicateID)
			},
			wantErr:   model.ErrDuplicateID,
			repoCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newMenuService()
			if tt.setup != nil {
				tt.setup(m)
			}

			got, err := svc.CreateCategory(ctx, tt.req)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			m.categories.AssertNumberOfCalls(t, "Create", tt.repoCalls)
		})
	}
}

func TestMenuService_DeleteCategory(t *testing.T) {
	ctx := context.Background()

	t.Run("Returns removed dishes", func(t *testing.T) {
		svc, m := newMenuService()
		m.categories.On("DeleteCascade", ctx, "mains").Return([]int64{3, 7}, nil)

		removed, err := svc.DeleteCategory(ctx, "mains")
		require.NoError(t, err)
		assert.Equal(t, []int64{3, 7}, removed)
	})

	t.Run("Not found", func(t *testing.T) {
		svc, m := newMenuService()
		m.categories.On("DeleteCascade", ctx, "nope").Return(nil, model.ErrCategoryNotFound)

		_, err := svc.DeleteCategory(ctx, "nope")
		assert.ErrorIs(t, err, model.ErrCategoryNotFound)
	})

	t.Run("Operation in progress", func(t *testing.T) {
		svc, m := newMenuService()
		release, ok := m.locks.TryAcquire("category:mains")
		require.True(t, ok)
		defer release()

		_, err := svc.DeleteCategory(ctx, "mains")
		assert.ErrorIs(t, err, model.ErrOperationInProgress)
		m.categories.AssertNotCalled(t, "DeleteCascade", mock.Anything, mock.Anything)
	})
}

func TestMenuService_Menu(t *testing.T) {
	ctx := context.Background()
	svc, m := newMenuService()

	rows := []model.DishRow{
		{ID: 1, Name: "Lasagne", CategoryID: "mains"},
		{ID: 1, Name: "Lasagne", CategoryID: "specials"},
		{ID: 2, Name: "Lasagne", CategoryID: "kids"},
	}
	m.dishes.On("GetAll", ctx).Return(rows, nil)

	flat, err := svc.ListDishes(ctx)
	require.NoError(t, err)
	assert.Len(t, flat, 3)

	dishes, err := svc.Menu(ctx)
	require.NoError(t, err)
	require.Len(t, dishes, 2, "dishes sharing a name stay distinct")
	assert.Equal(t, []string{"mains", "specials"}, dishes[0].CategoryIDs)
	assert.Equal(t, []string{"kids"}, dishes[1].CategoryIDs)
}

func TestMenuService_GetDish(t *testing.T) {
	ctx := context.Background()
	svc, m := newMenuService()

	m.dishes.On("GetByID", ctx, int64(1)).Return([]model.DishRow{{ID: 1, Name: "Soup", CategoryID: "starters"}}, nil)
	m.dishes.On("GetByID", ctx, int64(2)).Return([]model.DishRow{}, nil)

	dish, err := svc.GetDish(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Soup", dish.Name)

	_, err = svc.GetDish(ctx, 2)
	assert.ErrorIs(t, err, model.ErrDishNotFound)
}

func TestMenuService_CreateDish(t *testing.T) {
	ctx := context.Background()
	price := decimal.RequireFromString("15.00")
	inline := "data:image/jpeg;base64,/9j/4AAQ"
	uploadErr := errors.New("storage down")

	tests := []struct {
		name         string
		req          *model.DishRequest
		setup        func(m *menuMocks)
		wantErr      error
		wantImage    string
		wantFallback bool
	}{
		{
			name: "Fans out to every category",
			req:  &model.DishRequest{Name: "Lasagne", Price: price, Image: "https://cdn/x.jpg", CategoryIDs: []string{"mains", "specials", "mains"}},
			setup: func(m *menuMocks) {
				m.categories.On("ValidateCategoriesExist", ctx, []string{"mains", "specials"}).Return(nil)
				m.dishes.On("Create", ctx, mock.Anything).Return([]model.DishRow{
					{ID: 1, CategoryID: "mains"}, {ID: 1, CategoryID: "specials"},
				}, nil)
			},
			wantImage: "https://cdn/x.jpg",
		},
		{
			name: "Uploads inline image",
			req:  &model.DishRequest{Name: "Lasagne", Price: price, Image: inline, CategoryIDs: []string{"mains"}},
			setup: func(m *menuMocks) {
				m.categories.On("ValidateCategoriesExist", ctx, []string{"mains"}).Return(nil)
				m.uploader.On("UploadWithRetry", ctx, inline, DishImagePrefix, 2).Return("https://cdn/dishes/1.jpg", nil)
				m.dishes.On("Create", ctx, mock.Anything).Return([]model.DishRow{{ID: 1, CategoryID: "mains"}}, nil)
			},
			wantImage: "https://cdn/dishes/1.jpg",
		},
		{
			name: "Upload failure is returned",
			req:  &model.DishRequest{Name: "Lasagne", Price: price, Image: inline, CategoryIDs: []string{"mains"}},
			setup: func(m *menuMocks) {
				m.categories.On("ValidateCategoriesExist", ctx, []string{"mains"}).Return(nil)
				m.uploader.On("UploadWithRetry", ctx, inline, DishImagePrefix, 2).Return("", uploadErr)
			},
			wantErr: uploadErr,
		},
		{
			name: "Placeholder when requested",
			req:  &model.DishRequest{Name: "Lasagne", Price: price, Image: inline, CategoryIDs: []string{"mains"}, PlaceholderOnFailure: true},
			setup: func(m *menuMocks) {
				m.categories.On("ValidateCategoriesExist", ctx, []string{"mains"}).Return(nil)
				m.uploader.On("UploadWithRetry", ctx, inline, DishImagePrefix, 2).Return("", uploadErr)
				m.dishes.On("Create", ctx, mock.Anything).Return([]model.DishRow{{ID: 1, CategoryID: "mains"}}, nil)
			},
			wantImage:    model.PlaceholderImage,
			wantFallback: true,
		},
		{
			name:    "No category",
			req:     &model.DishRequest{Name: "Lasagne", Price: price, CategoryIDs: []string{" "}},
			wantErr: model.ErrNoCategory,
		},
		{
			name:    "Negative price",
			req:     &model.DishRequest{Name: "Lasagne", Price: decimal.NewFromInt(-1), CategoryIDs: []string{"mains"}},
			wantErr: model.ErrInvalidPrice,
		},
		{
			name:    "Missing name",
			req:     &model.DishRequest{Price: price, CategoryIDs: []string{"mains"}},
			wantErr: model.ErrMissingField,
		},
		{
			name: "Unknown category",
			req:  &model.DishRequest{Name: "Lasagne", Price: price, CategoryIDs: []string{"ghost"}},
			setup: func(m *menuMocks) {
				m.categories.On("ValidateCategoriesExist", ctx, []string{"ghost"}).Return(model.ErrUnknownCategory)
			},
			wantErr: model.ErrUnknownCategory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newMenuService()
			if tt.setup != nil {
				tt.setup(m)
			}

			resp, err := svc.CreateDish(ctx, tt.req)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				m.dishes.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantImage, resp.Dish.Image)
			assert.Equal(t, tt.wantFallback, resp.ImageFallback)
			assert.NotEmpty(t, resp.Rows)
			m.dishes.AssertExpectations(t)
			m.uploader.AssertExpectations(t)
		})
	}
}

func TestMenuService_DeleteDish(t *testing.T) {
	ctx := context.Background()
	svc, m := newMenuService()

	m.dishes.On("Delete", ctx, int64(1)).Return(true, nil)
	m.dishes.On("Delete", ctx, int64(2)).Return(false, nil)

	assert.NoError(t, svc.DeleteDish(ctx, 1))
	assert.ErrorIs(t, svc.DeleteDish(ctx, 2), model.ErrDishNotFound)
}

func TestMenuService_UploadImage(t *testing.T) {
	ctx := context.Background()
	svc, m := newMenuService()

	raw := []byte("raw-png")
	m.processor.On("Process", raw, 800).Return("data:image/jpeg;base64,AAAA", nil)
	m.uploader.On("UploadWithRetry", ctx, "data:image/jpeg;base64,AAAA", DishImagePrefix, 2).Return("https://cdn/dishes/a.jpg", nil)

	url, err := svc.UploadImage(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/dishes/a.jpg", url)

	m.processor.On("Process", []byte("junk"), 800).Return("", model.ErrImageDecode)
	_, err = svc.UploadImage(ctx, []byte("junk"))
	assert.ErrorIs(t, err, model.ErrImageDecode)
}

func TestMenuService_StorageStatus(t *testing.T) {
	ctx := context.Background()
	svc, m := newMenuService()

	m.uploader.On("CheckAvailability", ctx).Return(storage.Availability{Ready: true, Bucket: "food-images"})

	assert.True(t, svc.StorageStatus(ctx).Ready)
}
