package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"bistro/internal/imaging"
	"bistro/internal/model"
	"bistro/internal/oplock"
	"bistro/internal/repository"
	"bistro/internal/storage"

	"github.com/rs/zerolog"
)

// menuService implements MenuService.
type menuService struct {
	categoryRepo repository.CategoryRepository
	dishRepo     repository.DishRepository
	processor    ImageProcessor
	uploader     ImageUploader
	locks        *oplock.Set
	retries      int
	logger       zerolog.Logger
}

// NewMenuService creates a new menu service.
func NewMenuService(
	categoryRepo repository.CategoryRepository,
	dishRepo repository.DishRepository,
	processor ImageProcessor,
	uploader ImageUploader,
	locks *oplock.Set,
	retries int,
	logger zerolog.Logger,
) MenuService {
	return &menuService{
		categoryRepo: categoryRepo,
		dishRepo:     dishRepo,
		processor:    processor,
		uploader:     uploader,
		locks:        locks,
		retries:      retries,
		logger:       logger.With().Str("service", "menu").Logger(),
	}
}

// ListCategories returns all categories ordered by name.
func (s *menuService) ListCategories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.categoryRepo.GetAll(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list categories")
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// CreateCategory creates a category. The ID defaults to the slug of the name,
// the colour to gray and the description to "<name> category".
func (s *menuService) CreateCategory(ctx context.Context, req *model.CategoryRequest) (*model.Category, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: category", model.ErrMissingField)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name", model.ErrMissingField)
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = model.CategorySlug(name)
	}

	category := &model.Category{
		ID:          id,
		Name:        name,
		Color:       strings.TrimSpace(req.Color),
		Description: strings.TrimSpace(req.Description),
	}
	if category.Color == "" {
		category.Color = model.DefaultCategoryColor
	}
	if category.Description == "" {
		category.Description = name + " category"
	}

	release, ok := s.locks.TryAcquire("category:" + id)
	if !ok {
		return nil, model.ErrOperationInProgress
	}
	defer release()

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if errors.Is(err, model.ErrDuplicateID) {
			s.logger.Warn().Str("category_id", id).Msg("duplicate category ID")
			return nil, err
		}
		s.logger.Error().Err(err).Str("category_id", id).Msg("failed to create category")
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.logger.Info().Str("category_id", id).Msg("category created")

	return category, nil
}

// DeleteCategory deletes a category and every dish left without one.
func (s *menuService) DeleteCategory(ctx context.Context, id string) ([]int64, error) {
	release, ok := s.locks.TryAcquire("category:" + id)
	if !ok {
		return nil, model.ErrOperationInProgress
	}
	defer release()

	removed, err := s.categoryRepo.DeleteCascade(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrCategoryNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("category_id", id).Msg("failed to delete category")
		return nil, fmt.Errorf("failed to delete category: %w", err)
	}

	s.logger.Info().
		Str("category_id", id).
		Int("dishes_removed", len(removed)).
		Msg("category deleted")

	return removed, nil
}

// ListDishes returns one row per dish and category, ordered by dish name.
func (s *menuService) ListDishes(ctx context.Context) ([]model.DishRow, error) {
	rows, err := s.dishRepo.GetAll(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list dishes")
		return nil, fmt.Errorf("failed to list dishes: %w", err)
	}
	return rows, nil
}

// Menu returns the dishes grouped with all their categories.
func (s *menuService) Menu(ctx context.Context) ([]model.Dish, error) {
	rows, err := s.ListDishes(ctx)
	if err != nil {
		return nil, err
	}
	return model.GroupDishes(rows), nil
}

// GetDish returns a single dish.
func (s *menuService) GetDish(ctx context.Context, id int64) (*model.Dish, error) {
	rows, err := s.dishRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Int64("dish_id", id).Msg("failed to get dish")
		return nil, fmt.Errorf("failed to get dish: %w", err)
	}

	dishes := model.GroupDishes(rows)
	if len(dishes) == 0 {
		return nil, fmt.Errorf("%w: %d", model.ErrDishNotFound, id)
	}
	return &dishes[0], nil
}

// CreateDish validates the request, uploads an inline image and stores the
// dish with one membership per category.
func (s *menuService) CreateDish(ctx context.Context, req *model.DishRequest) (*model.DishResponse, error) {
	dish, err := s.validateDishRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	release, ok := s.locks.TryAcquire("dish-name:" + strings.ToLower(dish.Name))
	if !ok {
		return nil, model.ErrOperationInProgress
	}
	defer release()

	fallback := false
	if strings.HasPrefix(dish.Image, "data:") {
		url, err := s.uploader.UploadWithRetry(ctx, dish.Image, DishImagePrefix, s.retries)
		switch {
		case err == nil:
			dish.Image = url
		case req.PlaceholderOnFailure:
			s.logger.Warn().Err(err).Str("dish_name", dish.Name).Msg("image upload failed, storing placeholder")
			dish.Image = model.PlaceholderImage
			fallback = true
		default:
			s.logger.Warn().Err(err).Str("dish_name", dish.Name).Msg("image upload failed")
			return nil, err
		}
	}

	rows, err := s.dishRepo.Create(ctx, dish)
	if err != nil {
		if errors.Is(err, model.ErrUnknownCategory) || errors.Is(err, model.ErrDuplicateID) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("dish_name", dish.Name).Msg("failed to create dish")
		return nil, fmt.Errorf("failed to create dish: %w", err)
	}

	s.logger.Info().
		Int64("dish_id", dish.ID).
		Strs("categories", dish.CategoryIDs).
		Bool("image_fallback", fallback).
		Msg("dish created")

	return &model.DishResponse{
		Dish:          *dish,
		Rows:          rows,
		ImageFallback: fallback,
	}, nil
}

// DeleteDish deletes a dish from every category.
func (s *menuService) DeleteDish(ctx context.Context, id int64) error {
	release, ok := s.locks.TryAcquire("dish:" + strconv.FormatInt(id, 10))
	if !ok {
		return model.ErrOperationInProgress
	}
	defer release()

	deleted, err := s.dishRepo.Delete(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Int64("dish_id", id).Msg("failed to delete dish")
		return fmt.Errorf("failed to delete dish: %w", err)
	}
	if !deleted {
		return fmt.Errorf("%w: %d", model.ErrDishNotFound, id)
	}

	s.logger.Info().Int64("dish_id", id).Msg("dish deleted")

	return nil
}

// UploadImage processes and uploads a raw image for later use on a dish.
func (s *menuService) UploadImage(ctx context.Context, data []byte) (string, error) {
	dataURL, err := s.processor.Process(data, imaging.DefaultMaxWidth)
	if err != nil {
		return "", err
	}

	url, err := s.uploader.UploadWithRetry(ctx, dataURL, DishImagePrefix, s.retries)
	if err != nil {
		s.logger.Warn().Err(err).Msg("image upload failed")
		return "", err
	}

	return url, nil
}

// StorageStatus reports whether image storage accepts writes.
func (s *menuService) StorageStatus(ctx context.Context) storage.Availability {
	return s.uploader.CheckAvailability(ctx)
}

// validateDishRequest checks the request and returns the dish to store.
func (s *menuService) validateDishRequest(ctx context.Context, req *model.DishRequest) (*model.Dish, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: dish", model.ErrMissingField)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name", model.ErrMissingField)
	}

	if req.Price.IsNegative() {
		return nil, model.ErrInvalidPrice
	}

	categoryIDs := make([]string, 0, len(req.CategoryIDs))
	for _, id := range req.CategoryIDs {
		id = strings.TrimSpace(id)
		if id != "" && !slices.Contains(categoryIDs, id) {
			categoryIDs = append(categoryIDs, id)
		}
	}
	if len(categoryIDs) == 0 {
		return nil, model.ErrNoCategory
	}

	if err := s.categoryRepo.ValidateCategoriesExist(ctx, categoryIDs); err != nil {
		if errors.Is(err, model.ErrUnknownCategory) {
			s.logger.Warn().Err(err).Str("dish_name", name).Msg("dish references unknown category")
			return nil, err
		}
		return nil, fmt.Errorf("failed to validate categories: %w", err)
	}

	return &model.Dish{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		Image:       strings.TrimSpace(req.Image),
		CategoryIDs: categoryIDs,
	}, nil
}
