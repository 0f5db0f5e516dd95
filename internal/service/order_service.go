package service

import (
	"context"
	"fmt"
	"path"
	"strings"

	"bistro/internal/imaging"
	"bistro/internal/model"
	"bistro/internal/notify"
	"bistro/internal/oplock"
	"bistro/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// orderService implements OrderService.
type orderService struct {
	orderRepo repository.OrderRepository
	notifier  notify.Notifier
	processor ImageProcessor
	uploader  ImageUploader
	locks     *oplock.Set
	retries   int
	logger    zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	notifier notify.Notifier,
	processor ImageProcessor,
	uploader ImageUploader,
	locks *oplock.Set,
	retries int,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		notifier:  notifier,
		processor: processor,
		uploader:  uploader,
		locks:     locks,
		retries:   retries,
		logger:    logger.With().Str("service", "order").Logger(),
	}
}

// Submit validates and stores an order, then notifies the restaurant.
// Notification failures are logged and never fail the order.
func (s *orderService) Submit(ctx context.Context, req *model.OrderRequest) (*model.OrderResponse, error) {
	if err := s.validateOrderRequest(req); err != nil {
		return nil, err
	}

	order := &model.Order{
		ID:            uuid.New(),
		Items:         req.Items,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerEmail: optional(req.CustomerEmail),
		Notes:         optional(req.Notes),
		Images:        []string{},
	}
	if order.CustomerName == "" {
		order.CustomerName = model.DefaultCustomerName
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to create order")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Int("item_count", len(order.Items)).
		Str("total", order.Total().StringFixed(2)).
		Msg("order created successfully")

	if s.notifier != nil {
		if err := s.notifier.OrderPlaced(ctx, order); err != nil {
			s.logger.Warn().Err(err).Str("order_id", order.ID.String()).Msg("failed to notify about order")
		}
	}

	return &model.OrderResponse{
		Success: true,
		Message: "Order received",
		OrderID: order.ID,
	}, nil
}

// Get retrieves a single order with its total.
func (s *orderService) Get(ctx context.Context, id uuid.UUID) (*model.OrderSummary, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, fmt.Errorf("%w: %s", model.ErrOrderNotFound, id)
	}

	summary := model.NewOrderSummary(*order)
	return &summary, nil
}

// History returns all orders, newest first, each with its derived total.
func (s *orderService) History(ctx context.Context) ([]model.OrderSummary, error) {
	orders, err := s.orderRepo.GetAll(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	summaries := make([]model.OrderSummary, 0, len(orders))
	for _, order := range orders {
		summaries = append(summaries, model.NewOrderSummary(order))
	}
	return summaries, nil
}

// AttachMealPhoto processes, uploads and appends a photo to an order.
// Only one photo per order is processed at a time.
func (s *orderService) AttachMealPhoto(ctx context.Context, id uuid.UUID, data []byte) (*model.PhotoResponse, error) {
	release, ok := s.locks.TryAcquire("order:" + id.String())
	if !ok {
		return nil, model.ErrOperationInProgress
	}
	defer release()

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, fmt.Errorf("%w: %s", model.ErrOrderNotFound, id)
	}

	dataURL, err := s.processor.Process(data, imaging.DefaultMaxWidth)
	if err != nil {
		s.logger.Warn().Err(err).Str("order_id", id.String()).Msg("failed to process meal photo")
		return nil, err
	}
	if len(dataURL) > MaxMealPhotoBytes {
		return nil, fmt.Errorf("%w: processed photo is %d bytes, limit is %d", model.ErrImageTooLarge, len(dataURL), MaxMealPhotoBytes)
	}

	url, err := s.uploader.UploadWithRetry(ctx, dataURL, path.Join(OrderImagePrefix, id.String()), s.retries)
	if err != nil {
		s.logger.Warn().Err(err).Str("order_id", id.String()).Msg("failed to upload meal photo")
		return nil, err
	}

	images, err := s.orderRepo.AppendImage(ctx, id, url)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to attach meal photo")
		return nil, fmt.Errorf("failed to attach meal photo: %w", err)
	}

	s.logger.Info().
		Str("order_id", id.String()).
		Int("images", len(images)).
		Msg("meal photo attached")

	return &model.PhotoResponse{URL: url, Images: images}, nil
}

// validateOrderRequest validates the order request.
func (s *orderService) validateOrderRequest(req *model.OrderRequest) error {
	if req == nil || len(req.Items) == 0 {
		return model.ErrEmptyOrder
	}

	for i, item := range req.Items {
		if strings.TrimSpace(item.DishName) == "" {
			return fmt.Errorf("%w: item %d has no dish name", model.ErrMissingField, i)
		}

		if item.Quantity < 1 {
			s.logger.Warn().
				Int("item_index", i).
				Str("dish_name", item.DishName).
				Int("quantity", item.Quantity).
				Msg("invalid quantity")
			return model.ErrInvalidQuantity
		}

		if item.Price.IsNegative() {
			return model.ErrInvalidPrice
		}
	}

	return nil
}

// optional trims s and maps empty strings to nil.
func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
