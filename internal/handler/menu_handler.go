package handler

import (
	"net/http"

	"bistro/internal/model"
	"bistro/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// MenuHandler handles category, dish and image HTTP requests.
type MenuHandler struct {
	service service.MenuService
	logger  zerolog.Logger
}

// NewMenuHandler creates a new menu handler.
func NewMenuHandler(service service.MenuService, logger zerolog.Logger) *MenuHandler {
	return &MenuHandler{
		service: service,
		logger:  logger.With().Str("handler", "menu").Logger(),
	}
}

// ListCategories handles GET /api/categories requests.
func (h *MenuHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// CreateCategory handles POST /api/admin/categories requests.
func (h *MenuHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req model.CategoryRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	category, err := h.service.CreateCategory(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

// DeleteCategory handles DELETE /api/admin/categories/{id} requests.
func (h *MenuHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	removed, err := h.service.DeleteCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deletedDishIds": removed})
}

// ListDishes handles GET /api/dishes requests. One row is returned per
// dish and category.
func (h *MenuHandler) ListDishes(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ListDishes(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// Menu handles GET /api/menu requests.
func (h *MenuHandler) Menu(w http.ResponseWriter, r *http.Request) {
	dishes, err := h.service.Menu(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, dishes)
}

// GetDish handles GET /api/dishes/{id} requests.
func (h *MenuHandler) GetDish(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id", h.logger)
	if !ok {
		return
	}

	dish, err := h.service.GetDish(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, dish)
}

// CreateDish handles POST /api/admin/dishes requests.
func (h *MenuHandler) CreateDish(w http.ResponseWriter, r *http.Request) {
	var req model.DishRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	resp, err := h.service.CreateDish(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// DeleteDish handles DELETE /api/admin/dishes/{id} requests.
func (h *MenuHandler) DeleteDish(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id", h.logger)
	if !ok {
		return
	}

	if err := h.service.DeleteDish(r.Context(), id); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage handles POST /api/admin/images requests.
func (h *MenuHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	data, ok := readImage(w, r, h.logger)
	if !ok {
		return
	}

	url, err := h.service.UploadImage(r.Context(), data)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, model.ImageResponse{URL: url})
}

// StorageStatus handles GET /api/admin/storage requests.
func (h *MenuHandler) StorageStatus(w http.ResponseWriter, r *http.Request) {
	status := h.service.StorageStatus(r.Context())
	if !status.Ready {
		writeJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
