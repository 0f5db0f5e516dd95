package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"bistro/internal/model"
	"bistro/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SessionHeader carries the cart session ID in both directions.
const SessionHeader = "X-Cart-Session"

// addItemRequest is the body of POST /api/cart/items.
type addItemRequest struct {
	DishID int64 `json:"dishId"`
}

// updateItemRequest is the body of PUT /api/cart/items/{dishId}.
type updateItemRequest struct {
	Quantity int     `json:"quantity"`
	Note     *string `json:"note,omitempty"`
}

// CartHandler handles cart HTTP requests.
type CartHandler struct {
	service service.CartService
	logger  zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(service service.CartService, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		logger:  logger.With().Str("handler", "cart").Logger(),
	}
}

// Get handles GET /api/cart requests.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	writeJSON(w, http.StatusOK, h.service.Get(session))
}

// AddItem handles POST /api/cart/items requests.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)

	var req addItemRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}
	if req.DishID < 1 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "dishId is required", h.logger)
		return
	}

	view, err := h.service.AddItem(r.Context(), session, req.DishID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UpdateItem handles PUT /api/cart/items/{dishId} requests.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)

	dishID, ok := int64Param(w, r, "dishId", h.logger)
	if !ok {
		return
	}

	var req updateItemRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	view, err := h.service.UpdateItem(session, dishID, req.Quantity, req.Note)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// RemoveItem handles DELETE /api/cart/items/{dishId} requests.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)

	dishID, ok := int64Param(w, r, "dishId", h.logger)
	if !ok {
		return
	}

	view, err := h.service.RemoveItem(session, dishID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Checkout handles POST /api/cart/checkout requests.
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)

	// The body is optional.
	var req model.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	resp, err := h.service.Checkout(r.Context(), session, &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// session reads the cart session from the request, issuing a new one when it
// is missing or malformed. The session is echoed in the response header.
func (h *CartHandler) session(w http.ResponseWriter, r *http.Request) uuid.UUID {
	id, err := uuid.Parse(r.Header.Get(SessionHeader))
	if err != nil {
		id = uuid.New()
		h.logger.Debug().Str("session", id.String()).Msg("new cart session")
	}
	w.Header().Set(SessionHeader, id.String())
	return id
}
