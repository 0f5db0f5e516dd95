package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"bistro/internal/model"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// MaxUploadBytes caps multipart image uploads.
const MaxUploadBytes = 10 << 20

// statusByCode maps domain error codes to HTTP status codes.
var statusByCode = map[string]int{
	model.ErrCodeInvalidJSON:         http.StatusBadRequest,
	model.ErrCodeMissingField:        http.StatusBadRequest,
	model.ErrCodeEmptyOrder:          http.StatusBadRequest,
	model.ErrCodeInvalidQuantity:     http.StatusBadRequest,
	model.ErrCodeInvalidPrice:        http.StatusBadRequest,
	model.ErrCodeNoCategory:          http.StatusBadRequest,
	model.ErrCodeUnknownCategory:     http.StatusBadRequest,
	model.ErrCodeInvalidImageData:    http.StatusBadRequest,
	model.ErrCodeImageDecode:         http.StatusBadRequest,
	model.ErrCodeImageCanvas:         http.StatusBadRequest,
	model.ErrCodeImageTooLarge:       http.StatusBadRequest,
	model.ErrCodeCategoryNotFound:    http.StatusNotFound,
	model.ErrCodeDishNotFound:        http.StatusNotFound,
	model.ErrCodeOrderNotFound:       http.StatusNotFound,
	model.ErrCodeDuplicateID:         http.StatusConflict,
	model.ErrCodeOperationInProgress: http.StatusConflict,
	model.ErrCodeUploadFailed:        http.StatusBadGateway,
	model.ErrCodeURLResolution:       http.StatusBadGateway,
	model.ErrCodeStorageUnavailable:  http.StatusServiceUnavailable,
	model.ErrCodeUnauthorised:        http.StatusUnauthorized,
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error body tagged with the request ID.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, logger zerolog.Logger) {
	requestID := chimiddleware.GetReqID(r.Context())

	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.
		Str("error_code", code).
		Str("error", message).
		Int("status", status).
		Str("request_id", requestID).
		Msg("handler error")

	writeJSON(w, status, model.ErrorResponse{
		Error:         code,
		Message:       message,
		CorrelationID: requestID,
	})
}

// writeServiceError maps a service error onto a response. Client errors keep
// their detail. Server-side domain errors report their generic message and
// log the wrapped cause. Anything else is reported as an internal error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	var domainErr *model.DomainError
	if errors.As(err, &domainErr) {
		status, ok := statusByCode[domainErr.Code]
		if !ok {
			status = http.StatusInternalServerError
		}

		message := err.Error()
		if status >= http.StatusInternalServerError {
			logger.Error().
				Err(err).
				Str("error_code", domainErr.Code).
				Str("request_id", chimiddleware.GetReqID(r.Context())).
				Msg("service error")
			message = domainErr.Message
		}
		writeError(w, r, status, domainErr.Code, message, logger)
		return
	}

	logger.Error().Err(err).Str("request_id", chimiddleware.GetReqID(r.Context())).Msg("unexpected service error")
	writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error", logger)
}

// decodeJSON decodes the request body into dst, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, logger zerolog.Logger) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", logger)
		return false
	}
	return true
}

// int64Param parses a numeric URL parameter, writing a 400 on failure.
func int64Param(w http.ResponseWriter, r *http.Request, name string, logger zerolog.Logger) (int64, bool) {
	value, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || value < 1 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, fmt.Sprintf("invalid %s", name), logger)
		return 0, false
	}
	return value, true
}

// readImage returns the bytes of the "image" multipart field.
func readImage(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)

	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeImageTooLarge, "upload exceeds 10 MiB", logger)
			return nil, false
		}
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "multipart form with an image field is required", logger)
		return nil, false
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "image file is required", logger)
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil || len(data) == 0 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidImageData, "image file could not be read", logger)
		return nil, false
	}

	return data, true
}
