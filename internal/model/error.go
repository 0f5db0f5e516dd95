package model

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON         = "INVALID_JSON"
	ErrCodeMissingField        = "MISSING_FIELD"
	ErrCodeEmptyOrder          = "EMPTY_ORDER"
	ErrCodeInvalidQuantity     = "INVALID_QUANTITY"
	ErrCodeInvalidPrice        = "INVALID_PRICE"
	ErrCodeNoCategory          = "NO_CATEGORY"
	ErrCodeUnknownCategory     = "UNKNOWN_CATEGORY"
	ErrCodeDuplicateID         = "DUPLICATE_ID"
	ErrCodeCategoryNotFound    = "CATEGORY_NOT_FOUND"
	ErrCodeDishNotFound        = "DISH_NOT_FOUND"
	ErrCodeOrderNotFound       = "ORDER_NOT_FOUND"
	ErrCodeInvalidImageData    = "INVALID_IMAGE_DATA"
	ErrCodeImageDecode         = "IMAGE_DECODE_FAILED"
	ErrCodeImageCanvas         = "IMAGE_CANVAS_FAILED"
	ErrCodeImageTooLarge       = "IMAGE_TOO_LARGE"
	ErrCodeStorageUnavailable  = "STORAGE_UNAVAILABLE"
	ErrCodeUploadFailed        = "UPLOAD_FAILED"
	ErrCodeURLResolution       = "URL_RESOLUTION_FAILED"
	ErrCodeOperationInProgress = "OPERATION_IN_PROGRESS"
	ErrCodeUnauthorised        = "UNAUTHORIZED"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

// DomainError is a business-level failure carrying a stable code.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Validation errors are reported to the caller and never retried.
var (
	ErrMissingField     = NewDomainError(ErrCodeMissingField, "A required field is missing")
	ErrEmptyOrder       = NewDomainError(ErrCodeEmptyOrder, "Order must contain at least one item")
	ErrInvalidQuantity  = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrInvalidPrice     = NewDomainError(ErrCodeInvalidPrice, "Price must not be negative")
	ErrNoCategory       = NewDomainError(ErrCodeNoCategory, "At least one category is required")
	ErrUnknownCategory  = NewDomainError(ErrCodeUnknownCategory, "Category does not exist")
	ErrInvalidImageData = NewDomainError(ErrCodeInvalidImageData, "Image must be a base64 data:image URL")
	ErrImageDecode      = NewDomainError(ErrCodeImageDecode, "Image could not be decoded")
	ErrImageCanvas      = NewDomainError(ErrCodeImageCanvas, "Image canvas could not be created")
	ErrImageTooLarge    = NewDomainError(ErrCodeImageTooLarge, "Image is too large")
)

// Lookup and conflict errors.
var (
	ErrDuplicateID         = NewDomainError(ErrCodeDuplicateID, "An entry with this ID already exists")
	ErrCategoryNotFound    = NewDomainError(ErrCodeCategoryNotFound, "Category not found")
	ErrDishNotFound        = NewDomainError(ErrCodeDishNotFound, "Dish not found")
	ErrOrderNotFound       = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrOperationInProgress = NewDomainError(ErrCodeOperationInProgress, "Another operation on this entry is in progress")
)

// Remote storage errors. Callers get these with the underlying cause attached.
var (
	ErrStorageUnavailable = NewDomainError(ErrCodeStorageUnavailable, "Image storage is unavailable")
	ErrUpload             = NewDomainError(ErrCodeUploadFailed, "Image upload failed")
	ErrURLResolution      = NewDomainError(ErrCodeURLResolution, "Public image URL could not be resolved")
)
