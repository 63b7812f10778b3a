package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal     ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidBody      ErrorCode = "invalid_body"
	ErrCodeInvalidAmount    ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidCurrency  ErrorCode = "INVALID_CURRENCY"

	ErrCodeUnauthorized ErrorCode = "unauthorized"
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"

	ErrCodeProviderError      ErrorCode = "provider_error"
	ErrCodeDBInsertFailed     ErrorCode = "db_insert_failed"
	ErrCodeSchemaMissing      ErrorCode = "schema_missing"
	ErrCodeDBPermissionDenied ErrorCode = "db_permission_denied"

	ErrCodeOrderNotFound         ErrorCode = "ORDER_NOT_FOUND"
	ErrCodePaymentNotFound       ErrorCode = "PAYMENT_NOT_FOUND"
	ErrCodeSignatureMismatch     ErrorCode = "SIGNATURE_MISMATCH"
	ErrCodeMissingShippingFields ErrorCode = "MISSING_SHIPPING_FIELDS"
	ErrCodeShipmentFailed        ErrorCode = "SHIPMENT_FAILED"
	ErrCodeShipmentExists        ErrorCode = "SHIPMENT_EXISTS"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func newError(errType ErrorType, code ErrorCode, message string, status int) *AppError {
	return &AppError{
		Type:       errType,
		Code:       code,
		Message:    message,
		StatusCode: status,
	}
}

func (e *AppError) Error() string {
	if ve, ok := e.Details.(ValidationErrors); ok && len(ve.Errors) > 0 {
		return ve.Errors[0].Message
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// GetDetailedMessage joins all field-level failures into one line for
// logging and error responses.
func (e *AppError) GetDetailedMessage() string {
	ve, ok := e.Details.(ValidationErrors)
	if !ok || len(ve.Errors) == 0 {
		return e.Message
	}
	messages := make([]string, len(ve.Errors))
	for i, fieldErr := range ve.Errors {
		messages[i] = fieldErr.Message
	}
	return strings.Join(messages, "; ")
}

func (e *AppError) Unwrap() error { return e.Cause }

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return newError(ErrorTypeValidation, code, message, http.StatusBadRequest)
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return NewValidationError("Validation failed", ErrCodeValidationFailed).
		WithDetails(ValidationErrors{
			Errors: []ValidationError{{Field: field, Message: message, Code: string(code)}},
		})
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return newError(ErrorTypeNotFound, code, message, http.StatusNotFound)
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return newError(ErrorTypeUnauthorized, code, message, http.StatusUnauthorized)
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return newError(ErrorTypeConflict, code, message, http.StatusConflict)
}

func NewInternalError(message string, cause error) *AppError {
	return newError(ErrorTypeInternal, "INTERNAL_ERROR", message, http.StatusInternalServerError).
		WithCause(cause)
}

// NewProviderError covers non-2xx or malformed responses from the payment
// gateway and logistics provider. Surfaced as 502 per the intake contract.
func NewProviderError(message string, cause error) *AppError {
	return newError(ErrorTypeExternal, ErrCodeProviderError, message, http.StatusBadGateway).
		WithCause(cause)
}

// NewDBError maps driver failures onto the intake contract's 500 codes.
func NewDBError(code ErrorCode, cause error) *AppError {
	return newError(ErrorTypeInternal, code, "database operation failed", http.StatusInternalServerError).
		WithCause(cause)
}

var (
	ErrOrderNotFound         = NewNotFoundError("Order not found", ErrCodeOrderNotFound)
	ErrPaymentNotFound       = NewNotFoundError("Payment not found", ErrCodePaymentNotFound)
	ErrSignatureMismatch     = NewUnauthorizedError("payment signature verification failed", ErrCodeSignatureMismatch)
	ErrMissingShippingFields = NewValidationError("order metadata is missing required shipping fields", ErrCodeMissingShippingFields)
	ErrShipmentExists        = NewConflictError("order already has a shipment", ErrCodeShipmentExists)
	ErrInvalidToken          = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
