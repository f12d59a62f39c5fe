package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorKind is the machine-checkable error code surfaced to API callers
type ErrorKind string

const (
	KindValidation            ErrorKind = "VALIDATION_ERROR"
	KindNotFound              ErrorKind = "NOT_FOUND"
	KindInsufficientQuantity  ErrorKind = "INSUFFICIENT_QUANTITY"
	KindCapacityExceeded      ErrorKind = "CAPACITY_EXCEEDED"
	KindNoStockLogged         ErrorKind = "NO_STOCK_LOGGED"
	KindUnloggedStockDetected ErrorKind = "UNLOGGED_STOCK_DETECTED"
	KindTransactionFailure    ErrorKind = "TRANSACTION_FAILURE"
	KindConflict              ErrorKind = "CONFLICT"
)

// AppError is a domain error carrying its kind and the figures a caller needs
// to correct the request.
type AppError struct {
	Kind    ErrorKind
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error kind to its HTTP status
func (e *AppError) StatusCode() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTransactionFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func NewValidationError(field, message string) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Message: message,
		Details: map[string]interface{}{"field": field},
	}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

func NewInsufficientQuantityError(available, requested int) *AppError {
	return &AppError{
		Kind:    KindInsufficientQuantity,
		Message: fmt.Sprintf("insufficient quantity: available %d, requested %d", available, requested),
		Details: map[string]interface{}{
			"available": available,
			"requested": requested,
		},
	}
}

func NewCapacityExceededError(maxCapacity, current, available int) *AppError {
	return &AppError{
		Kind:    KindCapacityExceeded,
		Message: fmt.Sprintf("bin capacity exceeded: max %d, current %d, available %d", maxCapacity, current, available),
		Details: map[string]interface{}{
			"max_capacity":       maxCapacity,
			"current_capacity":   current,
			"available_capacity": available,
		},
	}
}

func NewNoStockLoggedError() *AppError {
	return &AppError{
		Kind:    KindNoStockLogged,
		Message: "cannot assign a delivery agent: bin has no logged stock yet",
	}
}

func NewUnloggedStockError(unlogged int) *AppError {
	return &AppError{
		Kind:    KindUnloggedStockDetected,
		Message: fmt.Sprintf("cannot assign a delivery agent: %d units in the bin are not explained by the ledger", unlogged),
		Details: map[string]interface{}{
			"unlogged_stock": unlogged,
		},
	}
}

// NewTransactionFailure wraps a store error raised inside a movement transaction.
// The caller has to resubmit; nothing was applied.
func NewTransactionFailure(operation string, err error) *AppError {
	return &AppError{
		Kind:    KindTransactionFailure,
		Message: fmt.Sprintf("%s failed and was rolled back; resubmit the request", operation),
		Err:     err,
	}
}

func NewConflictError(message string) *AppError {
	return &AppError{
		Kind:    KindConflict,
		Message: message,
	}
}

// IsKind reports whether err is an AppError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// SendAppError writes err as a structured JSON error response. Errors that are
// not AppErrors are reported as opaque server errors.
func SendAppError(c echo.Context, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return c.JSON(appErr.StatusCode(), CreateErrorResponse(string(appErr.Kind), appErr.Message, appErr.Details))
	}
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return SendServerError(c, "internal server error")
}
