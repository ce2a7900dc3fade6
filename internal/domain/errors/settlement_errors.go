package errors

import (
	"errors"

	apperrors "github.com/wekeepgrowing/shop-settlement/pkg/errors"
)

var (
	// ErrCartNotFound indicates that no unpaid cart exists for the code
	ErrCartNotFound = errors.New("cart not found or already paid")

	// ErrProductNotFound indicates that the product does not exist
	ErrProductNotFound = errors.New("product not found")

	// ErrTransactionNotFound indicates that no transaction exists for the ref
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInvalidQuantity indicates a non-positive item quantity
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")

	// ErrProviderNotConfigured indicates the provider has no credentials
	ErrProviderNotConfigured = errors.New("payment provider not configured")

	// ErrTransactionNotPending is returned when a settlement compare-and-set
	// finds the row in an unexpected state
	ErrTransactionNotPending = errors.New("transaction is not pending")
)

func NewValidationError(message string, err error) *apperrors.AppError {
	return apperrors.NewAppError(apperrors.ErrInvalidArgument, message, err)
}

func NewNotFoundError(message string, err error) *apperrors.AppError {
	return apperrors.NewAppError(apperrors.ErrNotFound, message, err)
}

// NewGatewayError wraps a provider failure. The provider message is kept in
// the cause and never returned to the client.
func NewGatewayError(err error) *apperrors.AppError {
	return apperrors.NewAppError(apperrors.ErrBadGateway, "payment provider request failed", err)
}

func NewInternalError(message string, err error) *apperrors.AppError {
	return apperrors.NewAppError(apperrors.ErrInternal, message, err)
}
