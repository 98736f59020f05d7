package service

import (
	"errors"

	"github.com/fjod/shoestore/internal/domain"
)

var ErrSubmissionInProgress = errors.New("an order with this idempotency key is being processed")

// RejectionReason maps a validation error to a metrics label and error kind.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, domain.ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, domain.ErrUnknownProduct):
		return "unknown_product"
	case errors.Is(err, domain.ErrTotalMismatch):
		return "total_mismatch"
	case errors.Is(err, ErrSubmissionInProgress):
		return "in_progress"
	default:
		return "internal"
	}
}
