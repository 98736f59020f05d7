package domain

import "errors"

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidQuantity = errors.New("invalid item quantity")
	ErrUnknownProduct  = errors.New("unknown product")
	ErrTotalMismatch   = errors.New("order total does not match listing prices")
)
