package client

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrEmptyCart = errors.New("cart is empty, nothing to checkout")

const KindUnavailable = "unavailable"

// APIError is a non-2xx answer from the storefront API.
type APIError struct {
	Kind      string `json:"errorKind"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
	Status    int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
}

// Temporary reports whether retrying later might succeed.
func (e *APIError) Temporary() bool {
	return e.Status >= http.StatusInternalServerError || e.Status == http.StatusConflict
}

// IsKind reports whether err is an *APIError of the given kind.
func IsKind(err error, kind string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}
