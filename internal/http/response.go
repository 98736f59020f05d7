package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/shoestore/internal/domain"
	"github.com/fjod/shoestore/internal/service"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

const (
	KindInvalidRequest  = "invalid_request"
	KindUnauthorized    = "unauthorized"
	KindNotFound        = "not_found"
	KindMethodNotAllow  = "method_not_allowed"
	KindEmptyCart       = "empty_cart"
	KindInvalidQuantity = "invalid_quantity"
	KindUnknownProduct  = "unknown_product"
	KindTotalMismatch   = "total_mismatch"
	KindInProgress      = "in_progress"
	KindTimeout         = "timeout"
	KindInternal        = "internal"
	KindUnavailable     = "unavailable"
)

type ErrorResponse struct {
	Kind      string `json:"errorKind"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logrus.WithError(err).Warn("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, kind, message string) {
	respondJSON(w, status, ErrorResponse{
		Kind:      kind,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// handleServiceError converts service and domain errors into HTTP responses.
// Anything unrecognised becomes a 500 with the static fallback message.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var (
		httpStatus int
		kind       string
		message    = err.Error()
	)

	switch {
	case errors.Is(err, domain.ErrEmptyCart):
		httpStatus, kind = http.StatusUnprocessableEntity, KindEmptyCart
	case errors.Is(err, domain.ErrInvalidQuantity):
		httpStatus, kind = http.StatusUnprocessableEntity, KindInvalidQuantity
	case errors.Is(err, domain.ErrUnknownProduct):
		httpStatus, kind = http.StatusUnprocessableEntity, KindUnknownProduct
	case errors.Is(err, domain.ErrTotalMismatch):
		httpStatus, kind = http.StatusUnprocessableEntity, KindTotalMismatch
	case errors.Is(err, service.ErrSubmissionInProgress):
		httpStatus, kind = http.StatusConflict, KindInProgress
	case errors.Is(err, context.DeadlineExceeded):
		httpStatus, kind, message = http.StatusGatewayTimeout, KindTimeout, "request timed out"
	default:
		httpStatus, kind, message = http.StatusInternalServerError, KindInternal, fallback
	}

	respondError(w, r, httpStatus, kind, message)
}
