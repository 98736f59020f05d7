package idempotency

import (
	"context"
	"errors"
)

// Store remembers which order an idempotency key produced.
type Store interface {
	// Reserve claims key for a new submission. A non-empty order id means the key
	// already produced that order. ErrInProgress means another submission holds it.
	Reserve(ctx context.Context, key string) (string, error)
	// Complete records the order id produced for a reserved key.
	Complete(ctx context.Context, key, orderID string) error
	// Lookup returns the recorded order id or ErrKeyNotFound.
	Lookup(ctx context.Context, key string) (string, error)
	// Release drops a reservation whose submission failed.
	Release(ctx context.Context, key string) error
}

var (
	ErrKeyNotFound = errors.New("idempotency key not found")
	ErrInProgress  = errors.New("submission with this idempotency key is in progress")
)

const pendingMarker = "pending"
