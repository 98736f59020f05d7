package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/shoestore/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ShoesCollection  = "shoes"
	OrdersCollection = "orders"
)

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrDuplicateIdempotencyKey = errors.New("order with this idempotency key already exists")
)

// Page selects a window of listings. The zero value selects everything.
type Page struct {
	Number int
	Size   int
}

func (p Page) IsZero() bool {
	return p.Size <= 0
}

// CatalogRepository reads the listings collection.
type CatalogRepository interface {
	ListShoes(ctx context.Context, page Page) ([]domain.Shoe, error)
	SearchByBrand(ctx context.Context, term string) ([]domain.Shoe, error)
	DistinctFilters(ctx context.Context) (*domain.Filters, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]domain.Shoe, error)
}

// OrderRepository persists checkout submissions.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) (primitive.ObjectID, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)
	ListUnpublished(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Order, error)
	MarkPublished(ctx context.Context, id primitive.ObjectID) error
}

// CatalogLoader writes listings in bulk; used by the seed command.
type CatalogLoader interface {
	InsertShoes(ctx context.Context, shoes []domain.Shoe) (int, error)
	CreateIndexes(ctx context.Context) error
}
