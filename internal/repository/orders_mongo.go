package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/shoestore/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoOrderRepository struct {
	collection *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) OrderRepository {
	return &mongoOrderRepository{
		collection: db.Collection(OrdersCollection),
	}
}

func (m mongoOrderRepository) CreateOrder(ctx context.Context, order *domain.Order) (primitive.ObjectID, error) {
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	res, err := m.collection.InsertOne(ctx, order)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, ErrDuplicateIdempotencyKey
		}
		return primitive.NilObjectID, fmt.Errorf("failed to create order: %w", err)
	}

	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	order.ID = id
	return id, nil
}

func (m mongoOrderRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	var order domain.Order

	err := m.collection.FindOne(ctx, bson.M{"idempotencyKey": key}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

func (m mongoOrderRepository) ListOrders(ctx context.Context) ([]domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})

	cursor, err := m.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := make([]domain.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

// ListUnpublished returns the oldest orders whose event has not reached the broker yet.
func (m mongoOrderRepository) ListUnpublished(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Order, error) {
	filter := bson.M{
		"eventPublished": bson.M{"$ne": true},
		"createdAt":      bson.M{"$lt": createdBefore},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list unpublished orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []domain.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode unpublished orders: %w", err)
	}
	return orders, nil
}

func (m mongoOrderRepository) MarkPublished(ctx context.Context, id primitive.ObjectID) error {
	res, err := m.collection.UpdateByID(ctx, id, bson.M{"$set": bson.M{"eventPublished": true}})
	if err != nil {
		return fmt.Errorf("failed to mark order published: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (m *mongoOrderRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "idempotencyKey", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "createdAt", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "eventPublished", Value: 1}, {Key: "createdAt", Value: 1}},
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create order indexes: %w", err)
	}
	return nil
}

// EnsureIndexes creates the indexes both collections rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	orders := &mongoOrderRepository{collection: db.Collection(OrdersCollection)}
	if err := orders.CreateIndexes(ctx); err != nil {
		return err
	}
	return NewMongoCatalogLoader(db).CreateIndexes(ctx)
}
