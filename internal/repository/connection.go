package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type PoolConfig struct {
	MaxPoolSize uint64
	MinPoolSize uint64
}

func DefaultPoolConfig() PoolConfig {
	return PoolConfig{MaxPoolSize: 100, MinPoolSize: 10}
}

// ConnectMongoDB opens the pooled client shared by every request handler.
func ConnectMongoDB(ctx context.Context, uri, database string, pool PoolConfig) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(pool.MaxPoolSize).
		SetMinPoolSize(pool.MinPoolSize)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

// Ping reports whether the database behind db is reachable.
func Ping(ctx context.Context, db *mongo.Database) error {
	if err := db.Client().Ping(ctx, nil); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return nil
}
