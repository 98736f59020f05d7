package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/shoestore/internal/domain"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultOrdersTopic    = "orders-created"
	EventTypeOrderCreated = "order.created"
)

// OrderCreated is published after an order is persisted.
type OrderCreated struct {
	EventID   string      `json:"event_id"`
	OrderID   string      `json:"order_id"`
	Items     domain.Cart `json:"items"`
	Total     float64     `json:"total"`
	CreatedAt time.Time   `json:"created_at"`
}

type Publisher interface {
	PublishOrderCreated(ctx context.Context, order *domain.Order) error
	Close() error
}

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer MessageWriter
}

func NewKafkaPublisher(topic string, brokers ...string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultOrdersTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}
}

func NewPublisherWithWriter(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	event := OrderCreated{
		EventID:   EventID(order.ID),
		OrderID:   order.ID.Hex(),
		Items:     order.Cart,
		Total:     order.Total,
		CreatedAt: order.CreatedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderID), // order id for ordering
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeOrderCreated)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish order event: %w", err)
	}
	return nil
}

// EventID is stable per order so republished events can be deduplicated downstream.
func EventID(orderID primitive.ObjectID) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("order.created/"+orderID.Hex())).String()
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher is used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderCreated(context.Context, *domain.Order) error { return nil }

func (NoopPublisher) Close() error { return nil }
