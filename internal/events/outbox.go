package events

import (
	"context"
	"time"

	"github.com/fjod/shoestore/internal/domain"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	defaultOutboxTick  = 5 * time.Second
	defaultOutboxGrace = 30 * time.Second
	defaultOutboxBatch = 100
)

// OrderOutbox is the part of the order store the poller drains.
type OrderOutbox interface {
	ListUnpublished(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Order, error)
	MarkPublished(ctx context.Context, id primitive.ObjectID) error
}

// OutboxPoller republishes OrderCreated events whose inline publish failed.
// Orders younger than grace are skipped so the inline publish can finish first.
type OutboxPoller struct {
	timeout   time.Duration
	tick      time.Duration
	grace     time.Duration
	batch     int
	repo      OrderOutbox
	publisher Publisher
	log       logrus.FieldLogger
	now       func() time.Time
}

func NewOutboxPoller(repo OrderOutbox, publisher Publisher, log logrus.FieldLogger) *OutboxPoller {
	return &OutboxPoller{
		timeout:   5 * time.Second,
		tick:      defaultOutboxTick,
		grace:     defaultOutboxGrace,
		batch:     defaultOutboxBatch,
		repo:      repo,
		publisher: publisher,
		log:       log.WithField("component", "outbox"),
		now:       time.Now,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublished(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// processUnpublished returns how many events reached the broker.
func (p *OutboxPoller) processUnpublished(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	orders, err := p.repo.ListUnpublished(ctx, p.now().Add(-p.grace), p.batch)
	if err != nil {
		p.log.WithError(err).Error("failed to fetch unpublished orders")
		return 0
	}

	published := 0
	for i := range orders {
		order := &orders[i]
		log := p.log.WithField("order_id", order.ID.Hex())

		if err := p.publisher.PublishOrderCreated(ctx, order); err != nil {
			log.WithError(err).Warn("failed to republish order event")
			continue
		}
		if err := p.repo.MarkPublished(ctx, order.ID); err != nil {
			log.WithError(err).Warn("failed to mark order event published")
			continue
		}
		published++
	}
	if published > 0 {
		p.log.WithField("count", published).Info("order events republished")
	}
	return published
}
