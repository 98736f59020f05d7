package service

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/shoestore/internal/domain"
	"github.com/fjod/shoestore/internal/events"
	"github.com/fjod/shoestore/internal/idempotency"
	"github.com/fjod/shoestore/internal/repository"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const publishTimeout = 5 * time.Second

// OrderRecorder receives order outcome counts.
type OrderRecorder interface {
	OrderCreated()
	OrderRejected(reason string)
	OrderReplayed()
}

type OrderDependencies struct {
	Catalog   repository.CatalogRepository
	Orders    repository.OrderRepository
	Keys      idempotency.Store // optional; the unique index on orders still applies
	Publisher events.Publisher  // optional
	Recorder  OrderRecorder     // optional
	Log       logrus.FieldLogger
}

type OrderService struct {
	catalog   repository.CatalogRepository
	orders    repository.OrderRepository
	keys      idempotency.Store
	publisher events.Publisher
	recorder  OrderRecorder
	log       logrus.FieldLogger
	now       func() time.Time
	sfg       singleflight.Group // collapses concurrent submissions sharing a key
}

// PlaceResult tells whether the order was created by this call or replayed.
type PlaceResult struct {
	OrderID  string
	Total    float64
	Replayed bool
}

func NewOrderService(deps OrderDependencies) *OrderService {
	s := &OrderService{
		catalog:   deps.Catalog,
		orders:    deps.Orders,
		keys:      deps.Keys,
		publisher: deps.Publisher,
		recorder:  deps.Recorder,
		log:       deps.Log,
		now:       func() time.Time { return time.Now().UTC() },
	}
	if s.publisher == nil {
		s.publisher = events.NoopPublisher{}
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	return s
}

func (s *OrderService) PlaceOrder(ctx context.Context, req domain.PlaceOrder) (*PlaceResult, error) {
	if req.IdempotencyKey == "" {
		return s.place(ctx, req)
	}

	v, err, _ := s.sfg.Do(req.IdempotencyKey, func() (interface{}, error) {
		return s.placeOnce(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	res := *v.(*PlaceResult)
	return &res, nil
}

func (s *OrderService) ListOrders(ctx context.Context) ([]domain.Order, error) {
	orders, err := s.orders.ListOrders(ctx)
	if err != nil {
		s.log.WithError(err).Error("repo list orders error")
		return nil, err
	}
	return orders, nil
}

func (s *OrderService) placeOnce(ctx context.Context, req domain.PlaceOrder) (*PlaceResult, error) {
	log := s.log.WithField("idempotency_key", req.IdempotencyKey)

	reserved := false
	if s.keys != nil {
		orderID, err := s.keys.Reserve(ctx, req.IdempotencyKey)
		switch {
		case errors.Is(err, idempotency.ErrInProgress):
			s.recorder.OrderRejected(RejectionReason(ErrSubmissionInProgress))
			return nil, ErrSubmissionInProgress
		case err != nil:
			// the unique index on orders still rejects duplicates
			log.WithError(err).Warn("idempotency store unavailable")
		case orderID != "":
			return s.replay(log, orderID), nil
		default:
			reserved = true
		}
	}

	res, err := s.place(ctx, req)
	if errors.Is(err, repository.ErrDuplicateIdempotencyKey) {
		existing, findErr := s.orders.FindByIdempotencyKey(ctx, req.IdempotencyKey)
		if findErr != nil {
			log.WithError(findErr).Error("repo find order by idempotency key error")
			return nil, findErr
		}
		s.completeKey(log, req.IdempotencyKey, existing.ID.Hex())
		return s.replay(log, existing.ID.Hex()), nil
	}
	if err != nil {
		if reserved {
			s.releaseKey(log, req.IdempotencyKey)
		}
		return nil, err
	}

	s.completeKey(log, req.IdempotencyKey, res.OrderID)
	return res, nil
}

func (s *OrderService) place(ctx context.Context, req domain.PlaceOrder) (*PlaceResult, error) {
	if req.Cart.IsEmpty() {
		s.recorder.OrderRejected(RejectionReason(domain.ErrEmptyCart))
		return nil, domain.ErrEmptyCart
	}

	listings, err := s.catalog.FindByIDs(ctx, req.IDs())
	if err != nil {
		s.log.WithError(err).Error("repo find shoes error")
		return nil, err
	}

	cart, total, err := req.Price(listings)
	if err != nil {
		s.recorder.OrderRejected(RejectionReason(err))
		s.log.WithError(err).Info("order rejected")
		return nil, err
	}

	order := &domain.Order{
		Cart:           cart,
		Total:          total.InexactFloat64(),
		PaymentInfo:    req.PaymentInfo,
		ShippingInfo:   req.ShippingInfo,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      s.now(),
	}
	id, err := s.orders.CreateOrder(ctx, order)
	if err != nil {
		if !errors.Is(err, repository.ErrDuplicateIdempotencyKey) {
			s.log.WithError(err).Error("repo create order error")
		}
		return nil, err
	}
	order.ID = id
	s.recorder.OrderCreated()

	s.log.WithFields(logrus.Fields{
		"order_id": id.Hex(),
		"items":    len(cart),
		"total":    total.StringFixed(2),
	}).Info("order created")

	s.publish(ctx, order)

	return &PlaceResult{OrderID: id.Hex(), Total: order.Total}, nil
}

// publish is best effort: the order is already persisted and the outbox
// poller retries anything left unmarked.
func (s *OrderService) publish(ctx context.Context, order *domain.Order) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	log := s.log.WithField("order_id", order.ID.Hex())
	if err := s.publisher.PublishOrderCreated(pubCtx, order); err != nil {
		log.WithError(err).Warn("order event not published")
		return
	}
	if err := s.orders.MarkPublished(pubCtx, order.ID); err != nil {
		log.WithError(err).Warn("failed to mark order event published")
	}
}

func (s *OrderService) replay(log logrus.FieldLogger, orderID string) *PlaceResult {
	s.recorder.OrderReplayed()
	log.WithField("order_id", orderID).Info("duplicate submission, returning existing order")
	return &PlaceResult{OrderID: orderID, Replayed: true}
}

func (s *OrderService) completeKey(log logrus.FieldLogger, key, orderID string) {
	if s.keys == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.keys.Complete(ctx, key, orderID); err != nil {
		log.WithError(err).Warn("idempotency complete error")
	}
}

func (s *OrderService) releaseKey(log logrus.FieldLogger, key string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.keys.Release(ctx, key); err != nil {
		log.WithError(err).Warn("idempotency release error")
	}
}

type nopRecorder struct{}

func (nopRecorder) OrderCreated()        {}
func (nopRecorder) OrderRejected(string) {}
func (nopRecorder) OrderReplayed()       {}
