package service

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/shoestore/internal/domain"
	"github.com/fjod/shoestore/internal/idempotency"
	"github.com/fjod/shoestore/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type mockCatalog struct {
	m        sync.Mutex
	shoes    []domain.Shoe
	filters  *domain.Filters
	err      error
	calls    int
	release  chan struct{} // blocks DistinctFilters until closed when set
	lastTerm string
	lastPage repository.Page
}

func (c *mockCatalog) ListShoes(_ context.Context, page repository.Page) ([]domain.Shoe, error) {
	c.m.Lock()
	defer c.m.Unlock()
	c.lastPage = page
	if c.err != nil {
		return nil, c.err
	}
	return c.shoes, nil
}

func (c *mockCatalog) SearchByBrand(_ context.Context, term string) ([]domain.Shoe, error) {
	c.m.Lock()
	defer c.m.Unlock()
	c.lastTerm = term
	if c.err != nil {
		return nil, c.err
	}
	return c.shoes, nil
}

func (c *mockCatalog) DistinctFilters(context.Context) (*domain.Filters, error) {
	c.m.Lock()
	c.calls++
	release := c.release
	c.m.Unlock()
	if release != nil {
		<-release
	}
	if c.err != nil {
		return nil, c.err
	}
	return c.filters, nil
}

func (c *mockCatalog) FindByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]domain.Shoe, error) {
	c.m.Lock()
	defer c.m.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	out := make(map[primitive.ObjectID]domain.Shoe)
	for _, id := range ids {
		for _, s := range c.shoes {
			if s.ID == id {
				out[id] = s
			}
		}
	}
	return out, nil
}

type mockOrders struct {
	m      sync.Mutex
	orders []domain.Order
	err    error
}

func (o *mockOrders) CreateOrder(_ context.Context, order *domain.Order) (primitive.ObjectID, error) {
	o.m.Lock()
	defer o.m.Unlock()
	if o.err != nil {
		return primitive.NilObjectID, o.err
	}
	if order.IdempotencyKey != "" {
		for _, existing := range o.orders {
			if existing.IdempotencyKey == order.IdempotencyKey {
				return primitive.NilObjectID, repository.ErrDuplicateIdempotencyKey
			}
		}
	}
	order.ID = primitive.NewObjectID()
	o.orders = append(o.orders, *order)
	return order.ID, nil
}

func (o *mockOrders) FindByIdempotencyKey(_ context.Context, key string) (*domain.Order, error) {
	o.m.Lock()
	defer o.m.Unlock()
	for _, existing := range o.orders {
		if existing.IdempotencyKey == key {
			found := existing
			return &found, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (o *mockOrders) ListOrders(context.Context) ([]domain.Order, error) {
	o.m.Lock()
	defer o.m.Unlock()
	if o.err != nil {
		return nil, o.err
	}
	return append([]domain.Order{}, o.orders...), nil
}

func (o *mockOrders) ListUnpublished(context.Context, time.Time, int) ([]domain.Order, error) {
	o.m.Lock()
	defer o.m.Unlock()
	var out []domain.Order
	for _, existing := range o.orders {
		if !existing.EventPublished {
			out = append(out, existing)
		}
	}
	return out, nil
}

func (o *mockOrders) MarkPublished(_ context.Context, id primitive.ObjectID) error {
	o.m.Lock()
	defer o.m.Unlock()
	for i := range o.orders {
		if o.orders[i].ID == id {
			o.orders[i].EventPublished = true
			return nil
		}
	}
	return repository.ErrOrderNotFound
}

func (o *mockOrders) count() int {
	o.m.Lock()
	defer o.m.Unlock()
	return len(o.orders)
}

type mockKeys struct {
	m        sync.Mutex
	values   map[string]string
	err      error
	released []string
}

func newMockKeys() *mockKeys {
	return &mockKeys{values: make(map[string]string)}
}

func (k *mockKeys) Reserve(_ context.Context, key string) (string, error) {
	k.m.Lock()
	defer k.m.Unlock()
	if k.err != nil {
		return "", k.err
	}
	v, ok := k.values[key]
	if !ok {
		k.values[key] = ""
		return "", nil
	}
	if v == "" {
		return "", idempotency.ErrInProgress
	}
	return v, nil
}

func (k *mockKeys) Complete(_ context.Context, key, orderID string) error {
	k.m.Lock()
	defer k.m.Unlock()
	if k.err != nil {
		return k.err
	}
	k.values[key] = orderID
	return nil
}

func (k *mockKeys) Lookup(_ context.Context, key string) (string, error) {
	k.m.Lock()
	defer k.m.Unlock()
	v, ok := k.values[key]
	if !ok {
		return "", idempotency.ErrKeyNotFound
	}
	return v, nil
}

func (k *mockKeys) Release(_ context.Context, key string) error {
	k.m.Lock()
	defer k.m.Unlock()
	delete(k.values, key)
	k.released = append(k.released, key)
	return nil
}

type mockPublisher struct {
	m         sync.Mutex
	published []*domain.Order
	err       error
}

func (p *mockPublisher) PublishOrderCreated(_ context.Context, order *domain.Order) error {
	p.m.Lock()
	defer p.m.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, order)
	return nil
}

func (p *mockPublisher) Close() error { return nil }

type recorderMock struct {
	m        sync.Mutex
	created  int
	replayed int
	rejected []string
}

func (r *recorderMock) OrderCreated() {
	r.m.Lock()
	defer r.m.Unlock()
	r.created++
}

func (r *recorderMock) OrderRejected(reason string) {
	r.m.Lock()
	defer r.m.Unlock()
	r.rejected = append(r.rejected, reason)
}

func (r *recorderMock) OrderReplayed() {
	r.m.Lock()
	defer r.m.Unlock()
	r.replayed++
}
