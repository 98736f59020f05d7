package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const MaxItemQuantity = 99

type Order struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Cart           Cart               `bson:"cart" json:"cart"`
	Total          float64            `bson:"total" json:"total"`
	PaymentInfo    string             `bson:"paymentInfo" json:"paymentInfo"`
	ShippingInfo   string             `bson:"shippingInfo" json:"shippingInfo"`
	IdempotencyKey string             `bson:"idempotencyKey,omitempty" json:"-"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	EventPublished bool               `bson:"eventPublished" json:"-"`
}

// PlaceOrder is a checkout submission before it is priced and persisted.
// ClientTotal is nil when the client did not send one.
type PlaceOrder struct {
	Cart           Cart
	ClientTotal    *decimal.Decimal
	PaymentInfo    string
	ShippingInfo   string
	IdempotencyKey string
}

// Price rebuilds the cart from authoritative listings and checks the client total against it.
func (p PlaceOrder) Price(listings map[primitive.ObjectID]Shoe) (Cart, decimal.Decimal, error) {
	if p.Cart.IsEmpty() {
		return nil, decimal.Zero, ErrEmptyCart
	}

	priced := make(Cart, 0, len(p.Cart))
	seen := make(map[primitive.ObjectID]int, len(p.Cart))
	for _, item := range p.Cart {
		if item.Quantity <= 0 || item.Quantity > MaxItemQuantity {
			return nil, decimal.Zero, fmt.Errorf("%w: %d for %s", ErrInvalidQuantity, item.Quantity, item.ID.Hex())
		}
		shoe, ok := listings[item.ID]
		if !ok {
			return nil, decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownProduct, item.ID.Hex())
		}
		// duplicate lines for one listing collapse into the first
		if i, dup := seen[item.ID]; dup {
			priced[i].Quantity += item.Quantity
			continue
		}
		seen[item.ID] = len(priced)
		priced = append(priced, CartItem{
			ID:       shoe.ID,
			Brand:    shoe.Brand,
			Price:    shoe.Price,
			Quantity: item.Quantity,
		})
	}

	total := priced.Total()
	if p.ClientTotal != nil && !p.ClientTotal.Round(2).Equal(total) {
		return nil, decimal.Zero, fmt.Errorf("%w: client sent %s, listings give %s",
			ErrTotalMismatch, p.ClientTotal.StringFixed(2), total.StringFixed(2))
	}
	return priced, total, nil
}

// IDs returns the distinct listing ids referenced by the cart.
func (p PlaceOrder) IDs() []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(p.Cart))
	seen := make(map[primitive.ObjectID]struct{}, len(p.Cart))
	for _, item := range p.Cart {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		ids = append(ids, item.ID)
	}
	return ids
}
