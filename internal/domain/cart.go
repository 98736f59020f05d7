package domain

import (
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartItem is a snapshot of a listing together with the quantity being bought.
type CartItem struct {
	ID       primitive.ObjectID `bson:"id" json:"id"`
	Brand    string             `bson:"brand" json:"brand"`
	Price    float64            `bson:"price" json:"price"`
	Quantity int                `bson:"quantity" json:"quantity"`
}

// Subtotal returns price × quantity rounded to cents.
func (i CartItem) Subtotal() decimal.Decimal {
	return decimal.NewFromFloat(i.Price).Mul(decimal.NewFromInt(int64(i.Quantity))).Round(2)
}

// Cart keeps at most one item per listing id, in insertion order.
// All transitions return a new Cart and leave the receiver untouched.
type Cart []CartItem

// AddToCart increments the quantity of an existing item or appends a new one with quantity 1.
func AddToCart(c Cart, shoe Shoe) Cart {
	if i := c.indexOf(shoe.ID); i >= 0 {
		next := c.clone()
		next[i].Quantity++
		return next
	}
	return append(c.clone(), CartItem{
		ID:       shoe.ID,
		Brand:    shoe.Brand,
		Price:    shoe.Price,
		Quantity: 1,
	})
}

// RemoveFromCart drops the item for id. Unknown ids leave the cart unchanged.
func RemoveFromCart(c Cart, id primitive.ObjectID) Cart {
	i := c.indexOf(id)
	if i < 0 {
		return c.clone()
	}
	next := make(Cart, 0, len(c)-1)
	next = append(next, c[:i]...)
	return append(next, c[i+1:]...)
}

// SetQuantity replaces the quantity of the item for id; n <= 0 removes it.
func SetQuantity(c Cart, id primitive.ObjectID, n int) Cart {
	if n <= 0 {
		return RemoveFromCart(c, id)
	}
	next := c.clone()
	if i := next.indexOf(id); i >= 0 {
		next[i].Quantity = n
	}
	return next
}

// Total is the sum of price × quantity over all items.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c {
		total = total.Add(item.Subtotal())
	}
	return total.Round(2)
}

// Quantity is the number of units across all items.
func (c Cart) Quantity() int {
	n := 0
	for _, item := range c {
		n += item.Quantity
	}
	return n
}

func (c Cart) IsEmpty() bool {
	return len(c) == 0
}

func (c Cart) indexOf(id primitive.ObjectID) int {
	for i, item := range c {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func (c Cart) clone() Cart {
	next := make(Cart, len(c))
	copy(next, c)
	return next
}
