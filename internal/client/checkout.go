package client

import (
	"context"
	"encoding/json"

	"github.com/fjod/shoestore/internal/domain"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Checkout submits the cart as an order and returns the new order id.
// Each call sends its own idempotency key. The cart is never cleared here.
func (c *Client) Checkout(ctx context.Context, cart domain.Cart, paymentInfo, shippingInfo string) (string, error) {
	if cart.IsEmpty() {
		return "", ErrEmptyCart
	}

	key := uuid.NewString()
	total := cart.Total()
	log := c.log.WithFields(logrus.Fields{
		"idempotency_key": key,
		"items":           cart.Quantity(),
		"total":           total.StringFixed(2),
	})

	res, err := c.PlaceOrder(ctx, OrderRequest{
		Cart:         cart,
		Total:        json.Number(total.StringFixed(2)),
		PaymentInfo:  paymentInfo,
		ShippingInfo: shippingInfo,
	}, key)
	if err != nil {
		log.WithError(err).Error("checkout failed")
		return "", err
	}

	log.WithField("order_id", res.OrderID).Info("checkout complete")
	return res.OrderID, nil
}
