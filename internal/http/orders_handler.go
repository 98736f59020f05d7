package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fjod/shoestore/internal/domain"
	"github.com/fjod/shoestore/internal/service"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"

	MaxIdempotencyKeyLength = 128
	MaxInfoLength           = 500
)

type OrderService interface {
	PlaceOrder(ctx context.Context, req domain.PlaceOrder) (*service.PlaceResult, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)
}

type OrdersHandler struct {
	orders  OrderService
	timeout time.Duration
}

func NewOrdersHandler(orders OrderService, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		timeout: timeout,
	}
}

// CartItemDTO accepts the cart line shape the web client posts: a whole listing plus quantity.
type CartItemDTO struct {
	ID       string  `json:"id"`
	LegacyID string  `json:"_id"`
	Brand    string  `json:"brand"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

type CreateOrderRequestDTO struct {
	Cart         []CartItemDTO `json:"cart"`
	Total        json.Number   `json:"total"`
	PaymentInfo  string        `json:"paymentInfo"`
	ShippingInfo string        `json:"shippingInfo"`
}

type CreateOrderResponse struct {
	OrderID string `json:"orderId"`
}

func (h *OrdersHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, KindInvalidRequest, "invalid JSON body")
		return
	}

	placeOrder, err := req.toDomain(r.Header.Get(IdempotencyKeyHeader))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, KindInvalidRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.orders.PlaceOrder(ctx, placeOrder)
	if err != nil {
		handleServiceError(w, r, err, "error creating order")
		return
	}

	if res.Replayed {
		w.Header().Set(ReplayedHeader, "true")
		respondJSON(w, http.StatusOK, CreateOrderResponse{OrderID: res.OrderID})
		return
	}
	respondJSON(w, http.StatusCreated, CreateOrderResponse{OrderID: res.OrderID})
}

func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.orders.ListOrders(ctx)
	if err != nil {
		handleServiceError(w, r, err, "error fetching orders")
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (req CreateOrderRequestDTO) toDomain(idempotencyKey string) (domain.PlaceOrder, error) {
	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if len(idempotencyKey) > MaxIdempotencyKeyLength {
		return domain.PlaceOrder{}, errors.New("Idempotency-Key header is too long")
	}
	if err := validateInfo("paymentInfo", req.PaymentInfo); err != nil {
		return domain.PlaceOrder{}, err
	}
	if err := validateInfo("shippingInfo", req.ShippingInfo); err != nil {
		return domain.PlaceOrder{}, err
	}

	cart := make(domain.Cart, 0, len(req.Cart))
	for i, item := range req.Cart {
		raw := item.ID
		if raw == "" {
			raw = item.LegacyID
		}
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return domain.PlaceOrder{}, fmt.Errorf("cart[%d].id must be a 24 character hex id", i)
		}
		if item.Quantity < 1 || item.Quantity > domain.MaxItemQuantity {
			return domain.PlaceOrder{}, fmt.Errorf("cart[%d].quantity must be between 1 and %d", i, domain.MaxItemQuantity)
		}
		cart = append(cart, domain.CartItem{
			ID:       id,
			Brand:    item.Brand,
			Price:    item.Price,
			Quantity: item.Quantity,
		})
	}

	out := domain.PlaceOrder{
		Cart:           cart,
		PaymentInfo:    req.PaymentInfo,
		ShippingInfo:   req.ShippingInfo,
		IdempotencyKey: idempotencyKey,
	}
	if req.Total != "" {
		total, err := decimal.NewFromString(req.Total.String())
		if err != nil {
			return domain.PlaceOrder{}, errors.New("total must be a number")
		}
		out.ClientTotal = &total
	}
	return out, nil
}

func validateInfo(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", field)
	}
	if utf8.RuneCountInString(value) > MaxInfoLength {
		return fmt.Errorf("%s is too long", field)
	}
	return nil
}
