package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/shoestore/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultTimeout       = 10 * time.Second
	IdempotencyKeyHeader = "Idempotency-Key"
)

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	AdminToken string       // sent on GET /orders when set
	HTTPClient *http.Client // optional; defaults to an otelhttp-instrumented client
	Breaker    *gobreaker.Settings
	Log        logrus.FieldLogger
}

// Client talks to the storefront API. All calls pass through one circuit breaker.
type Client struct {
	baseURL    string
	adminToken string
	http       *http.Client
	cb         *gobreaker.CircuitBreaker[*response]
	log        logrus.FieldLogger
}

type response struct {
	status int
	body   []byte
}

func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	settings := DefaultBreakerSettings()
	if cfg.Breaker != nil {
		settings = *cfg.Breaker
	}
	if settings.IsSuccessful == nil {
		settings.IsSuccessful = isSuccessful
	}
	if settings.OnStateChange == nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("circuit breaker state changed")
		}
	}

	return &Client{
		baseURL:    base.String(),
		adminToken: cfg.AdminToken,
		http:       httpClient,
		cb:         gobreaker.NewCircuitBreaker[*response](settings),
		log:        log,
	}, nil
}

// DefaultBreakerSettings opens after five consecutive failures and probes again after 30s.
func DefaultBreakerSettings() gobreaker.Settings {
	return gobreaker.Settings{
		Name:        "storefront-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
}

// isSuccessful keeps client errors from tripping the breaker.
func isSuccessful(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status < http.StatusInternalServerError
	}
	return err == nil
}

// ListShoes fetches listings. limit == 0 fetches the whole catalog.
func (c *Client) ListShoes(ctx context.Context, page, limit int) ([]domain.Shoe, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/shoes"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var shoes []domain.Shoe
	if _, err := c.do(ctx, http.MethodGet, path, nil, nil, &shoes); err != nil {
		return nil, err
	}
	return shoes, nil
}

func (c *Client) Search(ctx context.Context, term string) ([]domain.Shoe, error) {
	var shoes []domain.Shoe
	body := map[string]string{"searchTerm": term}
	if _, err := c.do(ctx, http.MethodPost, "/search", body, nil, &shoes); err != nil {
		return nil, err
	}
	return shoes, nil
}

func (c *Client) Categories(ctx context.Context) (*domain.Filters, error) {
	var filters domain.Filters
	if _, err := c.do(ctx, http.MethodGet, "/categories", nil, nil, &filters); err != nil {
		return nil, err
	}
	return &filters, nil
}

type OrderRequest struct {
	Cart         domain.Cart `json:"cart"`
	Total        json.Number `json:"total"`
	PaymentInfo  string      `json:"paymentInfo"`
	ShippingInfo string      `json:"shippingInfo"`
}

type OrderResult struct {
	OrderID  string `json:"orderId"`
	Replayed bool   `json:"-"`
}

// PlaceOrder submits an order. Reusing idempotencyKey returns the original order id.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest, idempotencyKey string) (*OrderResult, error) {
	header := http.Header{}
	if idempotencyKey != "" {
		header.Set(IdempotencyKeyHeader, idempotencyKey)
	}

	var res OrderResult
	status, err := c.do(ctx, http.MethodPost, "/orders", req, header, &res)
	if err != nil {
		return nil, err
	}
	res.Replayed = status == http.StatusOK
	return &res, nil
}

func (c *Client) ListOrders(ctx context.Context) ([]domain.Order, error) {
	header := http.Header{}
	if c.adminToken != "" {
		header.Set("Authorization", "Bearer "+c.adminToken)
	}

	var orders []domain.Order
	if _, err := c.do(ctx, http.MethodGet, "/orders", nil, header, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) do(ctx context.Context, method, path string, in interface{}, header http.Header, out interface{}) (int, error) {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return 0, fmt.Errorf("failed to encode request: %w", err)
		}
	}

	res, err := c.cb.Execute(func() (*response, error) {
		return c.roundTrip(ctx, method, path, payload, header)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return 0, &APIError{Kind: KindUnavailable, Message: err.Error(), Status: http.StatusServiceUnavailable}
	}
	if err != nil {
		return 0, err
	}

	if out != nil && len(res.body) > 0 {
		if err := json.Unmarshal(res.body, out); err != nil {
			return res.status, fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
		}
	}
	return res.status, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte, header http.Header) (*response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s %s response: %w", method, path, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeAPIError(resp.StatusCode, data)
	}
	return &response{status: resp.StatusCode, body: data}, nil
}

func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Kind == "" {
		apiErr.Kind = "unexpected_status"
		apiErr.Message = http.StatusText(status)
	}
	apiErr.Status = status
	return apiErr
}
