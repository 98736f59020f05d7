package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/shoestore/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const MaxRequestBodySize = 1 << 20 // 1MB

// HealthCheck reports whether the backing store is reachable.
type HealthCheck func(ctx context.Context) error

type RouterConfig struct {
	Catalog        CatalogService
	Orders         OrderService
	Health         HealthCheck
	Metrics        *metrics.Metrics    // optional
	Gatherer       prometheus.Gatherer // optional; /metrics is mounted when set
	AdminToken     string
	CORSOrigins    []string
	RequestTimeout time.Duration
	MaxInFlight    int
	Log            logrus.FieldLogger
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	catalogHandler := NewCatalogHandler(cfg.Catalog, cfg.RequestTimeout)
	ordersHandler := NewOrdersHandler(cfg.Orders, cfg.RequestTimeout)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&requestLogFormatter{log: cfg.Log}))
	r.Use(middleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	if cfg.MaxInFlight > 0 {
		r.Use(middleware.Throttle(cfg.MaxInFlight))
	}
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(MaxBodyMiddleware(MaxRequestBodySize))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", IdempotencyKeyHeader, RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader, ReplayedHeader},
		MaxAge:         300,
	}))
	r.Use(middleware.Compress(5))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, KindNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, KindMethodNotAllow, "method not allowed")
	})

	r.Get("/health", healthHandler(cfg.Health))
	if cfg.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(cfg.Gatherer))
	}

	r.Get("/shoes", catalogHandler.ListShoes)
	r.Get("/shoe", catalogHandler.ListShoes)
	r.Post("/search", catalogHandler.Search)
	r.Get("/categories", catalogHandler.Categories)

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", ordersHandler.CreateOrder)
		r.With(AdminTokenMiddleware(cfg.AdminToken)).Get("/", ordersHandler.ListOrders)
	})

	return otelhttp.NewHandler(r, "storefront-api")
}

func healthHandler(check HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				logrus.WithError(err).Warn("health check failed")
				respondError(w, r, http.StatusServiceUnavailable, KindUnavailable, "database unreachable")
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
