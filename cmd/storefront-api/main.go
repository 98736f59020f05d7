package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/shoestore/internal/config"
	"github.com/fjod/shoestore/internal/events"
	"github.com/fjod/shoestore/internal/idempotency"
	"github.com/fjod/shoestore/internal/metrics"
	"github.com/fjod/shoestore/internal/repository"
	"github.com/fjod/shoestore/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	h "github.com/fjod/shoestore/internal/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		logrus.Fatalf("Failed to set up logging: %v", err)
	}
	logger.Info("storefront-api starting...")

	// Database setup
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName, repository.DefaultPoolConfig())
	if err != nil {
		cancel()
		logger.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		cancel()
		logger.Fatalf("Failed to create indexes: %v", err)
	}
	cancel()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Client().Disconnect(ctx); err != nil {
			logger.WithError(err).Warn("mongo disconnect error")
		}
	}()
	logger.WithField("database", cfg.MongoDBName).Info("Connected to MongoDB")

	catalogRepo := repository.NewMongoCatalogRepository(db)
	orderRepo := repository.NewMongoOrderRepository(db)

	// Idempotency cache
	var keys idempotency.Store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer rdb.Close()
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			// orders still dedupe on the unique index
			logger.WithError(err).Warn("redis unreachable at startup")
		}
		pingCancel()
		keys = idempotency.NewRedisStore(rdb, cfg.IdempotencyTTL)
		logger.WithField("addr", cfg.RedisAddr).Info("Idempotency cache enabled")
	} else {
		logger.Info("REDIS_ADDR not set, idempotency relies on the orders index only")
	}

	// Order events
	pollerCtx, stopPoller := context.WithCancel(context.Background())
	defer stopPoller()
	var publisher events.Publisher = events.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.OrdersTopic, cfg.KafkaBrokers...)
		go events.NewOutboxPoller(orderRepo, publisher, logger).Run(pollerCtx)
		logger.WithFields(logrus.Fields{"brokers": cfg.KafkaBrokers, "topic": cfg.OrdersTopic}).Info("Order events enabled")
	}
	defer publisher.Close()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	catalogService := service.NewCatalogService(catalogRepo, logger)
	orderService := service.NewOrderService(service.OrderDependencies{
		Catalog:   catalogRepo,
		Orders:    orderRepo,
		Keys:      keys,
		Publisher: publisher,
		Recorder:  m,
		Log:       logger,
	})

	if cfg.AdminToken == "" {
		logger.Warn("ADMIN_TOKEN not set, GET /orders is open to everyone")
	}

	router := h.NewRouter(h.RouterConfig{
		Catalog: catalogService,
		Orders:  orderService,
		Health: func(ctx context.Context) error {
			return repository.Ping(ctx, db)
		},
		Metrics:        m,
		Gatherer:       registry,
		AdminToken:     cfg.AdminToken,
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.RequestTimeout,
		MaxInFlight:    cfg.MaxInFlight,
		Log:            logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server is running on http://localhost:%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}
	stopPoller()

	logger.Info("server exited")
}
