package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/henriqueponts/labstore-sub002/api/routes"
	"github.com/henriqueponts/labstore-sub002/internal/cart"
	"github.com/henriqueponts/labstore-sub002/internal/checkout"
	"github.com/henriqueponts/labstore-sub002/internal/customers"
	"github.com/henriqueponts/labstore-sub002/internal/notifications"
	"github.com/henriqueponts/labstore-sub002/internal/orders"
	"github.com/henriqueponts/labstore-sub002/internal/products"
	paymentwebhook "github.com/henriqueponts/labstore-sub002/internal/webhooks/payments"
	"github.com/henriqueponts/labstore-sub002/pkg/config"
	"github.com/henriqueponts/labstore-sub002/pkg/db"
	"github.com/henriqueponts/labstore-sub002/pkg/freight"
	"github.com/henriqueponts/labstore-sub002/pkg/gateway"
	"github.com/henriqueponts/labstore-sub002/pkg/logger"
	"github.com/henriqueponts/labstore-sub002/pkg/metrics"
	"github.com/henriqueponts/labstore-sub002/pkg/migrate"
	"github.com/henriqueponts/labstore-sub002/pkg/outbox"
	"github.com/henriqueponts/labstore-sub002/pkg/pubsub"
	"github.com/henriqueponts/labstore-sub002/pkg/redis"
)

const shutdownTimeout = 20 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Env:         cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	bootCtx := context.Background()

	dbClient, err := db.New(bootCtx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(bootCtx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(bootCtx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	trigger := notifications.Trigger(notifications.Noop{})
	if cfg.FeatureFlags.Notifications {
		var pubsubClient *pubsub.Client
		pubsubClient, err = pubsub.NewClient(bootCtx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, pubsubClient.Close()) }()

		var pubsubTrigger *notifications.PubSubTrigger
		pubsubTrigger, err = notifications.NewPubSubTrigger(notifications.NewTopicPublisher(pubsubClient.NotificationPublisher()), logg)
		if err != nil {
			return err
		}
		trigger = pubsubTrigger
	} else {
		logg.Warn(bootCtx, "order notifications disabled")
	}
	dispatcher := notifications.NewDispatcher(trigger, logg, checkoutMetrics, cfg.Checkout.NotifyTimeout())

	gatewayClient, err := gateway.NewClient(cfg.Gateway, logg)
	if err != nil {
		return err
	}
	freightClient, err := freight.NewClient(cfg.Freight)
	if err != nil {
		return err
	}

	conn := dbClient.DB()
	productRepo := products.NewRepository(conn)
	customerRepo := customers.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)
	sessionRepo := checkout.NewSessionRepository(conn)
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)

	cartService, err := cart.NewService(cartRepo, dbClient, productRepo)
	if err != nil {
		return err
	}
	materializer, err := checkout.NewMaterializer(productRepo, cartRepo, orderRepo, outboxService)
	if err != nil {
		return err
	}
	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Config:       cfg.Checkout,
		Tx:           dbClient,
		Carts:        cartRepo,
		Customers:    customerRepo,
		Materializer: materializer,
		Sessions:     sessionRepo,
		Freight:      freightClient,
		Gateway:      gatewayClient,
		Notifier:     dispatcher,
		Metrics:      checkoutMetrics,
		Logger:       logg,
	})
	if err != nil {
		return err
	}
	orderService, err := orders.NewService(orderRepo, sessionRepo)
	if err != nil {
		return err
	}
	webhookService, err := paymentwebhook.NewService(paymentwebhook.ServiceParams{
		Tx:           dbClient,
		Orders:       orderRepo,
		Customers:    customerRepo,
		Products:     productRepo,
		Sessions:     sessionRepo,
		Materializer: materializer,
		Notifier:     dispatcher,
		Metrics:      checkoutMetrics,
		Logger:       logg,
	})
	if err != nil {
		return err
	}
	webhookGuard, err := paymentwebhook.NewIdempotencyGuard(redisClient, cfg.Webhooks.IdempotencyTTL, redis.WebhookScope("payments"))
	if err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(routes.Deps{
			Config:              cfg,
			Logger:              logg,
			DB:                  dbClient,
			Redis:               redisClient,
			Idempotency:         redisClient,
			Gatherer:            registry,
			Cart:                cartService,
			Checkout:            checkoutService,
			Orders:              orderService,
			PaymentWebhook:      webhookService,
			PaymentWebhookGuard: webhookGuard,
		}),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithField(ctx, "addr", addr)

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "api server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
