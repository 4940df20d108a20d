package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/henriqueponts/labstore-sub002/api/controllers"
	webhookcontrollers "github.com/henriqueponts/labstore-sub002/api/controllers/webhooks"
	"github.com/henriqueponts/labstore-sub002/api/middleware"
	paymentwebhook "github.com/henriqueponts/labstore-sub002/internal/webhooks/payments"
	"github.com/henriqueponts/labstore-sub002/pkg/config"
	"github.com/henriqueponts/labstore-sub002/pkg/logger"
	"github.com/henriqueponts/labstore-sub002/pkg/redis"
)

// Deps carries everything the router hands to its controllers.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger

	DB    controllers.Pinger
	Redis controllers.Pinger

	Idempotency redis.IdempotencyStore
	Gatherer    prometheus.Gatherer

	Cart     controllers.CartService
	Checkout controllers.CheckoutService
	Orders   controllers.OrdersService

	PaymentWebhook      webhookcontrollers.PaymentWebhookService
	PaymentWebhookGuard *paymentwebhook.IdempotencyGuard
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    d.DB,
			"redis": d.Redis,
		}))
	})

	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payments", webhookcontrollers.PaymentWebhook(
			d.PaymentWebhook,
			d.PaymentWebhookGuard,
			cfg.Gateway.WebhookSecret,
			cfg.Webhooks.MaxBodyBytes,
			logg,
		))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(d.Idempotency, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(d.Cart, logg))
			r.Delete("/", controllers.CartClear(d.Cart, logg))
			r.Post("/items", controllers.CartAddItem(d.Cart, logg))
			r.Patch("/items/{productId}", controllers.CartUpdateItem(d.Cart, logg))
			r.Delete("/items/{productId}", controllers.CartRemoveItem(d.Cart, logg))
		})

		r.Get("/freight/quotes", controllers.FreightQuotes(d.Checkout, logg))
		r.Post("/checkout/sessions", controllers.CheckoutCreateSession(d.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CheckoutPlaceOrder(d.Checkout, logg))
			r.Get("/", controllers.OrdersList(d.Orders, logg))
			r.Get("/status", controllers.OrdersLinkStatus(d.Orders, logg))
			r.Get("/{orderId}", controllers.OrdersDetail(d.Orders, logg))
		})
	})

	return r
}
