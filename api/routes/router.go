package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pmartell/storefront-checkout/api/controllers"
	"github.com/pmartell/storefront-checkout/api/middleware"
	"github.com/pmartell/storefront-checkout/pkg/config"
	"github.com/pmartell/storefront-checkout/pkg/logger"
	"github.com/pmartell/storefront-checkout/pkg/stripe"
)

type RouterParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	Catalog  controllers.CatalogService
	Intents  controllers.IntentService
	Webhooks controllers.WebhookService
	Provider *stripe.Client
	Observer controllers.DeliveryObserver

	// Gatherer backs GET /metrics. Nil leaves the endpoint unmounted.
	Gatherer prometheus.Gatherer
}

func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(params.Logger),
		middleware.RequestID(params.Logger),
		middleware.Logging(params.Logger),
	)

	r.Get("/health/live", controllers.HealthLive())
	if params.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/config", controllers.StoreConfig(params.Config, params.Provider))
	r.Get("/products", controllers.ListProducts(params.Catalog, params.Logger))
	r.Get("/products/{id}", controllers.GetProduct(params.Catalog, params.Logger))
	r.Get("/products/{id}/skus", controllers.ListProductSKUs(params.Catalog, params.Logger))

	r.Post("/payment_intents", controllers.CreatePaymentIntent(params.Intents, params.Logger))
	r.Post("/payment_intents/{id}/shipping_change", controllers.ShippingChange(params.Intents, params.Logger))
	r.Get("/payment_intents/{id}/status", controllers.PaymentIntentStatus(params.Intents, params.Logger))

	r.Post("/webhook", controllers.Webhook(params.Webhooks, params.Provider, params.Observer, params.Logger))

	return r
}
