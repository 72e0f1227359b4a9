package controllers

import (
	"net/http"

	"github.com/pmartell/storefront-checkout/api/responses"
	"github.com/pmartell/storefront-checkout/pkg/config"
)

type publishableKeySource interface {
	PublishableKey() string
}

type storeConfigResponse struct {
	PublishableKey  string                  `json:"publishableKey"`
	StripeCountry   string                  `json:"stripeCountry"`
	Country         string                  `json:"country"`
	Currency        string                  `json:"currency"`
	PaymentMethods  []string                `json:"paymentMethods"`
	ShippingOptions []config.ShippingOption `json:"shippingOptions"`
}

// StoreConfig serves the static storefront snapshot the checkout client
// bootstraps from.
func StoreConfig(cfg *config.Config, keys publishableKeySource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteJSON(w, http.StatusOK, storeConfigResponse{
			PublishableKey:  keys.PublishableKey(),
			StripeCountry:   cfg.Stripe.AccountCountry,
			Country:         cfg.Store.Country,
			Currency:        cfg.Store.Currency,
			PaymentMethods:  cfg.Store.PaymentMethods,
			ShippingOptions: cfg.Store.ShippingOptions(),
		})
	}
}
