package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pmartell/storefront-checkout/api/responses"
	"github.com/pmartell/storefront-checkout/api/validators"
	"github.com/pmartell/storefront-checkout/internal/intents"
	"github.com/pmartell/storefront-checkout/internal/pricing"
	pkgerrors "github.com/pmartell/storefront-checkout/pkg/errors"
	"github.com/pmartell/storefront-checkout/pkg/logger"
	"github.com/pmartell/storefront-checkout/pkg/stripe"
)

type IntentService interface {
	Create(ctx context.Context, currency string, lines []pricing.CartLine) (*stripe.PaymentIntent, error)
	ApplyShipping(ctx context.Context, intentID string, lines []pricing.CartLine, shippingOptionID string) (*stripe.PaymentIntent, error)
	Status(ctx context.Context, intentID string) (*intents.StatusProjection, error)
}

type createIntentRequest struct {
	Currency string             `json:"currency" validate:"omitempty,len=3"`
	Items    []pricing.CartLine `json:"items" validate:"required,dive"`
}

type shippingOptionRef struct {
	ID string `json:"id" validate:"required"`
}

type shippingChangeRequest struct {
	Items          []pricing.CartLine `json:"items" validate:"required,dive"`
	ShippingOption shippingOptionRef  `json:"shippingOption" validate:"required"`
}

// CreatePaymentIntent opens an intent for the posted cart. The amount is
// always derived server-side from the catalog.
func CreatePaymentIntent(svc IntentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "intent service unavailable"))
			return
		}

		var payload createIntentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intent, err := svc.Create(r.Context(), payload.Currency, payload.Items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePaymentIntent(w, intent)
	}
}

// ShippingChange re-prices the cart with the selected shipping option and
// overwrites the intent amount.
func ShippingChange(svc IntentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "intent service unavailable"))
			return
		}

		var payload shippingChangeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intent, err := svc.ApplyShipping(r.Context(), chi.URLParam(r, "id"), payload.Items, payload.ShippingOption.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePaymentIntent(w, intent)
	}
}

// PaymentIntentStatus serves the polling endpoint used while a payment is
// pending. Only the status is exposed.
func PaymentIntentStatus(svc IntentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "intent service unavailable"))
			return
		}

		projection, err := svc.Status(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePaymentIntent(w, projection)
	}
}
