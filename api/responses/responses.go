package responses

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	pkgerrors "github.com/pmartell/storefront-checkout/pkg/errors"
	"github.com/pmartell/storefront-checkout/pkg/logger"
	"github.com/pmartell/storefront-checkout/pkg/stripe"
)

// The wire shapes here match what the checkout client expects: resources
// under a named key, failures as a bare {"error": "..."} string.

type paymentIntentEnvelope struct {
	PaymentIntent any `json:"paymentIntent"`
}

type errorEnvelope struct {
	Error string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}

// WritePaymentIntent wraps a full intent or a status projection.
func WritePaymentIntent(w http.ResponseWriter, intent any) {
	WriteJSON(w, http.StatusOK, paymentIntentEnvelope{PaymentIntent: intent})
}

// WriteProducts renders the catalog in the provider's list shape, which is
// what the checkout client walks.
func WriteProducts(w http.ResponseWriter, products []*stripe.Product) {
	WriteJSON(w, http.StatusOK, stripe.ProductList{Object: "list", Data: products})
}

func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	meta := pkgerrors.MetadataFor(typed.Code())
	msg := meta.PublicMessage
	if meta.DetailsAllowed && typed.Message() != "" {
		msg = typed.Message()
	}

	if logg != nil {
		ctx = logg.WithField(ctx, "error_code", string(typed.Code()))
		logg.Error(ctx, "request failed", err)
	}

	WriteJSON(w, meta.HTTPStatus, errorEnvelope{Error: msg})
}
