package controllers

import (
	"context"
	"io"
	"net/http"

	"github.com/pmartell/storefront-checkout/api/responses"
	pkgerrors "github.com/pmartell/storefront-checkout/pkg/errors"
	"github.com/pmartell/storefront-checkout/pkg/logger"
	"github.com/pmartell/storefront-checkout/pkg/stripe"
)

const webhookBodyLimit = 1 << 20

type EventVerifier interface {
	ConstructEvent(payload []byte, sigHeader string) (*stripe.Event, error)
}

type WebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type DeliveryObserver interface {
	Observe(ctx context.Context, event *stripe.Event) bool
	Forget(ctx context.Context, event *stripe.Event)
}

// Webhook ingests provider event deliveries. The raw body is read before any
// parsing so the signature is verified over the exact bytes sent. Events are
// always dispatched, first delivery or not; the observer records redeliveries
// and its marker is cleared when dispatch fails, so the provider's retry is
// not counted as a duplicate.
func Webhook(svc WebhookService, verifier EventVerifier, observer DeliveryObserver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "event verifier unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, webhookBodyLimit))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read request body"))
			return
		}

		event, err := verifier.ConstructEvent(payload, r.Header.Get(stripe.SignatureHeader))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			ctx = logg.WithEventID(ctx, event.ID)
			ctx = logg.WithField(ctx, "event_type", event.Type)
		}

		if observer != nil {
			observer.Observe(ctx, event)
		}

		if err := svc.HandleEvent(ctx, event); err != nil {
			// Clear the delivery marker so the provider's retry is not
			// mistaken for a redelivery of a handled event.
			if observer != nil {
				observer.Forget(ctx, event)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
	}
}
