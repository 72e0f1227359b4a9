package webhooks

import (
	"context"
	"time"

	"github.com/pmartell/storefront-checkout/pkg/logger"
	"github.com/pmartell/storefront-checkout/pkg/metrics"
	"github.com/pmartell/storefront-checkout/pkg/redis"
	"github.com/pmartell/storefront-checkout/pkg/stripe"
)

// DefaultMarkerTTL keeps delivery markers around long enough to cover the
// provider's retry window without growing the keyspace unbounded.
const DefaultMarkerTTL = 24 * time.Hour

const markerScope = "event"

// Observer records which webhook events have already been seen. It is an
// observability aid only: redeliveries are logged and counted, never
// suppressed. The status re-fetch in the orchestrator is what keeps
// at-least-once delivery safe, and it must stay that way even when redis
// is down or not configured.
type Observer struct {
	store   redis.MarkerStore
	logger  *logger.Logger
	metrics *metrics.CheckoutMetrics
	ttl     time.Duration
}

type ObserverParams struct {
	Store   redis.MarkerStore
	Logger  *logger.Logger
	Metrics *metrics.CheckoutMetrics
	TTL     time.Duration
}

// NewObserver builds a delivery observer. A nil store is valid and yields
// an observer that treats every delivery as first-seen.
func NewObserver(params ObserverParams) *Observer {
	ttl := params.TTL
	if ttl <= 0 {
		ttl = DefaultMarkerTTL
	}
	return &Observer{
		store:   params.Store,
		logger:  params.Logger,
		metrics: params.Metrics,
		ttl:     ttl,
	}
}

// Observe marks the event as seen and reports whether this is the first
// delivery. Marker failures degrade to first-seen; a broken marker store
// must never block event dispatch.
func (o *Observer) Observe(ctx context.Context, event *stripe.Event) bool {
	if o == nil || o.store == nil || event == nil || event.ID == "" {
		return true
	}
	key := o.store.DeliveryKey(markerScope, event.ID)
	first, err := o.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), o.ttl)
	if err != nil {
		if o.logger != nil {
			o.logger.Warn(o.logger.WithField(ctx, "key", key), "delivery marker store unavailable")
		}
		return true
	}
	if !first {
		if o.logger != nil {
			o.logger.Info(o.logger.WithField(ctx, "type", event.Type), "webhook event redelivered")
		}
		o.metrics.ObserveWebhook(event.Type, "duplicate")
	}
	return first
}

// Forget drops the marker for an event, letting a later redelivery count
// as first-seen again. Used when dispatch failed and a retry is wanted.
func (o *Observer) Forget(ctx context.Context, event *stripe.Event) {
	if o == nil || o.store == nil || event == nil || event.ID == "" {
		return
	}
	key := o.store.DeliveryKey(markerScope, event.ID)
	if err := o.store.Del(ctx, key); err != nil && o.logger != nil {
		o.logger.Warn(o.logger.WithField(ctx, "key", key), "failed to drop delivery marker")
	}
}
