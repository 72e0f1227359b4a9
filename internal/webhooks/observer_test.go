package webhooks

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pmartell/storefront-checkout/pkg/logger"
	"github.com/pmartell/storefront-checkout/pkg/stripe"
)

type stubMarkerStore struct {
	seen map[string]bool
	err  error

	setCalls int
	delCalls int
	lastTTL  time.Duration
}

func (s *stubMarkerStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.setCalls++
	s.lastTTL = ttl
	if s.err != nil {
		return false, s.err
	}
	if s.seen == nil {
		s.seen = map[string]bool{}
	}
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	return true, nil
}

func (s *stubMarkerStore) Del(ctx context.Context, keys ...string) error {
	s.delCalls++
	for _, key := range keys {
		delete(s.seen, key)
	}
	return s.err
}

func (s *stubMarkerStore) DeliveryKey(scope, id string) string {
	return "checkout:delivery:" + scope + ":" + id
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Level: zerolog.Disabled, Output: io.Discard})
}

func TestObserveFirstDelivery(t *testing.T) {
	store := &stubMarkerStore{}
	observer := NewObserver(ObserverParams{Store: store, Logger: testLogger()})

	event := &stripe.Event{ID: "evt_1", Type: stripe.EventSourceChargeable}
	if !observer.Observe(context.Background(), event) {
		t.Fatal("first delivery must be first-seen")
	}
	if store.lastTTL != DefaultMarkerTTL {
		t.Fatalf("expected default ttl, got %s", store.lastTTL)
	}
}

func TestObserveRedelivery(t *testing.T) {
	store := &stubMarkerStore{}
	observer := NewObserver(ObserverParams{Store: store, Logger: testLogger()})

	event := &stripe.Event{ID: "evt_1", Type: stripe.EventSourceChargeable}
	observer.Observe(context.Background(), event)
	if observer.Observe(context.Background(), event) {
		t.Fatal("second delivery must not be first-seen")
	}
}

func TestObserveDegradesOnStoreError(t *testing.T) {
	store := &stubMarkerStore{err: errors.New("connection refused")}
	observer := NewObserver(ObserverParams{Store: store, Logger: testLogger()})

	event := &stripe.Event{ID: "evt_1", Type: stripe.EventSourceChargeable}
	if !observer.Observe(context.Background(), event) {
		t.Fatal("marker failures must degrade to first-seen")
	}
}

func TestObserveWithoutStore(t *testing.T) {
	observer := NewObserver(ObserverParams{Logger: testLogger()})
	event := &stripe.Event{ID: "evt_1", Type: stripe.EventSourceChargeable}
	if !observer.Observe(context.Background(), event) {
		t.Fatal("observer without a store must report first-seen")
	}
}

func TestForgetAllowsReobservation(t *testing.T) {
	store := &stubMarkerStore{}
	observer := NewObserver(ObserverParams{Store: store, Logger: testLogger()})

	event := &stripe.Event{ID: "evt_1", Type: stripe.EventSourceChargeable}
	observer.Observe(context.Background(), event)
	observer.Forget(context.Background(), event)
	if !observer.Observe(context.Background(), event) {
		t.Fatal("forget must reset the delivery marker")
	}
	if store.delCalls != 1 {
		t.Fatalf("expected one del call, got %d", store.delCalls)
	}
}
