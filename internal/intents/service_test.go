package intents

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/rs/zerolog"

	"github.com/pmartell/storefront-checkout/internal/pricing"
	"github.com/pmartell/storefront-checkout/pkg/config"
	pkgerrors "github.com/pmartell/storefront-checkout/pkg/errors"
	"github.com/pmartell/storefront-checkout/pkg/logger"
	"github.com/pmartell/storefront-checkout/pkg/stripe"
)

type stubProvider struct {
	intent *stripe.PaymentIntent

	createParams  *stripe.IntentCreateParams
	updateParams  *stripe.IntentUpdateParams
	updatedIntent string
	getCalls      int
	confirmCalls  int
	confirmSource string
	cancelCalls   int
}

func (p *stubProvider) CreatePaymentIntent(ctx context.Context, params stripe.IntentCreateParams) (*stripe.PaymentIntent, error) {
	p.createParams = &params
	return &stripe.PaymentIntent{
		ID:       "pi_1",
		Amount:   params.Amount,
		Currency: params.Currency,
		Status:   stripe.IntentStatusRequiresPaymentMethod,
	}, nil
}

func (p *stubProvider) UpdatePaymentIntent(ctx context.Context, intentID string, params stripe.IntentUpdateParams) (*stripe.PaymentIntent, error) {
	p.updatedIntent = intentID
	p.updateParams = &params
	return &stripe.PaymentIntent{ID: intentID, Amount: params.Amount, Status: stripe.IntentStatusRequiresPaymentMethod}, nil
}

func (p *stubProvider) GetPaymentIntent(ctx context.Context, intentID string) (*stripe.PaymentIntent, error) {
	p.getCalls++
	if p.intent == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no such payment intent")
	}
	return p.intent, nil
}

func (p *stubProvider) ConfirmPaymentIntentWithSource(ctx context.Context, intentID, sourceID string) (*stripe.PaymentIntent, error) {
	p.confirmCalls++
	p.confirmSource = sourceID
	return &stripe.PaymentIntent{ID: intentID, Status: stripe.IntentStatusProcessing}, nil
}

func (p *stubProvider) CancelPaymentIntent(ctx context.Context, intentID string) (*stripe.PaymentIntent, error) {
	p.cancelCalls++
	return &stripe.PaymentIntent{ID: intentID, Status: stripe.IntentStatusCanceled}, nil
}

type stubPricer struct {
	total int64
	err   error

	lines    []pricing.CartLine
	shipping string
}

func (p *stubPricer) ComputeTotal(ctx context.Context, lines []pricing.CartLine, shippingOptionID string) (int64, error) {
	p.lines = lines
	p.shipping = shippingOptionID
	return p.total, p.err
}

func newTestService(t *testing.T, provider *stubProvider, pricer *stubPricer) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Provider: provider,
		Pricing:  pricer,
		Store: config.StoreConfig{
			Currency:       "eur",
			PaymentMethods: []string{"card", "ideal"},
		},
		Logger: logger.New(logger.Options{Level: zerolog.Disabled, Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func sourceEvent(t *testing.T, eventType, sourceID, intentID string) *stripe.Event {
	t.Helper()
	source := stripe.Source{ID: sourceID, Type: "ideal", Status: stripe.SourceStatusChargeable}
	if intentID != "" {
		source.Metadata = map[string]string{stripe.MetadataIntentKey: intentID}
	}
	raw, err := json.Marshal(source)
	if err != nil {
		t.Fatalf("marshal source: %v", err)
	}
	return &stripe.Event{ID: "evt_1", Type: eventType, Data: &stripe.EventData{Object: raw}}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected error without provider")
	}
}

func TestCreateUsesServerComputedAmount(t *testing.T) {
	provider := &stubProvider{}
	pricer := &stubPricer{total: 5000}
	svc := newTestService(t, provider, pricer)

	lines := []pricing.CartLine{{Parent: "sku_hood", Quantity: 1}, {Parent: "sku_book", Quantity: 2}}
	intent, err := svc.Create(context.Background(), "", lines)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if intent.Amount != 5000 {
		t.Fatalf("expected amount 5000, got %d", intent.Amount)
	}
	if provider.createParams.Currency != "eur" {
		t.Fatalf("expected store default currency, got %q", provider.createParams.Currency)
	}
	if len(provider.createParams.PaymentMethodTypes) != 2 {
		t.Fatalf("expected store payment methods, got %v", provider.createParams.PaymentMethodTypes)
	}
	if pricer.shipping != "" {
		t.Fatalf("create must not price shipping, got %q", pricer.shipping)
	}
}

func TestCreatePropagatesPricingError(t *testing.T) {
	provider := &stubProvider{}
	pricer := &stubPricer{err: pkgerrors.New(pkgerrors.CodeValidation, "unknown catalog item")}
	svc := newTestService(t, provider, pricer)

	_, err := svc.Create(context.Background(), "eur", []pricing.CartLine{{Parent: "sku_x", Quantity: 1}})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if provider.createParams != nil {
		t.Fatal("provider must not be called when pricing fails")
	}
}

func TestApplyShippingRecomputesAmount(t *testing.T) {
	provider := &stubProvider{}
	pricer := &stubPricer{total: 5500}
	svc := newTestService(t, provider, pricer)

	intent, err := svc.ApplyShipping(context.Background(), "pi_1", []pricing.CartLine{{Parent: "sku_hood", Quantity: 1}}, "express")
	if err != nil {
		t.Fatalf("apply shipping: %v", err)
	}
	if intent.Amount != 5500 {
		t.Fatalf("expected amount 5500, got %d", intent.Amount)
	}
	if provider.updatedIntent != "pi_1" {
		t.Fatalf("expected update on pi_1, got %q", provider.updatedIntent)
	}
	if pricer.shipping != "express" {
		t.Fatalf("expected express shipping priced, got %q", pricer.shipping)
	}
}

func TestStatusProjectsOnlyStatus(t *testing.T) {
	provider := &stubProvider{intent: &stripe.PaymentIntent{
		ID:           "pi_1",
		Status:       stripe.IntentStatusProcessing,
		ClientSecret: "pi_1_secret_x",
	}}
	svc := newTestService(t, provider, &stubPricer{})

	projection, err := svc.Status(context.Background(), "pi_1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if projection.Status != stripe.IntentStatusProcessing {
		t.Fatalf("expected processing, got %q", projection.Status)
	}
	raw, err := json.Marshal(projection)
	if err != nil {
		t.Fatalf("marshal projection: %v", err)
	}
	if string(raw) != `{"status":"processing"}` {
		t.Fatalf("projection leaks fields: %s", raw)
	}
}

func TestHandleEventChargeableConfirms(t *testing.T) {
	provider := &stubProvider{intent: &stripe.PaymentIntent{
		ID:     "pi_1",
		Status: stripe.IntentStatusRequiresPaymentMethod,
	}}
	svc := newTestService(t, provider, &stubPricer{})

	err := svc.HandleEvent(context.Background(), sourceEvent(t, stripe.EventSourceChargeable, "src_1", "pi_1"))
	if err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if provider.getCalls != 1 {
		t.Fatalf("expected one status re-fetch, got %d", provider.getCalls)
	}
	if provider.confirmCalls != 1 || provider.confirmSource != "src_1" {
		t.Fatalf("expected confirm with src_1, got %d calls with %q", provider.confirmCalls, provider.confirmSource)
	}
}

func TestHandleEventChargeableOnSettledIntent(t *testing.T) {
	provider := &stubProvider{intent: &stripe.PaymentIntent{
		ID:     "pi_1",
		Status: stripe.IntentStatusSucceeded,
	}}
	svc := newTestService(t, provider, &stubPricer{})

	err := svc.HandleEvent(context.Background(), sourceEvent(t, stripe.EventSourceChargeable, "src_1", "pi_1"))
	if !pkgerrors.IsCode(err, pkgerrors.CodePrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
	if provider.confirmCalls != 0 {
		t.Fatalf("confirm must not run on a settled intent, got %d calls", provider.confirmCalls)
	}
}

func TestHandleEventChargeableWithoutMetadata(t *testing.T) {
	provider := &stubProvider{}
	svc := newTestService(t, provider, &stubPricer{})

	err := svc.HandleEvent(context.Background(), sourceEvent(t, stripe.EventSourceChargeable, "src_1", ""))
	if err != nil {
		t.Fatalf("expected no-op nil, got %v", err)
	}
	if provider.getCalls != 0 || provider.confirmCalls != 0 {
		t.Fatal("provider must not be called without intent metadata")
	}
}

func TestHandleEventSourceFailedCancels(t *testing.T) {
	provider := &stubProvider{intent: &stripe.PaymentIntent{
		ID:     "pi_1",
		Status: stripe.IntentStatusRequiresPaymentMethod,
	}}
	svc := newTestService(t, provider, &stubPricer{})

	err := svc.HandleEvent(context.Background(), sourceEvent(t, stripe.EventSourceFailed, "src_1", "pi_1"))
	if err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if provider.cancelCalls != 1 {
		t.Fatalf("expected one cancel, got %d", provider.cancelCalls)
	}
}

func TestHandleEventSourceCanceledOnTerminalIntent(t *testing.T) {
	provider := &stubProvider{intent: &stripe.PaymentIntent{
		ID:     "pi_1",
		Status: stripe.IntentStatusCanceled,
	}}
	svc := newTestService(t, provider, &stubPricer{})

	err := svc.HandleEvent(context.Background(), sourceEvent(t, stripe.EventSourceCanceled, "src_1", "pi_1"))
	if err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if provider.cancelCalls != 0 {
		t.Fatalf("cancel must not run on a terminal intent, got %d calls", provider.cancelCalls)
	}
}

func TestHandleEventUnknownTypeIsNoOp(t *testing.T) {
	provider := &stubProvider{}
	svc := newTestService(t, provider, &stubPricer{})

	event := &stripe.Event{ID: "evt_1", Type: "charge.refunded", Data: &stripe.EventData{Object: json.RawMessage(`{}`)}}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("expected nil for unknown type, got %v", err)
	}
	if provider.getCalls != 0 {
		t.Fatal("provider must not be called for unknown event types")
	}
}

func TestHandleEventIntentFailedLogsOnly(t *testing.T) {
	provider := &stubProvider{}
	svc := newTestService(t, provider, &stubPricer{})

	intent := stripe.PaymentIntent{
		ID:     "pi_1",
		Status: stripe.IntentStatusRequiresPaymentMethod,
		LastPaymentError: &stripe.PaymentError{
			Message: "The customer did not approve the payment.",
			Source:  &stripe.Source{ID: "src_1"},
		},
	}
	raw, err := json.Marshal(intent)
	if err != nil {
		t.Fatalf("marshal intent: %v", err)
	}
	event := &stripe.Event{ID: "evt_1", Type: stripe.EventPaymentIntentFailed, Data: &stripe.EventData{Object: raw}}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if provider.getCalls != 0 || provider.cancelCalls != 0 {
		t.Fatal("intent failure events must not trigger provider calls")
	}
}
