package intents

import (
	"context"
	"strings"

	"github.com/pmartell/storefront-checkout/internal/pricing"
	"github.com/pmartell/storefront-checkout/pkg/config"
	"github.com/pmartell/storefront-checkout/pkg/errors"
	"github.com/pmartell/storefront-checkout/pkg/logger"
	"github.com/pmartell/storefront-checkout/pkg/metrics"
	"github.com/pmartell/storefront-checkout/pkg/stripe"
)

// Provider is the slice of the payment gateway the orchestrator drives.
type Provider interface {
	CreatePaymentIntent(ctx context.Context, params stripe.IntentCreateParams) (*stripe.PaymentIntent, error)
	UpdatePaymentIntent(ctx context.Context, intentID string, params stripe.IntentUpdateParams) (*stripe.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, intentID string) (*stripe.PaymentIntent, error)
	ConfirmPaymentIntentWithSource(ctx context.Context, intentID, sourceID string) (*stripe.PaymentIntent, error)
	CancelPaymentIntent(ctx context.Context, intentID string) (*stripe.PaymentIntent, error)
}

// Pricer recomputes cart totals from the catalog. Client-supplied amounts
// are never trusted.
type Pricer interface {
	ComputeTotal(ctx context.Context, lines []pricing.CartLine, shippingOptionID string) (int64, error)
}

// StatusProjection is the minimal view exposed to polling clients.
type StatusProjection struct {
	Status stripe.IntentStatus `json:"status"`
}

type ServiceParams struct {
	Provider Provider
	Pricing  Pricer
	Store    config.StoreConfig
	Logger   *logger.Logger
	Metrics  *metrics.CheckoutMetrics
}

// Service orchestrates the payment-intent lifecycle. It holds no state of
// its own; the provider is the single store of intent state.
type Service struct {
	provider Provider
	pricing  Pricer
	store    config.StoreConfig
	logger   *logger.Logger
	metrics  *metrics.CheckoutMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Provider == nil {
		return nil, errors.New(errors.CodeInternal, "intents service requires a provider")
	}
	if params.Pricing == nil {
		return nil, errors.New(errors.CodeInternal, "intents service requires a pricing service")
	}
	if params.Logger == nil {
		return nil, errors.New(errors.CodeInternal, "intents service requires a logger")
	}
	return &Service{
		provider: params.Provider,
		pricing:  params.Pricing,
		store:    params.Store,
		logger:   params.Logger,
		metrics:  params.Metrics,
	}, nil
}

// Create recomputes the cart total server-side and opens a payment intent
// for it. An empty currency falls back to the store default.
func (s *Service) Create(ctx context.Context, currency string, lines []pricing.CartLine) (*stripe.PaymentIntent, error) {
	if currency == "" {
		currency = s.store.Currency
	}
	currency = strings.ToLower(currency)

	amount, err := s.pricing.ComputeTotal(ctx, lines, "")
	if err != nil {
		return nil, err
	}

	intent, err := s.provider.CreatePaymentIntent(ctx, stripe.IntentCreateParams{
		Amount:             amount,
		Currency:           currency,
		PaymentMethodTypes: s.store.PaymentMethods,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncIntent("created")

	ctx = s.logger.WithIntentID(ctx, intent.ID)
	s.logger.Info(s.logger.WithField(ctx, "amount", intent.Amount), "payment intent created")
	return intent, nil
}

// ApplyShipping recomputes the total with the selected shipping option and
// overwrites the intent amount. Recomputing from the cart makes the update
// idempotent under client retries.
func (s *Service) ApplyShipping(ctx context.Context, intentID string, lines []pricing.CartLine, shippingOptionID string) (*stripe.PaymentIntent, error) {
	if intentID == "" {
		return nil, errors.New(errors.CodeValidation, "payment intent id is required")
	}

	amount, err := s.pricing.ComputeTotal(ctx, lines, shippingOptionID)
	if err != nil {
		return nil, err
	}

	intent, err := s.provider.UpdatePaymentIntent(ctx, intentID, stripe.IntentUpdateParams{Amount: amount})
	if err != nil {
		return nil, err
	}
	s.metrics.IncIntent("amended")

	ctx = s.logger.WithIntentID(ctx, intent.ID)
	s.logger.Info(s.logger.WithFields(ctx, map[string]any{
		"amount":   intent.Amount,
		"shipping": shippingOptionID,
	}), "payment intent amount updated")
	return intent, nil
}

// Status fetches the intent from the provider and projects its status.
func (s *Service) Status(ctx context.Context, intentID string) (*StatusProjection, error) {
	if intentID == "" {
		return nil, errors.New(errors.CodeValidation, "payment intent id is required")
	}
	intent, err := s.provider.GetPaymentIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	return &StatusProjection{Status: intent.Status}, nil
}

// HandleEvent dispatches one verified webhook event. Unknown event types
// and sources without owning-intent metadata are ignored with a nil return
// so the provider does not redeliver them.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil {
		return nil
	}
	ctx = s.logger.WithEventID(ctx, event.ID)

	switch event.Type {
	case stripe.EventPaymentIntentSucceeded:
		return s.handleIntentSucceeded(ctx, event)
	case stripe.EventPaymentIntentFailed:
		return s.handleIntentFailed(ctx, event)
	case stripe.EventSourceChargeable:
		return s.handleSourceChargeable(ctx, event)
	case stripe.EventSourceFailed, stripe.EventSourceCanceled:
		return s.handleSourceClosed(ctx, event)
	default:
		s.logger.Info(s.logger.WithField(ctx, "type", event.Type), "ignoring webhook event")
		s.metrics.ObserveWebhook(event.Type, "ignored")
		return nil
	}
}

func (s *Service) handleIntentSucceeded(ctx context.Context, event *stripe.Event) error {
	intent, err := event.PaymentIntent()
	if err != nil {
		return errors.Wrap(errors.CodeValidation, err, "malformed payment intent event")
	}
	ctx = s.logger.WithIntentID(ctx, intent.ID)
	s.logger.Info(s.logger.WithField(ctx, "amount", intent.Amount), "payment intent succeeded")
	s.metrics.ObserveWebhook(event.Type, "handled")
	return nil
}

func (s *Service) handleIntentFailed(ctx context.Context, event *stripe.Event) error {
	intent, err := event.PaymentIntent()
	if err != nil {
		return errors.Wrap(errors.CodeValidation, err, "malformed payment intent event")
	}
	ctx = s.logger.WithIntentID(ctx, intent.ID)

	fields := map[string]any{}
	if lastErr := intent.LastPaymentError; lastErr != nil {
		fields["reason"] = lastErr.Message
		if lastErr.PaymentMethod != nil {
			fields["payment_method"] = lastErr.PaymentMethod.ID
		}
		if lastErr.Source != nil {
			fields["source"] = lastErr.Source.ID
		}
	}
	s.logger.Warn(s.logger.WithFields(ctx, fields), "payment intent failed")
	s.metrics.ObserveWebhook(event.Type, "handled")
	return nil
}

// handleSourceChargeable confirms the owning intent with the now-chargeable
// source. The intent status is always re-fetched first: under at-least-once
// delivery a redelivered event must not confirm an intent twice.
func (s *Service) handleSourceChargeable(ctx context.Context, event *stripe.Event) error {
	source, err := event.Source()
	if err != nil {
		return errors.Wrap(errors.CodeValidation, err, "malformed source event")
	}
	intentID := source.OwningIntentID()
	if intentID == "" {
		s.logger.Warn(s.logger.WithField(ctx, "source", source.ID), "chargeable source carries no intent metadata")
		s.metrics.ObserveWebhook(event.Type, "ignored")
		return nil
	}
	ctx = s.logger.WithIntentID(ctx, intentID)

	intent, err := s.provider.GetPaymentIntent(ctx, intentID)
	if err != nil {
		s.metrics.ObserveWebhook(event.Type, "error")
		return err
	}
	if intent.Status != stripe.IntentStatusRequiresPaymentMethod {
		s.logger.Warn(s.logger.WithField(ctx, "status", string(intent.Status)), "payment intent is not awaiting a payment method")
		s.metrics.ObserveWebhook(event.Type, "rejected")
		return errors.New(errors.CodePrecondition, "payment intent is not awaiting a payment method")
	}

	if _, err := s.provider.ConfirmPaymentIntentWithSource(ctx, intentID, source.ID); err != nil {
		s.metrics.ObserveWebhook(event.Type, "error")
		return err
	}
	s.metrics.IncIntent("confirmed")
	s.metrics.ObserveWebhook(event.Type, "handled")
	s.logger.Info(s.logger.WithField(ctx, "source", source.ID), "payment intent confirmed with source")
	return nil
}

// handleSourceClosed cancels the owning intent when its source failed or
// was canceled by the customer. An intent that already reached a terminal
// state is left alone.
func (s *Service) handleSourceClosed(ctx context.Context, event *stripe.Event) error {
	source, err := event.Source()
	if err != nil {
		return errors.Wrap(errors.CodeValidation, err, "malformed source event")
	}
	intentID := source.OwningIntentID()
	if intentID == "" {
		s.logger.Warn(s.logger.WithField(ctx, "source", source.ID), "closed source carries no intent metadata")
		s.metrics.ObserveWebhook(event.Type, "ignored")
		return nil
	}
	ctx = s.logger.WithIntentID(ctx, intentID)

	intent, err := s.provider.GetPaymentIntent(ctx, intentID)
	if err != nil {
		s.metrics.ObserveWebhook(event.Type, "error")
		return err
	}
	if intent.Status.Terminal() {
		s.logger.Info(s.logger.WithField(ctx, "status", string(intent.Status)), "source closed after intent settled")
		s.metrics.ObserveWebhook(event.Type, "ignored")
		return nil
	}

	if _, err := s.provider.CancelPaymentIntent(ctx, intentID); err != nil {
		s.metrics.ObserveWebhook(event.Type, "error")
		return err
	}
	s.metrics.IncIntent("canceled")
	s.metrics.ObserveWebhook(event.Type, "handled")
	s.logger.Info(s.logger.WithField(ctx, "source", source.ID), "payment intent canceled after source closed")
	return nil
}
