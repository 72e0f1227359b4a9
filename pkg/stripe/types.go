package stripe

import (
	"encoding/json"
	"errors"
	"fmt"
)

// IntentStatus is the closed set of payment-intent states.
type IntentStatus string

const (
	IntentStatusRequiresPaymentMethod IntentStatus = "requires_payment_method"
	IntentStatusRequiresConfirmation  IntentStatus = "requires_confirmation"
	IntentStatusRequiresAction        IntentStatus = "requires_action"
	IntentStatusProcessing            IntentStatus = "processing"
	IntentStatusSucceeded             IntentStatus = "succeeded"
	IntentStatusCanceled              IntentStatus = "canceled"
)

// Terminal reports whether no further transition is possible.
func (s IntentStatus) Terminal() bool {
	return s == IntentStatusSucceeded || s == IntentStatusCanceled
}

// Settled reports whether status polling can stop. `processing` counts:
// the payment is out of the customer's hands even though confirmation
// is still pending bank-side.
func (s IntentStatus) Settled() bool {
	return s == IntentStatusSucceeded || s == IntentStatusProcessing || s == IntentStatusCanceled
}

// PaymentIntent mirrors the provider's payment-intent resource.
type PaymentIntent struct {
	ID               string        `json:"id"`
	Object           string        `json:"object,omitempty"`
	Amount           int64         `json:"amount"`
	Currency         string        `json:"currency"`
	Status           IntentStatus  `json:"status"`
	ClientSecret     string        `json:"client_secret,omitempty"`
	LastPaymentError *PaymentError `json:"last_payment_error,omitempty"`
}

// PaymentError carries the provider's last failure, with the nested
// payment-method/source that triggered it.
type PaymentError struct {
	Type          string         `json:"type,omitempty"`
	Code          string         `json:"code,omitempty"`
	Message       string         `json:"message,omitempty"`
	PaymentMethod *PaymentMethod `json:"payment_method,omitempty"`
	Source        *Source        `json:"source,omitempty"`
}

// PaymentMethod is the minimal projection of an attached payment method.
type PaymentMethod struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// SourceStatus is the closed set of source states.
type SourceStatus string

const (
	SourceStatusPending    SourceStatus = "pending"
	SourceStatusChargeable SourceStatus = "chargeable"
	SourceStatusFailed     SourceStatus = "failed"
	SourceStatusCanceled   SourceStatus = "canceled"
	SourceStatusConsumed   SourceStatus = "consumed"
)

// MetadataIntentKey is the source metadata key carrying the owning intent id.
const MetadataIntentKey = "paymentIntent"

// Source is an out-of-band payment source for asynchronous non-card methods.
type Source struct {
	ID           string            `json:"id"`
	Object       string            `json:"object,omitempty"`
	Type         string            `json:"type"`
	Flow         string            `json:"flow,omitempty"`
	Status       SourceStatus      `json:"status"`
	Amount       int64             `json:"amount,omitempty"`
	Currency     string            `json:"currency,omitempty"`
	ClientSecret string            `json:"client_secret,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Redirect     *SourceRedirect   `json:"redirect,omitempty"`

	WeChat            *SourceWeChat            `json:"wechat,omitempty"`
	ACHCreditTransfer *SourceACHCreditTransfer `json:"ach_credit_transfer,omitempty"`
	Multibanco        *SourceMultibanco        `json:"multibanco,omitempty"`
}

// OwningIntentID returns the payment-intent id the source was created for,
// or "" when the metadata is absent.
func (s *Source) OwningIntentID() string {
	if s == nil || s.Metadata == nil {
		return ""
	}
	return s.Metadata[MetadataIntentKey]
}

type SourceRedirect struct {
	ReturnURL string `json:"return_url,omitempty"`
	Status    string `json:"status,omitempty"`
	URL       string `json:"url,omitempty"`
}

type SourceWeChat struct {
	QRCodeURL string `json:"qr_code_url"`
}

type SourceACHCreditTransfer struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	RoutingNumber string `json:"routing_number"`
}

type SourceMultibanco struct {
	Entity    string `json:"entity"`
	Reference string `json:"reference"`
}

// Product is a catalog item on the provider account.
type Product struct {
	ID         string            `json:"id"`
	Object     string            `json:"object,omitempty"`
	Name       string            `json:"name"`
	Type       string            `json:"type,omitempty"`
	Attributes []string          `json:"attributes,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	SKUs       *SKUList          `json:"skus,omitempty"`
}

// SKU is a purchasable variant of a product, priced in minor currency units.
type SKU struct {
	ID         string            `json:"id"`
	Object     string            `json:"object,omitempty"`
	Product    string            `json:"product"`
	Price      int64             `json:"price"`
	Currency   string            `json:"currency"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type ProductList struct {
	Object  string     `json:"object"`
	Data    []*Product `json:"data"`
	HasMore bool       `json:"has_more"`
}

type SKUList struct {
	Object  string `json:"object"`
	Data    []*SKU `json:"data"`
	HasMore bool   `json:"has_more"`
}

// Webhook event types this system reacts to. Anything else is ignored.
const (
	EventPaymentIntentSucceeded = "payment_intent.succeeded"
	EventPaymentIntentFailed    = "payment_intent.payment_failed"
	EventSourceChargeable       = "source.chargeable"
	EventSourceFailed           = "source.failed"
	EventSourceCanceled         = "source.canceled"
)

// Event is one webhook delivery.
type Event struct {
	ID   string     `json:"id"`
	Type string     `json:"type"`
	Data *EventData `json:"data"`
}

type EventData struct {
	Object json.RawMessage `json:"object"`
}

var errEventDataMissing = errors.New("event data object missing")

// PaymentIntent decodes the event payload as a payment intent.
func (e *Event) PaymentIntent() (*PaymentIntent, error) {
	if e == nil || e.Data == nil || len(e.Data.Object) == 0 {
		return nil, errEventDataMissing
	}
	var intent PaymentIntent
	if err := json.Unmarshal(e.Data.Object, &intent); err != nil {
		return nil, fmt.Errorf("decode payment intent: %w", err)
	}
	return &intent, nil
}

// Source decodes the event payload as a source.
func (e *Event) Source() (*Source, error) {
	if e == nil || e.Data == nil || len(e.Data.Object) == 0 {
		return nil, errEventDataMissing
	}
	var source Source
	if err := json.Unmarshal(e.Data.Object, &source); err != nil {
		return nil, fmt.Errorf("decode source: %w", err)
	}
	return &source, nil
}

// APIError is the provider's error envelope.
type APIError struct {
	Type       string `json:"type,omitempty"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("provider request failed with status %d", e.HTTPStatus)
}
