package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pmartell/storefront-checkout/pkg/config"
	pkgerrors "github.com/pmartell/storefront-checkout/pkg/errors"
	"github.com/pmartell/storefront-checkout/pkg/logger"
	"github.com/pmartell/storefront-checkout/pkg/metrics"
)

const (
	defaultBaseURL        = "https://api.stripe.com"
	responseBodyReadLimit = 1 << 20
	defaultClientTimeout  = 30 * time.Second
	catalogPageLimit      = 100
)

var (
	errSecretKeyRequired = errors.New("stripe secret key is required")
	errInvalidSecretKey  = errors.New("stripe secret key must start with sk_ or rk_")
)

// Client speaks the provider's REST API: payment intents, sources, and the
// goods/SKU catalog this storefront passes through.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	secretKey     string
	publicKey     string
	webhookSecret string
	logger        *logger.Logger
	metrics       *metrics.CheckoutMetrics
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the provider API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithMetrics records provider call durations on the given metrics.
func WithMetrics(m *metrics.CheckoutMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient validates the configured credentials and builds the client.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		return nil, errSecretKeyRequired
	}
	if !strings.HasPrefix(secretKey, "sk_") && !strings.HasPrefix(secretKey, "rk_") {
		return nil, errInvalidSecretKey
	}

	c := &Client{
		httpClient:    &http.Client{Timeout: defaultClientTimeout},
		baseURL:       defaultBaseURL,
		secretKey:     secretKey,
		publicKey:     strings.TrimSpace(cfg.PublicKey),
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		logger:        logg,
	}
	if cfg.APIBase != "" {
		c.baseURL = strings.TrimSpace(cfg.APIBase)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if logg != nil {
		mode := "live"
		if strings.Contains(secretKey, "_test") {
			mode = "test"
		}
		logg.Info(logg.WithField(ctx, "stripe_env", mode), "stripe client initialized")
	}
	return c, nil
}

// PublishableKey returns the browser-side key exposed by GET /config.
func (c *Client) PublishableKey() string {
	if c == nil {
		return ""
	}
	return c.publicKey
}

// SigningSecret returns the webhook signing secret ("" in reduced-security mode).
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.webhookSecret
}

// Payment intent operations

func (c *Client) CreatePaymentIntent(ctx context.Context, params IntentCreateParams) (*PaymentIntent, error) {
	c.log(ctx, "request", "create_payment_intent", map[string]any{
		"amount":   params.Amount,
		"currency": params.Currency,
	})
	var intent PaymentIntent
	if err := c.do(ctx, http.MethodPost, "/v1/payment_intents", params.values(), &intent, "create_payment_intent"); err != nil {
		return nil, err
	}
	c.log(ctx, "response", "create_payment_intent", map[string]any{
		"intent_id": intent.ID,
		"status":    intent.Status,
	})
	return &intent, nil
}

func (c *Client) UpdatePaymentIntent(ctx context.Context, intentID string, params IntentUpdateParams) (*PaymentIntent, error) {
	c.log(ctx, "request", "update_payment_intent", map[string]any{
		"intent_id": intentID,
		"amount":    params.Amount,
	})
	var intent PaymentIntent
	path := "/v1/payment_intents/" + url.PathEscape(intentID)
	if err := c.do(ctx, http.MethodPost, path, params.values(), &intent, "update_payment_intent"); err != nil {
		return nil, err
	}
	return &intent, nil
}

func (c *Client) GetPaymentIntent(ctx context.Context, intentID string) (*PaymentIntent, error) {
	var intent PaymentIntent
	path := "/v1/payment_intents/" + url.PathEscape(intentID)
	if err := c.do(ctx, http.MethodGet, path, nil, &intent, "get_payment_intent"); err != nil {
		return nil, err
	}
	return &intent, nil
}

// ConfirmPaymentIntentWithSource confirms an intent with a chargeable source.
func (c *Client) ConfirmPaymentIntentWithSource(ctx context.Context, intentID, sourceID string) (*PaymentIntent, error) {
	c.log(ctx, "request", "confirm_payment_intent", map[string]any{
		"intent_id": intentID,
		"source_id": sourceID,
	})
	form := url.Values{}
	form.Set("source", sourceID)
	var intent PaymentIntent
	path := "/v1/payment_intents/" + url.PathEscape(intentID) + "/confirm"
	if err := c.do(ctx, http.MethodPost, path, form, &intent, "confirm_payment_intent"); err != nil {
		return nil, err
	}
	c.log(ctx, "response", "confirm_payment_intent", map[string]any{
		"intent_id": intent.ID,
		"status":    intent.Status,
	})
	return &intent, nil
}

func (c *Client) CancelPaymentIntent(ctx context.Context, intentID string) (*PaymentIntent, error) {
	c.log(ctx, "request", "cancel_payment_intent", map[string]any{"intent_id": intentID})
	var intent PaymentIntent
	path := "/v1/payment_intents/" + url.PathEscape(intentID) + "/cancel"
	if err := c.do(ctx, http.MethodPost, path, url.Values{}, &intent, "cancel_payment_intent"); err != nil {
		return nil, err
	}
	return &intent, nil
}

// Source operations

func (c *Client) CreateSource(ctx context.Context, params SourceCreateParams) (*Source, error) {
	c.log(ctx, "request", "create_source", map[string]any{
		"type":   params.Type,
		"amount": params.Amount,
	})
	var source Source
	if err := c.do(ctx, http.MethodPost, "/v1/sources", params.values(), &source, "create_source"); err != nil {
		return nil, err
	}
	return &source, nil
}

func (c *Client) GetSource(ctx context.Context, sourceID, clientSecret string) (*Source, error) {
	path := "/v1/sources/" + url.PathEscape(sourceID)
	if clientSecret != "" {
		path += "?client_secret=" + url.QueryEscape(clientSecret)
	}
	var source Source
	if err := c.do(ctx, http.MethodGet, path, nil, &source, "get_source"); err != nil {
		return nil, err
	}
	return &source, nil
}

// Catalog operations

func (c *Client) ListProducts(ctx context.Context) (*ProductList, error) {
	path := fmt.Sprintf("/v1/products?type=good&limit=%d", catalogPageLimit)
	var list ProductList
	if err := c.do(ctx, http.MethodGet, path, nil, &list, "list_products"); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) GetProduct(ctx context.Context, productID string) (*Product, error) {
	var product Product
	path := "/v1/products/" + url.PathEscape(productID)
	if err := c.do(ctx, http.MethodGet, path, nil, &product, "get_product"); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) ListSKUs(ctx context.Context, productID string) (*SKUList, error) {
	path := fmt.Sprintf("/v1/skus?product=%s&limit=%d", url.QueryEscape(productID), catalogPageLimit)
	var list SKUList
	if err := c.do(ctx, http.MethodGet, path, nil, &list, "list_skus"); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) CreateProduct(ctx context.Context, params ProductCreateParams) (*Product, error) {
	var product Product
	if err := c.do(ctx, http.MethodPost, "/v1/products", params.values(), &product, "create_product"); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) CreateSKU(ctx context.Context, params SKUCreateParams) (*SKU, error) {
	var sku SKU
	if err := c.do(ctx, http.MethodPost, "/v1/skus", params.values(), &sku, "create_sku"); err != nil {
		return nil, err
	}
	return &sku, nil
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any, op string) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build provider request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.metrics != nil {
		c.metrics.ObserveProviderCall(op, time.Since(start))
	}
	if err != nil {
		c.log(ctx, "error", op, map[string]any{"error": err.Error()})
		return pkgerrors.Wrap(pkgerrors.CodeProvider, err, fmt.Sprintf("provider %s failed", op))
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeProvider, err, "read provider response")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := decodeAPIError(payload, resp.StatusCode)
		c.log(ctx, "error", op, map[string]any{
			"status": resp.StatusCode,
			"error":  apiErr.Message,
		})
		code := pkgerrors.CodeProvider
		if resp.StatusCode == http.StatusNotFound {
			code = pkgerrors.CodeNotFound
		}
		return pkgerrors.Wrap(code, apiErr, apiErr.Error())
	}

	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeProvider, err, "decode provider response")
		}
	}
	return nil
}

func decodeAPIError(payload []byte, status int) *APIError {
	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(payload, &envelope); err == nil && envelope.Error != nil {
		envelope.Error.HTTPStatus = status
		return envelope.Error
	}
	return &APIError{HTTPStatus: status}
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("stripe %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("stripe %s", phase))
	}
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"secret", "card", "iban", "email", "owner", "number"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}
