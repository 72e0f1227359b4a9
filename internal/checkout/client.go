package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pmartell/storefront-checkout/internal/pricing"
	"github.com/pmartell/storefront-checkout/pkg/config"
	pkgerrors "github.com/pmartell/storefront-checkout/pkg/errors"
	"github.com/pmartell/storefront-checkout/pkg/stripe"
)

const clientTimeout = 15 * time.Second

// StoreSnapshot is the bootstrap payload served by GET /config.
type StoreSnapshot struct {
	PublishableKey  string                  `json:"publishableKey"`
	StripeCountry   string                  `json:"stripeCountry"`
	Country         string                  `json:"country"`
	Currency        string                  `json:"currency"`
	PaymentMethods  []string                `json:"paymentMethods"`
	ShippingOptions []config.ShippingOption `json:"shippingOptions"`
}

// Client talks to the storefront server's HTTP surface.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "server base url is required")
	}
	c := &Client{
		httpClient: &http.Client{Timeout: clientTimeout},
		baseURL:    trimmed,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func (c *Client) Snapshot(ctx context.Context) (*StoreSnapshot, error) {
	var snapshot StoreSnapshot
	if err := c.do(ctx, http.MethodGet, "/config", nil, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (c *Client) Products(ctx context.Context) ([]*stripe.Product, error) {
	var list stripe.ProductList
	if err := c.do(ctx, http.MethodGet, "/products", nil, &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

func (c *Client) SKUs(ctx context.Context, productID string) (*stripe.SKUList, error) {
	var list stripe.SKUList
	path := fmt.Sprintf("/products/%s/skus", url.PathEscape(productID))
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

type createIntentBody struct {
	Currency string             `json:"currency"`
	Items    []pricing.CartLine `json:"items"`
}

type shippingChangeBody struct {
	Items          []pricing.CartLine    `json:"items"`
	ShippingOption shippingOptionPayload `json:"shippingOption"`
}

type shippingOptionPayload struct {
	ID string `json:"id"`
}

type intentEnvelope struct {
	PaymentIntent *stripe.PaymentIntent `json:"paymentIntent"`
	Error         string                `json:"error"`
}

func (c *Client) CreatePaymentIntent(ctx context.Context, currency string, items []pricing.CartLine) (*stripe.PaymentIntent, error) {
	var envelope intentEnvelope
	if err := c.do(ctx, http.MethodPost, "/payment_intents", createIntentBody{Currency: currency, Items: items}, &envelope); err != nil {
		return nil, err
	}
	return envelope.PaymentIntent, nil
}

func (c *Client) ApplyShipping(ctx context.Context, intentID string, items []pricing.CartLine, shippingOptionID string) (*stripe.PaymentIntent, error) {
	body := shippingChangeBody{Items: items, ShippingOption: shippingOptionPayload{ID: shippingOptionID}}
	path := fmt.Sprintf("/payment_intents/%s/shipping_change", url.PathEscape(intentID))
	var envelope intentEnvelope
	if err := c.do(ctx, http.MethodPost, path, body, &envelope); err != nil {
		return nil, err
	}
	return envelope.PaymentIntent, nil
}

// IntentStatus fetches the minimal status projection used while polling.
func (c *Client) IntentStatus(ctx context.Context, intentID string) (stripe.IntentStatus, error) {
	path := fmt.Sprintf("/payment_intents/%s/status", url.PathEscape(intentID))
	var envelope intentEnvelope
	if err := c.do(ctx, http.MethodGet, path, nil, &envelope); err != nil {
		return "", err
	}
	if envelope.PaymentIntent == nil {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "status response missing payment intent")
	}
	return envelope.PaymentIntent.Status, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storefront server unreachable")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeProvider, err, "read response body")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var failure intentEnvelope
		if err := json.Unmarshal(payload, &failure); err == nil && failure.Error != "" {
			code := pkgerrors.CodeProvider
			if resp.StatusCode == http.StatusBadRequest {
				code = pkgerrors.CodeValidation
			}
			return pkgerrors.New(code, failure.Error)
		}
		return pkgerrors.New(pkgerrors.CodeProvider, fmt.Sprintf("storefront server returned status %d", resp.StatusCode))
	}

	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeProvider, err, "decode response body")
		}
	}
	return nil
}
