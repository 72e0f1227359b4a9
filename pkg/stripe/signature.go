package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v84/webhook"

	pkgerrors "github.com/pmartell/storefront-checkout/pkg/errors"
)

// SignatureHeader is the request header carrying the provider signature.
const SignatureHeader = "Stripe-Signature"

// ConstructEvent parses a webhook payload, verifying the signature over the
// raw bytes when a signing secret is configured. Without a secret the body is
// trusted as-is: a reduced-security mode for local development where the
// tunnel endpoint has no registered signing secret.
func (c *Client) ConstructEvent(payload []byte, sigHeader string) (*Event, error) {
	if c != nil && c.webhookSecret != "" {
		// Deliveries may be pinned to an API version other than the
		// library's; the dispatcher only reads id, type, and data.
		_, err := webhook.ConstructEventWithOptions(payload, sigHeader, c.webhookSecret, webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeSignature, err, "verify signature")
		}
	}
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode webhook event")
	}
	return &event, nil
}

// SignPayload produces a valid `t=<unix>,v1=<hex hmac>` header, used to
// simulate provider deliveries in tests.
func SignPayload(payload []byte, secret string, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", at.Unix())
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}
