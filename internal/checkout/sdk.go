package checkout

import (
	"context"

	"github.com/pmartell/storefront-checkout/pkg/stripe"
)

// PaymentDetails carries what the form collected for one submission.
type PaymentDetails struct {
	Method     string
	Name       string
	Email      string
	Country    string
	Address    string
	City       string
	PostalCode string
	State      string
}

// PaymentSDK is the provider-side capability seam: tokenized confirmation
// and out-of-band sources. Swapping providers means swapping this
// implementation, nothing else.
type PaymentSDK interface {
	// ConfirmPaymentMethod confirms the intent identified by its client
	// secret with the collected payment details.
	ConfirmPaymentMethod(ctx context.Context, clientSecret string, details PaymentDetails) (*stripe.PaymentIntent, error)
	CreateSource(ctx context.Context, params stripe.SourceCreateParams) (*stripe.Source, error)
	RetrieveSource(ctx context.Context, sourceID, clientSecret string) (*stripe.Source, error)
}
