package stripe

import (
	"net/url"
	"strconv"
)

// IntentCreateParams creates a payment intent with a server-computed amount.
type IntentCreateParams struct {
	Amount             int64
	Currency           string
	PaymentMethodTypes []string
}

func (p IntentCreateParams) values() url.Values {
	v := url.Values{}
	v.Set("amount", strconv.FormatInt(p.Amount, 10))
	v.Set("currency", p.Currency)
	for _, method := range p.PaymentMethodTypes {
		v.Add("payment_method_types[]", method)
	}
	return v
}

// IntentUpdateParams overwrites the amount of an existing intent.
type IntentUpdateParams struct {
	Amount int64
}

func (p IntentUpdateParams) values() url.Values {
	v := url.Values{}
	v.Set("amount", strconv.FormatInt(p.Amount, 10))
	return v
}

// SourceCreateParams creates a source bound to its owning intent via metadata.
type SourceCreateParams struct {
	Type                string
	Amount              int64
	Currency            string
	OwnerName           string
	OwnerEmail          string
	RedirectReturnURL   string
	StatementDescriptor string
	Metadata            map[string]string

	// SOFORT requires the customer country before redirecting to the bank.
	SofortCountry string
}

func (p SourceCreateParams) values() url.Values {
	v := url.Values{}
	v.Set("type", p.Type)
	v.Set("amount", strconv.FormatInt(p.Amount, 10))
	v.Set("currency", p.Currency)
	if p.OwnerName != "" {
		v.Set("owner[name]", p.OwnerName)
	}
	if p.OwnerEmail != "" {
		v.Set("owner[email]", p.OwnerEmail)
	}
	if p.RedirectReturnURL != "" {
		v.Set("redirect[return_url]", p.RedirectReturnURL)
	}
	if p.StatementDescriptor != "" {
		v.Set("statement_descriptor", p.StatementDescriptor)
	}
	for key, value := range p.Metadata {
		v.Set("metadata["+key+"]", value)
	}
	if p.SofortCountry != "" {
		v.Set("sofort[country]", p.SofortCountry)
	}
	return v
}

// ProductCreateParams seeds one demo catalog product.
type ProductCreateParams struct {
	ID         string
	Name       string
	Attributes []string
}

func (p ProductCreateParams) values() url.Values {
	v := url.Values{}
	v.Set("id", p.ID)
	v.Set("name", p.Name)
	v.Set("type", "good")
	for _, attr := range p.Attributes {
		v.Add("attributes[]", attr)
	}
	return v
}

// SKUCreateParams seeds one purchasable SKU for a product.
type SKUCreateParams struct {
	Product    string
	Price      int64
	Currency   string
	Attributes map[string]string
}

func (p SKUCreateParams) values() url.Values {
	v := url.Values{}
	v.Set("product", p.Product)
	v.Set("price", strconv.FormatInt(p.Price, 10))
	v.Set("currency", p.Currency)
	v.Set("inventory[type]", "infinite")
	for key, value := range p.Attributes {
		v.Set("attributes["+key+"]", value)
	}
	return v
}
