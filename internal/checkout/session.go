package checkout

import (
	"context"
	"sync"

	"github.com/pmartell/storefront-checkout/internal/pricing"
	pkgerrors "github.com/pmartell/storefront-checkout/pkg/errors"
	"github.com/pmartell/storefront-checkout/pkg/money"
	"github.com/pmartell/storefront-checkout/pkg/stripe"
)

// LineItem is one cart entry: a product, the SKU being bought, and how many.
type LineItem struct {
	Product  string
	SKU      string
	Quantity int64
}

// Session is one customer's checkout context: the cart, the store snapshot,
// the catalog cache, and the current country/method selection. It is built
// explicitly per checkout so multiple sessions can coexist in one process.
type Session struct {
	api *Client

	mu       sync.Mutex
	snapshot *StoreSnapshot
	products map[string]*stripe.Product
	items    []LineItem
	country  string
	method   string
}

func NewSession(api *Client, items []LineItem) (*Session, error) {
	if api == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session requires a server client")
	}
	return &Session{
		api:      api,
		items:    append([]LineItem(nil), items...),
		products: map[string]*stripe.Product{},
	}, nil
}

// Load fetches the store snapshot and the product catalog, filling SKUs per
// product when the listing did not embed them.
func (s *Session) Load(ctx context.Context) error {
	snapshot, err := s.api.Snapshot(ctx)
	if err != nil {
		return err
	}

	products, err := s.api.Products(ctx)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		return pkgerrors.New(pkgerrors.CodeInternal, "no products on the store account, run the setup first")
	}

	loaded := map[string]*stripe.Product{}
	for _, product := range products {
		if product.SKUs == nil {
			skus, err := s.api.SKUs(ctx, product.ID)
			if err != nil {
				return err
			}
			product.SKUs = skus
		}
		loaded[product.ID] = product
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot
	s.products = loaded
	if s.country == "" {
		s.country = snapshot.Country
	}
	return nil
}

func (s *Session) Snapshot() *StoreSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// CartLines exposes the cart in the wire shape the server prices.
func (s *Session) CartLines() []pricing.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := make([]pricing.CartLine, 0, len(s.items))
	for _, item := range s.items {
		lines = append(lines, pricing.CartLine{
			Type:     "sku",
			Parent:   item.SKU,
			Quantity: item.Quantity,
		})
	}
	return lines
}

// Total computes the displayed cart total from the loaded catalog. The
// server recomputes independently; this value only drives labels.
func (s *Session) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, item := range s.items {
		product, ok := s.products[item.Product]
		if !ok || product.SKUs == nil {
			continue
		}
		for _, sku := range product.SKUs.Data {
			if sku.ID == item.SKU {
				total += sku.Price * item.Quantity
				break
			}
		}
	}
	return total
}

// FormatAmount renders an amount in the store currency for display.
func (s *Session) FormatAmount(amount int64) string {
	s.mu.Lock()
	currency := ""
	if s.snapshot != nil {
		currency = s.snapshot.Currency
	}
	s.mu.Unlock()
	return money.Format(amount, currency)
}

func (s *Session) SelectCountry(country string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.country = country
}

func (s *Session) Country() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.country
}

func (s *Session) SelectMethod(methodID string) error {
	if _, ok := MethodByID(methodID); !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.method = methodID
	return nil
}

func (s *Session) Method() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.method
}

// AvailableMethods lists the payment methods offered for the current
// country and store currency.
func (s *Session) AvailableMethods() []Method {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return nil
	}
	return AvailableMethods(s.snapshot.PaymentMethods, s.country, s.snapshot.Currency)
}
