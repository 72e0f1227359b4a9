package catalog

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	pkgerrors "github.com/pmartell/storefront-checkout/pkg/errors"
	"github.com/pmartell/storefront-checkout/pkg/stripe"
)

// Provider is the catalog surface of the payment provider.
type Provider interface {
	ListProducts(ctx context.Context) (*stripe.ProductList, error)
	GetProduct(ctx context.Context, productID string) (*stripe.Product, error)
	ListSKUs(ctx context.Context, productID string) (*stripe.SKUList, error)
}

type ServiceParams struct {
	Provider Provider
}

// Service is a read-through view of the provider catalog. Products and SKUs
// are immutable once fetched and the first load is single-flighted so
// concurrent checkouts issue one provider round-trip.
type Service struct {
	provider Provider
	group    singleflight.Group

	mu    sync.RWMutex
	items *snapshot
}

type snapshot struct {
	products []*stripe.Product
	skuByID  map[string]*stripe.SKU
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog provider required")
	}
	return &Service{provider: params.Provider}, nil
}

// Products returns the full product list with SKUs attached.
func (s *Service) Products(ctx context.Context) ([]*stripe.Product, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return snap.products, nil
}

// Product is a passthrough lookup of a single product.
func (s *Service) Product(ctx context.Context, productID string) (*stripe.Product, error) {
	return s.provider.GetProduct(ctx, productID)
}

// SKUs is a passthrough listing of a product's SKUs.
func (s *Service) SKUs(ctx context.Context, productID string) (*stripe.SKUList, error) {
	return s.provider.ListSKUs(ctx, productID)
}

// SKU resolves a catalog item by SKU identifier for pricing.
func (s *Service) SKU(ctx context.Context, skuID string) (*stripe.SKU, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	sku, ok := snap.skuByID[skuID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown catalog item").
			WithDetails(map[string]string{"item": skuID})
	}
	return sku, nil
}

func (s *Service) load(ctx context.Context) (*snapshot, error) {
	s.mu.RLock()
	cached := s.items
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	value, err, _ := s.group.Do("catalog", func() (any, error) {
		s.mu.RLock()
		loaded := s.items
		s.mu.RUnlock()
		if loaded != nil {
			return loaded, nil
		}

		// The flight serves every concurrent caller; canceling the
		// initiating request must not fail the rest.
		ctx := context.WithoutCancel(ctx)

		list, err := s.provider.ListProducts(ctx)
		if err != nil {
			return nil, err
		}

		snap := &snapshot{skuByID: map[string]*stripe.SKU{}}
		for _, product := range list.Data {
			if product == nil {
				continue
			}
			// Some provider accounts embed SKUs in the product list;
			// otherwise fetch them per product.
			if product.SKUs == nil {
				skus, err := s.provider.ListSKUs(ctx, product.ID)
				if err != nil {
					return nil, err
				}
				product.SKUs = skus
			}
			for _, sku := range product.SKUs.Data {
				if sku != nil {
					snap.skuByID[sku.ID] = sku
				}
			}
			snap.products = append(snap.products, product)
		}

		s.mu.Lock()
		s.items = snap
		s.mu.Unlock()
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*snapshot), nil
}
