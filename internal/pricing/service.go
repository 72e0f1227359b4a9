package pricing

import (
	"context"

	"github.com/pmartell/storefront-checkout/pkg/config"
	pkgerrors "github.com/pmartell/storefront-checkout/pkg/errors"
	"github.com/pmartell/storefront-checkout/pkg/stripe"
)

// CartLine references a catalog SKU and a quantity. The type field is part
// of the wire shape sent by checkout clients; sku is the only line type.
type CartLine struct {
	Type     string `json:"type,omitempty" validate:"omitempty,eq=sku"`
	Parent   string `json:"parent" validate:"required"`
	Quantity int64  `json:"quantity" validate:"required,min=1"`
}

// Catalog resolves cart line references to priced SKUs.
type Catalog interface {
	SKU(ctx context.Context, skuID string) (*stripe.SKU, error)
}

type ServiceParams struct {
	Catalog Catalog
	Store   config.StoreConfig
}

// Service derives order totals from cart contents. It is the only source of
// truth for amounts: client-supplied totals are never trusted, and every
// create/amend recomputes from scratch.
type Service struct {
	catalog Catalog
	store   config.StoreConfig
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "pricing catalog required")
	}
	return &Service{catalog: params.Catalog, store: params.Store}, nil
}

// ComputeTotal returns Σ(unit price × quantity) over the cart lines plus the
// selected shipping amount, in minor currency units. An empty shipping option
// id means no shipping charge.
func (s *Service) ComputeTotal(ctx context.Context, lines []CartLine, shippingOptionID string) (int64, error) {
	var total int64
	for _, line := range lines {
		if line.Quantity < 1 {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be at least 1").
				WithDetails(map[string]any{"item": line.Parent, "quantity": line.Quantity})
		}
		sku, err := s.catalog.SKU(ctx, line.Parent)
		if err != nil {
			return 0, err
		}
		total += sku.Price * line.Quantity
	}

	if shippingOptionID != "" {
		option, ok := s.store.ShippingOptionByID(shippingOptionID)
		if !ok {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "unknown shipping option").
				WithDetails(map[string]string{"shipping_option": shippingOptionID})
		}
		total += option.Amount
	}
	return total, nil
}
