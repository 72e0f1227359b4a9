package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/pmartell/storefront-checkout/pkg/config"
	pkgerrors "github.com/pmartell/storefront-checkout/pkg/errors"
	"github.com/pmartell/storefront-checkout/pkg/stripe"
)

type stubCatalogService struct {
	products []*stripe.Product
	skus     *stripe.SKUList
	err      error
}

func (s *stubCatalogService) Products(ctx context.Context) ([]*stripe.Product, error) {
	return s.products, s.err
}

func (s *stubCatalogService) Product(ctx context.Context, productID string) (*stripe.Product, error) {
	for _, product := range s.products {
		if product.ID == productID {
			return product, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown catalog item")
}

func (s *stubCatalogService) SKUs(ctx context.Context, productID string) (*stripe.SKUList, error) {
	return s.skus, s.err
}

func newCatalogRouter(svc CatalogService) http.Handler {
	r := chi.NewRouter()
	r.Get("/products", ListProducts(svc, discardLogger()))
	r.Get("/products/{id}", GetProduct(svc, discardLogger()))
	r.Get("/products/{id}/skus", ListProductSKUs(svc, discardLogger()))
	return r
}

func TestListProductsWireShape(t *testing.T) {
	svc := &stubCatalogService{products: []*stripe.Product{
		{ID: "increment", Name: "Increment Magazine"},
		{ID: "pins", Name: "Stripe Pins"},
	}}
	router := newCatalogRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var list stripe.ProductList
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Object != "list" || len(list.Data) != 2 {
		t.Fatalf("unexpected list shape: %+v", list)
	}
}

func TestGetProductByID(t *testing.T) {
	svc := &stubCatalogService{products: []*stripe.Product{{ID: "pins", Name: "Stripe Pins"}}}
	router := newCatalogRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/products/pins", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/products/unknown", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown product, got %d", rec.Code)
	}
}

func TestStoreConfigSnapshot(t *testing.T) {
	cfg := &config.Config{
		Store: config.StoreConfig{
			Country:        "US",
			Currency:       "eur",
			PaymentMethods: []string{"card", "ideal"},
		},
		Stripe: config.StripeConfig{AccountCountry: "US"},
	}
	client, err := stripe.NewClient(context.Background(), config.StripeConfig{
		SecretKey: "sk_test_123",
		PublicKey: "pk_test_123",
	}, discardLogger())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	handler := StoreConfig(cfg, client)
	req := httptest.NewRequest(http.MethodGet, "/config", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	var body storeConfigResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if body.PublishableKey != "pk_test_123" {
		t.Fatalf("expected publishable key, got %q", body.PublishableKey)
	}
	if len(body.ShippingOptions) != 2 || body.ShippingOptions[0].ID != "free" || body.ShippingOptions[1].Amount != 500 {
		t.Fatalf("unexpected shipping options: %+v", body.ShippingOptions)
	}
}
