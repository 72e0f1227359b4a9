package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/pmartell/storefront-checkout/pkg/config"
	"github.com/pmartell/storefront-checkout/pkg/logger"
	"github.com/pmartell/storefront-checkout/pkg/stripe"
)

// seedProduct is one demo catalog entry with its single purchasable SKU.
type seedProduct struct {
	id            string
	name          string
	price         int64
	attributes    []string
	skuAttributes map[string]string
}

var seedProducts = []seedProduct{
	{
		id:    "hood",
		name:  "Hood",
		price: 999,
	},
	{
		id:    "toy",
		name:  "Teddy Bear",
		price: 999,
	},
	{
		id:         "shoe",
		name:       "Running Shoe",
		price:      999,
		attributes: []string{"size", "gender"},
		skuAttributes: map[string]string{
			"size":   "42",
			"gender": "unisex",
		},
	},
	{
		id:         "book",
		name:       "Deep Work",
		price:      999,
		attributes: []string{"author", "pages"},
		skuAttributes: map[string]string{
			"author": "Cal Newport",
			"pages":  "304",
		},
	},
	{
		id:    "lipstick",
		name:  "Lipstick",
		price: 999,
	},
}

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "setup"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "setup",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	provider, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap provider client", err)
		os.Exit(1)
	}

	created := 0
	for _, seed := range seedProducts {
		pctx := logg.WithField(ctx, "product", seed.id)

		product, err := provider.CreateProduct(ctx, stripe.ProductCreateParams{
			ID:         seed.id,
			Name:       seed.name,
			Attributes: seed.attributes,
		})
		if err != nil {
			logg.Error(pctx, "failed to create product", err)
			os.Exit(1)
		}

		if _, err := provider.CreateSKU(ctx, stripe.SKUCreateParams{
			Product:    product.ID,
			Price:      seed.price,
			Currency:   cfg.Store.Currency,
			Attributes: seed.skuAttributes,
		}); err != nil {
			logg.Error(pctx, "failed to create sku", err)
			os.Exit(1)
		}

		logg.Info(pctx, "seeded product with sku")
		created++
	}

	fmt.Printf("created %d products on the store account\n", created)
}
