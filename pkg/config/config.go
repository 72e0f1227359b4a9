package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "CHECKOUT"

type Config struct {
	App    AppConfig
	Store  StoreConfig
	Stripe StripeConfig
	Redis  RedisConfig
	Tunnel TunnelConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Port         string `envconfig:"CHECKOUT_APP_PORT" default:"8000"`
	LogLevel     string `envconfig:"CHECKOUT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CHECKOUT_LOG_WARN_STACK" default:"false"`
}

// StoreConfig is the static storefront snapshot served by GET /config.
// Some payment methods support only a subset of currencies; the per-method
// currency tables live with the checkout client.
type StoreConfig struct {
	Country        string   `envconfig:"CHECKOUT_STORE_COUNTRY" default:"US"`
	Currency       string   `envconfig:"CHECKOUT_STORE_CURRENCY" default:"eur"`
	PaymentMethods []string `envconfig:"CHECKOUT_PAYMENT_METHODS" default:"ach_credit_transfer,alipay,bancontact,card,eps,giropay,ideal,multibanco,sepa_debit,sofort,wechat"`
}

// ShippingOption is one fixed delivery choice offered at checkout.
type ShippingOption struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Detail string `json:"detail"`
	Amount int64  `json:"amount"`
}

var shippingOptions = []ShippingOption{
	{
		ID:     "free",
		Label:  "Free Shipping",
		Detail: "Delivery within 5 days",
		Amount: 0,
	},
	{
		ID:     "express",
		Label:  "Express Shipping",
		Detail: "Next day delivery",
		Amount: 500,
	},
}

// ShippingOptions returns the configured read-only shipping list.
func (s StoreConfig) ShippingOptions() []ShippingOption {
	out := make([]ShippingOption, len(shippingOptions))
	copy(out, shippingOptions)
	return out
}

// ShippingOptionByID looks up a shipping option in the configured set.
func (s StoreConfig) ShippingOptionByID(id string) (ShippingOption, bool) {
	for _, opt := range shippingOptions {
		if opt.ID == id {
			return opt, true
		}
	}
	return ShippingOption{}, false
}

type StripeConfig struct {
	AccountCountry string `envconfig:"CHECKOUT_STRIPE_ACCOUNT_COUNTRY" default:"US"`
	PublicKey      string `envconfig:"CHECKOUT_STRIPE_PUBLIC_KEY" required:"true"`
	SecretKey      string `envconfig:"CHECKOUT_STRIPE_SECRET_KEY" required:"true"`
	WebhookSecret  string `envconfig:"CHECKOUT_STRIPE_WEBHOOK_SECRET"`
	APIBase        string `envconfig:"CHECKOUT_STRIPE_API_BASE"`
}

// HasWebhookSecret reports whether inbound events must carry a valid signature.
func (s StripeConfig) HasWebhookSecret() bool {
	return strings.TrimSpace(s.WebhookSecret) != ""
}

type RedisConfig struct {
	URL          string        `envconfig:"CHECKOUT_REDIS_URL"`
	Address      string        `envconfig:"CHECKOUT_REDIS_ADDR"`
	Password     string        `envconfig:"CHECKOUT_REDIS_PASSWORD"`
	DB           int           `envconfig:"CHECKOUT_REDIS_DB" default:"0"`
	DialTimeout  time.Duration `envconfig:"CHECKOUT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CHECKOUT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CHECKOUT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether the optional delivery-observation store is wired.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

// TunnelConfig toggles the HTTPS tunnel used to receive webhooks locally.
// The tunnel process itself is external; the flag only drives startup logging.
type TunnelConfig struct {
	Enabled bool `envconfig:"CHECKOUT_TUNNEL_ENABLED" default:"false"`
}
