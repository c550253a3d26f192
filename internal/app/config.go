package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/growshop/growcart/internal/domain/cart"
)

// Config holds the complete application configuration, loadable from
// environment variables (GROWCART_ prefix), flags, or YAML config files.
type Config struct {
	Addr      string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Storage   StorageConfig
	Cart      CartConfig
	Catalog   CatalogConfig
	Coupons   CouponConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// StorageConfig selects and configures the snapshot persistence backend.
type StorageConfig struct {
	Backend  string `default:"file" usage:"Snapshot storage backend: file or memory"`
	Path     string `default:"data/cart.json" usage:"Snapshot file path (file backend)"`
	Compress bool   `default:"false" usage:"Gzip-compress the snapshot file"`
}

// CartConfig holds the engine limits and shipping policy. Monetary values are
// decimal strings in currency minor units.
type CartConfig struct {
	MaxQuantityPerItem    int    `default:"99" usage:"Max units per line item" flag:"max-quantity-per-item"`
	MaxItemsInCart        int    `default:"50" usage:"Max distinct line items" flag:"max-items-in-cart"`
	FreeShippingThreshold string `default:"50000" usage:"Net subtotal granting free shipping" flag:"free-shipping-threshold"`
	FlatShippingCost      string `default:"2500" usage:"Shipping cost below the threshold" flag:"flat-shipping-cost"`
}

// CatalogConfig points at the product catalog. An empty path uses the catalog
// embedded in the binary.
type CatalogConfig struct {
	Path string `default:"" usage:"Product catalog JSON file (empty: embedded catalog)"`
}

// CouponConfig configures the promo code registry.
type CouponConfig struct {
	CodeFiles []string `usage:"Gzip line files of bulk promo codes" flag:"coupon-code-files"`
}

// RateLimitConfig controls the per-client rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "GROWCART",
		Files:     []string{"config.yaml", "/etc/growcart/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	return &cfg, nil
}

// CartEngineConfig converts the loaded cart settings into an engine Config.
func (c *Config) CartEngineConfig() (cart.Config, error) {
	threshold, err := decimal.NewFromString(c.Cart.FreeShippingThreshold)
	if err != nil {
		return cart.Config{}, errors.Wrap(err, "parse free shipping threshold")
	}
	flat, err := decimal.NewFromString(c.Cart.FlatShippingCost)
	if err != nil {
		return cart.Config{}, errors.Wrap(err, "parse flat shipping cost")
	}
	if c.Cart.MaxQuantityPerItem < 1 || c.Cart.MaxItemsInCart < 1 {
		return cart.Config{}, errors.New("cart limits must be positive")
	}
	return cart.Config{
		MaxQuantityPerItem:    c.Cart.MaxQuantityPerItem,
		MaxItemsInCart:        c.Cart.MaxItemsInCart,
		FreeShippingThreshold: threshold,
		FlatShippingCost:      flat,
	}, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) to the GROWCART_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
