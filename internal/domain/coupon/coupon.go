// Package coupon resolves promo codes to cart coupons. Lookups are local and
// static: a small set of named rules, optionally extended by bulk code drops
// side-loaded from gzip line files. There is no remote validity service.
package coupon

import (
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/growshop/growcart/internal/domain/cart"
)

// ErrUnknownCode is returned when a code does not resolve to any rule.
var ErrUnknownCode = errors.New("unknown coupon code")

// Rule binds a code to its discount. Percentage values are fractions in 0..1.
type Rule struct {
	Code        string
	Type        cart.DiscountType
	Value       decimal.Decimal
	Description string
}

// Registry holds the known coupon rules. Codes are matched case-insensitively
// after trimming.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]Rule

	// Bulk codes share one default rule. The bloom filter front-runs the
	// exact set so misses on large drops stay cheap.
	bulkFilter *bloom.BloomFilter
	bulkCodes  map[string]struct{}
	bulkRule   Rule
}

// NewRegistry creates a Registry seeded with the given rules.
func NewRegistry(rules ...Rule) *Registry {
	r := &Registry{rules: make(map[string]Rule, len(rules))}
	for _, rule := range rules {
		r.rules[normalizeCode(rule.Code)] = rule
	}
	return r
}

// DefaultRules returns the stock promo codes of the shop.
func DefaultRules() []Rule {
	return []Rule{
		{Code: "GROW10", Type: cart.DiscountPercentage, Value: decimal.NewFromFloat(0.10), Description: "10% off your order"},
		{Code: "GROW20", Type: cart.DiscountPercentage, Value: decimal.NewFromFloat(0.20), Description: "20% off your order"},
		{Code: "FLAT5000", Type: cart.DiscountFixed, Value: decimal.NewFromInt(5000), Description: "5000 off your order"},
		{Code: "WELCOME", Type: cart.DiscountPercentage, Value: decimal.NewFromFloat(0.15), Description: "Welcome: 15% off"},
	}
}

// Add registers or replaces a named rule.
func (r *Registry) Add(rule Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[normalizeCode(rule.Code)] = rule
}

// Lookup resolves a code to a cart coupon. It returns ErrUnknownCode when the
// code matches neither a named rule nor a bulk code.
func (r *Registry) Lookup(code string) (cart.Coupon, error) {
	key := normalizeCode(code)
	if key == "" {
		return cart.Coupon{}, ErrUnknownCode
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if rule, ok := r.rules[key]; ok {
		return ruleToCoupon(key, rule), nil
	}

	if r.bulkFilter != nil && r.bulkFilter.TestString(key) {
		// Bloom positives may be false; confirm against the exact set.
		if _, ok := r.bulkCodes[key]; ok {
			return ruleToCoupon(key, r.bulkRule), nil
		}
	}

	return cart.Coupon{}, ErrUnknownCode
}

func ruleToCoupon(code string, rule Rule) cart.Coupon {
	return cart.Coupon{Code: code, Type: rule.Type, Value: rule.Value}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
