// Package cart implements the cart state engine: the authoritative in-memory
// snapshot of a shopping cart, its mutation operations, the pure totals
// recalculation, sanitization of persisted state, and change notification.
package cart

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultVariant is the discriminator used for line items added without an
// explicit variant.
const DefaultVariant = "no variant"

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a fractional discount (0..1) to the subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed applies a fixed monetary discount capped at the subtotal.
	DiscountFixed DiscountType = "fixed"
)

// Product is the catalog record a caller supplies when adding an item.
// The engine does not fetch or filter catalog data itself.
type Product struct {
	ID            string
	Name          string
	Price         decimal.Decimal
	OriginalPrice decimal.Decimal
	Image         string
	Category      string
}

// LineItem is one distinct (product id, variant) entry in the cart.
type LineItem struct {
	ID            string
	Name          string
	Price         decimal.Decimal
	OriginalPrice decimal.Decimal
	Image         string
	Category      string
	Variant       string
	Quantity      int
}

// Key returns the uniqueness key of the line item.
func (li LineItem) Key() (id, variant string) {
	return li.ID, li.Variant
}

// Coupon is a discount rule, either percentage-of-subtotal (Value is a
// fraction in 0..1) or fixed-amount (Value is an absolute amount, capped at
// the subtotal when applied).
type Coupon struct {
	Code  string
	Type  DiscountType
	Value decimal.Decimal
}

// Totals holds the derived monetary fields of a snapshot. They are never
// authored directly; they are always outputs of CalculateTotals.
type Totals struct {
	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	Shipping   decimal.Decimal
	Total      decimal.Decimal
	TotalItems int
}

// Snapshot is the complete, serializable state of the cart at a point in time.
// Item order is insertion order and is meaningful for display.
type Snapshot struct {
	Items         []LineItem
	AppliedCoupon *Coupon
	Totals        Totals
	LastUpdated   time.Time
}

// Clone returns a deep copy of the snapshot so callers cannot corrupt the
// engine's internal state through a returned reference.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.Items != nil {
		out.Items = make([]LineItem, len(s.Items))
		copy(out.Items, s.Items)
	}
	if s.AppliedCoupon != nil {
		c := *s.AppliedCoupon
		out.AppliedCoupon = &c
	}
	return out
}

// Stats is a read-only summary of the cart exposed to rendering layers.
type Stats struct {
	TotalItems               int
	UniqueItems              int
	Subtotal                 decimal.Decimal
	Savings                  decimal.Decimal
	Shipping                 decimal.Decimal
	Total                    decimal.Decimal
	HasDiscount              bool
	HasFreeShipping          bool
	RemainingForFreeShipping decimal.Decimal
}

// Config holds the engine limits and shipping policy. A Config is immutable
// per engine instance.
type Config struct {
	MaxQuantityPerItem    int
	MaxItemsInCart        int
	FreeShippingThreshold decimal.Decimal
	FlatShippingCost      decimal.Decimal
}

// DefaultConfig returns the stock configuration: 99 units per line item, 50
// distinct line items, free shipping from a net subtotal of 50000, flat
// shipping of 2500 below it.
func DefaultConfig() Config {
	return Config{
		MaxQuantityPerItem:    99,
		MaxItemsInCart:        50,
		FreeShippingThreshold: decimal.NewFromInt(50000),
		FlatShippingCost:      decimal.NewFromInt(2500),
	}
}

// Storage persists encoded snapshots across process restarts. Save failures
// are non-fatal to the mutation that triggered them; the engine reports them
// through a persistence warning instead of rolling back.
type Storage interface {
	// Save writes the encoded snapshot record.
	Save(ctx context.Context, data []byte) error
	// Load reads the last saved record. ok is false when nothing has been
	// saved yet; that is not an error.
	Load(ctx context.Context) (data []byte, ok bool, err error)
}
