package cart

import "github.com/shopspring/decimal"

var (
	zero = decimal.Zero
	one  = decimal.NewFromInt(1)
)

// CalculateTotals derives the monetary totals for the given items, coupon,
// and configuration. It is pure and idempotent: identical inputs always map
// to identical outputs, so it can run after every mutation without drift.
//
// An empty cart yields all-zero totals including shipping; no shipping is
// charged on nothing.
func CalculateTotals(items []LineItem, coupon *Coupon, cfg Config) Totals {
	if len(items) == 0 {
		return Totals{Subtotal: zero, Discount: zero, Shipping: zero, Total: zero}
	}

	subtotal := zero
	totalItems := 0
	for _, item := range items {
		line := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(line)
		totalItems += item.Quantity
	}

	discount := applyCoupon(coupon, subtotal)
	net := subtotal.Sub(discount)

	shipping := cfg.FlatShippingCost
	if net.GreaterThanOrEqual(cfg.FreeShippingThreshold) {
		shipping = zero
	}

	total := floorAtZero(net.Add(shipping))

	return Totals{
		Subtotal:   subtotal,
		Discount:   discount,
		Shipping:   shipping,
		Total:      total,
		TotalItems: totalItems,
	}
}

// applyCoupon computes the discount amount for the coupon against the
// subtotal. The result never exceeds the subtotal, so the net subtotal can
// never go negative.
func applyCoupon(coupon *Coupon, subtotal decimal.Decimal) decimal.Decimal {
	if coupon == nil {
		return zero
	}

	var amount decimal.Decimal
	switch coupon.Type {
	case DiscountPercentage:
		amount = subtotal.Mul(coupon.Value)
	case DiscountFixed:
		amount = coupon.Value
	default:
		return zero
	}

	amount = decimal.Min(amount, subtotal)
	return floorAtZero(amount)
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return zero
	}
	return d
}
