package cart

import (
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Sanitize validates and repairs a raw persisted record into a well-formed
// snapshot. The input is untrusted: it may be empty, truncated, hand-edited,
// or written by an older build.
//
// When the top-level shape is unusable, Sanitize returns a fresh empty
// snapshot together with ErrMalformedPersistedData so the caller can log the
// recovery; it never fails the load outright. When the shape is valid, line
// items that do not satisfy the LineItem contract are silently dropped rather
// than repaired by guessing, quantities are clamped into [1, max], the item
// list is truncated to the cart limit, and duplicate (id, variant) entries
// after the first are discarded. Persisted derived totals are ignored; the
// caller recomputes them.
func Sanitize(raw []byte, cfg Config) (Snapshot, error) {
	empty := Snapshot{Items: []LineItem{}}
	if len(raw) == 0 {
		return empty, nil
	}

	d := jx.DecodeBytes(raw)
	if d.Next() != jx.Object {
		return empty, errors.Wrap(ErrMalformedPersistedData, "top-level value is not an object")
	}

	var (
		snap     = Snapshot{Items: []LineItem{}}
		sawItems bool
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "items":
			if d.Next() != jx.Array {
				return errors.New("items is not an array")
			}
			sawItems = true
			seen := make(map[[2]string]struct{})
			return d.Arr(func(d *jx.Decoder) error {
				item, ok := sanitizeItem(d, cfg)
				if !ok {
					return nil
				}
				key := [2]string{item.ID, item.Variant}
				if _, dup := seen[key]; dup {
					return nil
				}
				if len(snap.Items) >= cfg.MaxItemsInCart {
					return nil
				}
				seen[key] = struct{}{}
				snap.Items = append(snap.Items, item)
				return nil
			})
		case "appliedCoupon":
			snap.AppliedCoupon = sanitizeCoupon(d)
			return nil
		case "lastUpdated":
			if ms, ok := readInt64(d); ok && ms > 0 {
				snap.LastUpdated = time.UnixMilli(ms)
			}
			return nil
		default:
			// Unknown keys, including any persisted derived totals, are
			// never trusted.
			return d.Skip()
		}
	})
	if err != nil {
		return empty, errors.Wrap(ErrMalformedPersistedData, err.Error())
	}
	if !sawItems {
		return empty, errors.Wrap(ErrMalformedPersistedData, "items missing")
	}

	return snap, nil
}

// sanitizeItem decodes one element of the items array. ok is false when the
// entry is malformed and must be dropped.
func sanitizeItem(d *jx.Decoder, cfg Config) (LineItem, bool) {
	if d.Next() != jx.Object {
		_ = d.Skip()
		return LineItem{}, false
	}

	var (
		item     LineItem
		priceOK  bool
		qtyOK    bool
		valid    = true
		origSeen bool
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			s, ok := readString(d)
			if !ok || strings.TrimSpace(s) == "" {
				valid = false
				return nil
			}
			item.ID = strings.TrimSpace(s)
		case "name":
			s, ok := readString(d)
			if !ok || strings.TrimSpace(s) == "" {
				valid = false
				return nil
			}
			item.Name = strings.TrimSpace(s)
		case "price":
			p, ok := readDecimal(d)
			if !ok || p.IsNegative() {
				valid = false
				return nil
			}
			item.Price = p
			priceOK = true
		case "originalPrice":
			if p, ok := readDecimal(d); ok && !p.IsNegative() {
				item.OriginalPrice = p
				origSeen = true
			}
		case "image":
			if s, ok := readString(d); ok {
				item.Image = s
			}
		case "category":
			if s, ok := readString(d); ok {
				item.Category = s
			}
		case "variant":
			if s, ok := readString(d); ok && strings.TrimSpace(s) != "" {
				item.Variant = strings.TrimSpace(s)
			}
		case "quantity":
			q, ok := readInt64(d)
			if !ok || q < 1 {
				valid = false
				return nil
			}
			if q > int64(cfg.MaxQuantityPerItem) {
				q = int64(cfg.MaxQuantityPerItem)
			}
			item.Quantity = int(q)
			qtyOK = true
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil || !valid || !priceOK || !qtyOK || item.ID == "" || item.Name == "" {
		return LineItem{}, false
	}

	if item.Variant == "" {
		item.Variant = DefaultVariant
	}
	if !origSeen {
		item.OriginalPrice = decimal.Zero
	}
	return item, true
}

// sanitizeCoupon decodes the appliedCoupon field. A structurally invalid
// coupon is discarded, never repaired.
func sanitizeCoupon(d *jx.Decoder) *Coupon {
	switch d.Next() {
	case jx.Null:
		_ = d.Null()
		return nil
	case jx.Object:
	default:
		_ = d.Skip()
		return nil
	}

	var (
		c     Coupon
		valid = true
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "code":
			s, ok := readString(d)
			if !ok || strings.TrimSpace(s) == "" {
				valid = false
				return nil
			}
			c.Code = strings.TrimSpace(s)
		case "type":
			s, ok := readString(d)
			if !ok {
				valid = false
				return nil
			}
			c.Type = DiscountType(s)
		case "discount":
			v, ok := readDecimal(d)
			if !ok || v.IsNegative() {
				valid = false
				return nil
			}
			c.Value = v
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil || !valid || c.Code == "" {
		return nil
	}

	switch c.Type {
	case DiscountPercentage:
		if c.Value.GreaterThan(decimal.NewFromInt(1)) {
			return nil
		}
	case DiscountFixed:
	default:
		return nil
	}

	return &c
}

// readString accepts a JSON string, or coerces a number token to its literal
// form. Anything else is skipped and rejected.
func readString(d *jx.Decoder) (string, bool) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return "", false
		}
		return s, true
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return "", false
		}
		return string(n), true
	default:
		_ = d.Skip()
		return "", false
	}
}

// readDecimal accepts a JSON number, or a string containing one.
func readDecimal(d *jx.Decoder) (decimal.Decimal, bool) {
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, false
		}
		v, err := decimal.NewFromString(string(n))
		if err != nil {
			return decimal.Decimal{}, false
		}
		return v, true
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, false
		}
		v, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return decimal.Decimal{}, false
		}
		return v, true
	default:
		_ = d.Skip()
		return decimal.Decimal{}, false
	}
}

// readInt64 accepts an integral JSON number, or a string containing one.
// Fractional values are rejected, not rounded.
func readInt64(d *jx.Decoder) (int64, bool) {
	v, ok := readDecimal(d)
	if !ok || !v.IsInteger() {
		return 0, false
	}
	return v.IntPart(), true
}
