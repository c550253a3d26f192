package cart

import "github.com/go-faster/jx"

// EncodeSnapshot serializes the snapshot into the persisted record layout:
//
//	{"items":[{...}],"appliedCoupon":{...}|null,"lastUpdated":<unix ms>}
//
// Derived totals are deliberately not persisted; they are recomputed on load
// so stored and recalculated values can never drift apart.
func EncodeSnapshot(s Snapshot) []byte {
	e := &jx.Encoder{}
	e.Obj(func(e *jx.Encoder) {
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, item := range s.Items {
					encodeItem(e, item)
				}
			})
		})
		e.Field("appliedCoupon", func(e *jx.Encoder) {
			if s.AppliedCoupon == nil {
				e.Null()
				return
			}
			c := *s.AppliedCoupon
			e.Obj(func(e *jx.Encoder) {
				e.Field("code", func(e *jx.Encoder) { e.Str(c.Code) })
				e.Field("type", func(e *jx.Encoder) { e.Str(string(c.Type)) })
				e.Field("discount", func(e *jx.Encoder) { e.Num(jx.Num(c.Value.String())) })
			})
		})
		e.Field("lastUpdated", func(e *jx.Encoder) {
			e.Int64(s.LastUpdated.UnixMilli())
		})
	})
	return e.Bytes()
}

func encodeItem(e *jx.Encoder, item LineItem) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(item.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(item.Name) })
		e.Field("price", func(e *jx.Encoder) { e.Num(jx.Num(item.Price.String())) })
		if !item.OriginalPrice.IsZero() {
			e.Field("originalPrice", func(e *jx.Encoder) { e.Num(jx.Num(item.OriginalPrice.String())) })
		}
		e.Field("image", func(e *jx.Encoder) { e.Str(item.Image) })
		e.Field("category", func(e *jx.Encoder) { e.Str(item.Category) })
		e.Field("variant", func(e *jx.Encoder) { e.Str(item.Variant) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(item.Quantity) })
	})
}
