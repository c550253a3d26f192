package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/growshop/growcart/internal/domain/product"
)

// ListProducts returns the full catalog in display order.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products := h.catalog.List()
	writeSuccess(w, http.StatusOK, func(e *jx.Encoder) {
		e.Field("products", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, p := range products {
					encodeProduct(e, p)
				}
			})
		})
	})
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("price", func(e *jx.Encoder) { encodeDecimal(e, p.Price) })
		if !p.OriginalPrice.IsZero() {
			e.Field("originalPrice", func(e *jx.Encoder) { encodeDecimal(e, p.OriginalPrice) })
		}
		e.Field("image", func(e *jx.Encoder) { e.Str(p.Image) })
		e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
		if len(p.Variants) > 0 {
			e.Field("variants", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, v := range p.Variants {
						e.Str(v)
					}
				})
			})
		}
	})
}
