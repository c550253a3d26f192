package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/growshop/growcart/internal/domain/cart"
	"github.com/growshop/growcart/internal/domain/coupon"
)

// addItemRequest is the body of POST /api/cart/items.
type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Variant   string `json:"variant"`
}

// updateQuantityRequest is the body of PATCH /api/cart/items/{id}.
type updateQuantityRequest struct {
	Quantity int    `json:"quantity"`
	Variant  string `json:"variant"`
}

// applyCouponRequest is the body of POST /api/cart/coupon.
type applyCouponRequest struct {
	Code string `json:"code"`
}

// GetCart returns the current snapshot.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Cart()
	writeSuccess(w, http.StatusOK, func(e *jx.Encoder) {
		e.Field("cart", func(e *jx.Encoder) { encodeSnapshot(e, snap) })
	})
}

// GetStats returns the read-only cart summary.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	st := h.engine.Stats()
	writeSuccess(w, http.StatusOK, func(e *jx.Encoder) {
		e.Field("stats", func(e *jx.Encoder) { encodeStats(e, st) })
	})
}

// AddItem resolves the product from the catalog and adds it to the cart.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	p, err := h.catalog.GetByID(strings.TrimSpace(req.ProductID))
	if err != nil {
		writeError(w, r, &cart.InvalidProductError{Reason: "unknown product " + req.ProductID})
		return
	}

	item, err := h.engine.AddItem(r.Context(), p.CartProduct(), req.Quantity, req.Variant)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, func(e *jx.Encoder) {
		e.Field("item", func(e *jx.Encoder) { encodeLineItem(e, item) })
	})
}

// UpdateQuantity sets the quantity of a line item; zero removes it.
func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	item, err := h.engine.UpdateQuantity(r.Context(), r.PathValue("id"), req.Quantity, req.Variant)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, func(e *jx.Encoder) {
		e.Field("item", func(e *jx.Encoder) { encodeLineItem(e, item) })
	})
}

// RemoveItem removes a line item. The variant is taken from the query string.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.engine.RemoveItem(r.Context(), r.PathValue("id"), r.URL.Query().Get("variant"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, func(e *jx.Encoder) {
		e.Field("item", func(e *jx.Encoder) { encodeLineItem(e, item) })
	})
}

// ApplyCoupon resolves a promo code via the registry and applies it.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	c, err := h.coupons.Lookup(req.Code)
	if err != nil {
		if errors.Is(err, coupon.ErrUnknownCode) {
			err = asUnknownCoupon(err, req.Code)
		}
		writeError(w, r, err)
		return
	}

	if err := h.engine.ApplyCoupon(r.Context(), c); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, func(e *jx.Encoder) {
		e.Field("coupon", func(e *jx.Encoder) { encodeCoupon(e, c) })
	})
}

// RemoveCoupon clears the applied coupon.
func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	prev, err := h.engine.RemoveCoupon(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, func(e *jx.Encoder) {
		e.Field("coupon", func(e *jx.Encoder) {
			if prev == nil {
				e.Null()
				return
			}
			encodeCoupon(e, *prev)
		})
	})
}

// Clear empties the cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Clear(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

func encodeSnapshot(e *jx.Encoder, s cart.Snapshot) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, item := range s.Items {
					encodeLineItem(e, item)
				}
			})
		})
		e.Field("appliedCoupon", func(e *jx.Encoder) {
			if s.AppliedCoupon == nil {
				e.Null()
				return
			}
			encodeCoupon(e, *s.AppliedCoupon)
		})
		e.Field("subtotal", func(e *jx.Encoder) { encodeDecimal(e, s.Totals.Subtotal) })
		e.Field("discount", func(e *jx.Encoder) { encodeDecimal(e, s.Totals.Discount) })
		e.Field("shipping", func(e *jx.Encoder) { encodeDecimal(e, s.Totals.Shipping) })
		e.Field("total", func(e *jx.Encoder) { encodeDecimal(e, s.Totals.Total) })
		e.Field("totalItems", func(e *jx.Encoder) { e.Int(s.Totals.TotalItems) })
		e.Field("lastUpdated", func(e *jx.Encoder) { e.Int64(s.LastUpdated.UnixMilli()) })
	})
}

func encodeLineItem(e *jx.Encoder, item cart.LineItem) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(item.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(item.Name) })
		e.Field("price", func(e *jx.Encoder) { encodeDecimal(e, item.Price) })
		if !item.OriginalPrice.IsZero() {
			e.Field("originalPrice", func(e *jx.Encoder) { encodeDecimal(e, item.OriginalPrice) })
		}
		e.Field("image", func(e *jx.Encoder) { e.Str(item.Image) })
		e.Field("category", func(e *jx.Encoder) { e.Str(item.Category) })
		e.Field("variant", func(e *jx.Encoder) { e.Str(item.Variant) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(item.Quantity) })
	})
}

func encodeCoupon(e *jx.Encoder, c cart.Coupon) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Str(c.Code) })
		e.Field("type", func(e *jx.Encoder) { e.Str(string(c.Type)) })
		e.Field("discount", func(e *jx.Encoder) { encodeDecimal(e, c.Value) })
	})
}

func encodeStats(e *jx.Encoder, st cart.Stats) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("totalItems", func(e *jx.Encoder) { e.Int(st.TotalItems) })
		e.Field("uniqueItems", func(e *jx.Encoder) { e.Int(st.UniqueItems) })
		e.Field("subtotal", func(e *jx.Encoder) { encodeDecimal(e, st.Subtotal) })
		e.Field("savings", func(e *jx.Encoder) { encodeDecimal(e, st.Savings) })
		e.Field("shipping", func(e *jx.Encoder) { encodeDecimal(e, st.Shipping) })
		e.Field("total", func(e *jx.Encoder) { encodeDecimal(e, st.Total) })
		e.Field("hasDiscount", func(e *jx.Encoder) { e.Bool(st.HasDiscount) })
		e.Field("hasFreeShipping", func(e *jx.Encoder) { e.Bool(st.HasFreeShipping) })
		e.Field("remainingForFreeShipping", func(e *jx.Encoder) { encodeDecimal(e, st.RemainingForFreeShipping) })
	})
}

func encodeDecimal(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.String()))
}
