// Package handler exposes the cart engine over JSON HTTP. It is a thin
// consumer of the engine's public operations: every mutation result, success
// or failure, is reported in a uniform {success, item|error} shape so UI
// layers never need exception scaffolding.
package handler

import (
	"net/http"

	"github.com/growshop/growcart/internal/domain/cart"
	"github.com/growshop/growcart/internal/domain/coupon"
	"github.com/growshop/growcart/internal/domain/product"
)

// Handler serves the cart API.
type Handler struct {
	engine  *cart.Engine
	catalog *product.Catalog
	coupons *coupon.Registry
}

// New constructs a Handler with its domain dependencies.
func New(engine *cart.Engine, catalog *product.Catalog, coupons *coupon.Registry) *Handler {
	return &Handler{
		engine:  engine,
		catalog: catalog,
		coupons: coupons,
	}
}

// Register attaches all API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/cart", h.GetCart)
	mux.HandleFunc("GET /api/cart/stats", h.GetStats)
	mux.HandleFunc("POST /api/cart/items", h.AddItem)
	mux.HandleFunc("PATCH /api/cart/items/{id}", h.UpdateQuantity)
	mux.HandleFunc("DELETE /api/cart/items/{id}", h.RemoveItem)
	mux.HandleFunc("POST /api/cart/coupon", h.ApplyCoupon)
	mux.HandleFunc("DELETE /api/cart/coupon", h.RemoveCoupon)
	mux.HandleFunc("DELETE /api/cart", h.Clear)
}
