package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/growshop/growcart/internal/domain/cart"
	"github.com/growshop/growcart/internal/domain/coupon"
	"github.com/growshop/growcart/internal/domain/product"
	"github.com/growshop/growcart/internal/storage/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	engine, err := cart.New(context.Background(), cart.DefaultConfig(), memory.New())
	require.NoError(t, err)

	catalog := product.NewCatalog([]product.Product{
		{ID: "sem-001", Name: "Semillas Auto Mix x3", Price: decimal.NewFromInt(12000), Category: "semillas", Variants: []string{"x3", "x5"}},
		{ID: "ilu-001", Name: "Panel LED 100W", Price: decimal.NewFromInt(60000), Category: "iluminacion"},
	})
	registry := coupon.NewRegistry(coupon.DefaultRules()...)

	mux := http.NewServeMux()
	New(engine, catalog, registry).Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, body string) (int, map[string]any) {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp.StatusCode, payload
}

func TestListProducts(t *testing.T) {
	srv := newTestServer(t)

	status, payload := doJSON(t, srv, http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, payload["success"])

	products, ok := payload["products"].([]any)
	require.True(t, ok)
	require.Len(t, products, 2)

	first := products[0].(map[string]any)
	assert.Equal(t, "sem-001", first["id"])
	assert.EqualValues(t, 12000, first["price"])
}

func TestCartLifecycle(t *testing.T) {
	srv := newTestServer(t)

	// Fresh cart is empty, with zero totals and zero shipping.
	status, payload := doJSON(t, srv, http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, status)
	c := payload["cart"].(map[string]any)
	assert.Empty(t, c["items"])
	assert.EqualValues(t, 0, c["shipping"])
	assert.EqualValues(t, 0, c["total"])

	// Add an item; quantity defaults to one.
	status, payload = doJSON(t, srv, http.MethodPost, "/api/cart/items", `{"productId": "sem-001"}`)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, payload["success"])
	item := payload["item"].(map[string]any)
	assert.Equal(t, "sem-001", item["id"])
	assert.EqualValues(t, 1, item["quantity"])
	assert.Equal(t, "no variant", item["variant"])

	// The same product merges.
	status, payload = doJSON(t, srv, http.MethodPost, "/api/cart/items", `{"productId": "sem-001", "quantity": 2}`)
	require.Equal(t, http.StatusOK, status)
	item = payload["item"].(map[string]any)
	assert.EqualValues(t, 3, item["quantity"])

	status, payload = doJSON(t, srv, http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, status)
	c = payload["cart"].(map[string]any)
	require.Len(t, c["items"], 1)
	assert.EqualValues(t, 36000, c["subtotal"])
	assert.EqualValues(t, 2500, c["shipping"])
	assert.EqualValues(t, 38500, c["total"])

	// Update the quantity.
	status, payload = doJSON(t, srv, http.MethodPatch, "/api/cart/items/sem-001", `{"quantity": 5}`)
	require.Equal(t, http.StatusOK, status)
	item = payload["item"].(map[string]any)
	assert.EqualValues(t, 5, item["quantity"])

	// Quantity zero removes the line.
	status, _ = doJSON(t, srv, http.MethodPatch, "/api/cart/items/sem-001", `{"quantity": 0}`)
	require.Equal(t, http.StatusOK, status)

	status, payload = doJSON(t, srv, http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, payload["cart"].(map[string]any)["items"])
}

func TestVariantsInRoutes(t *testing.T) {
	srv := newTestServer(t)

	status, _ := doJSON(t, srv, http.MethodPost, "/api/cart/items", `{"productId": "sem-001", "variant": "x3"}`)
	require.Equal(t, http.StatusOK, status)
	status, _ = doJSON(t, srv, http.MethodPost, "/api/cart/items", `{"productId": "sem-001", "variant": "x5"}`)
	require.Equal(t, http.StatusOK, status)

	// Deleting one variant leaves the other.
	status, payload := doJSON(t, srv, http.MethodDelete, "/api/cart/items/sem-001?variant=x3", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "x3", payload["item"].(map[string]any)["variant"])

	status, payload = doJSON(t, srv, http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, status)
	items := payload["cart"].(map[string]any)["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "x5", items[0].(map[string]any)["variant"])
}

func TestCouponFlow(t *testing.T) {
	srv := newTestServer(t)

	status, _ := doJSON(t, srv, http.MethodPost, "/api/cart/items", `{"productId": "sem-001", "quantity": 3}`)
	require.Equal(t, http.StatusOK, status)

	// Codes resolve case-insensitively.
	status, payload := doJSON(t, srv, http.MethodPost, "/api/cart/coupon", `{"code": "grow10"}`)
	require.Equal(t, http.StatusOK, status)
	cp := payload["coupon"].(map[string]any)
	assert.Equal(t, "GROW10", cp["code"])
	assert.Equal(t, "percentage", cp["type"])
	assert.EqualValues(t, 0.1, cp["discount"])

	status, payload = doJSON(t, srv, http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, status)
	c := payload["cart"].(map[string]any)
	assert.EqualValues(t, 3600, c["discount"])
	assert.EqualValues(t, 34900, c["total"])

	// Removing returns the previously applied coupon.
	status, payload = doJSON(t, srv, http.MethodDelete, "/api/cart/coupon", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "GROW10", payload["coupon"].(map[string]any)["code"])

	// Removing again reports no coupon without failing.
	status, payload = doJSON(t, srv, http.MethodDelete, "/api/cart/coupon", "")
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, payload["coupon"])
}

func TestClearCart(t *testing.T) {
	srv := newTestServer(t)

	status, _ := doJSON(t, srv, http.MethodPost, "/api/cart/items", `{"productId": "ilu-001"}`)
	require.Equal(t, http.StatusOK, status)
	status, _ = doJSON(t, srv, http.MethodPost, "/api/cart/coupon", `{"code": "GROW10"}`)
	require.Equal(t, http.StatusOK, status)

	status, payload := doJSON(t, srv, http.MethodDelete, "/api/cart", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, payload["success"])

	status, payload = doJSON(t, srv, http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, status)
	c := payload["cart"].(map[string]any)
	assert.Empty(t, c["items"])
	assert.Nil(t, c["appliedCoupon"])
}

func TestStatsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	status, _ := doJSON(t, srv, http.MethodPost, "/api/cart/items", `{"productId": "ilu-001"}`)
	require.Equal(t, http.StatusOK, status)

	status, payload := doJSON(t, srv, http.MethodGet, "/api/cart/stats", "")
	require.Equal(t, http.StatusOK, status)
	st := payload["stats"].(map[string]any)
	assert.EqualValues(t, 1, st["totalItems"])
	assert.EqualValues(t, 60000, st["subtotal"])
	assert.Equal(t, true, st["hasFreeShipping"])
	assert.EqualValues(t, 0, st["remainingForFreeShipping"])
}

func TestErrorResponses(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantError  string
	}{
		{
			name:       "unknown product",
			method:     http.MethodPost,
			path:       "/api/cart/items",
			body:       `{"productId": "ghost"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "InvalidProduct",
		},
		{
			name:       "quantity above cap",
			method:     http.MethodPost,
			path:       "/api/cart/items",
			body:       `{"productId": "sem-001", "quantity": 100}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "QuantityOutOfRange",
		},
		{
			name:       "remove absent item",
			method:     http.MethodDelete,
			path:       "/api/cart/items/ghost",
			wantStatus: http.StatusNotFound,
			wantError:  "ItemNotFound",
		},
		{
			name:       "update absent item",
			method:     http.MethodPatch,
			path:       "/api/cart/items/ghost",
			body:       `{"quantity": 2}`,
			wantStatus: http.StatusNotFound,
			wantError:  "ItemNotFound",
		},
		{
			name:       "unknown coupon code",
			method:     http.MethodPost,
			path:       "/api/cart/coupon",
			body:       `{"code": "NOPE"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "InvalidCoupon",
		},
		{
			name:       "malformed body",
			method:     http.MethodPost,
			path:       "/api/cart/items",
			body:       `{not json`,
			wantStatus: http.StatusBadRequest,
			wantError:  "BadRequest",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, payload := doJSON(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, false, payload["success"])
			assert.Equal(t, tt.wantError, payload["error"])
			assert.NotEmpty(t, payload["message"])
		})
	}
}

func TestCartFullResponse(t *testing.T) {
	engine, err := cart.New(context.Background(), cart.Config{
		MaxQuantityPerItem:    99,
		MaxItemsInCart:        1,
		FreeShippingThreshold: decimal.NewFromInt(50000),
		FlatShippingCost:      decimal.NewFromInt(2500),
	}, memory.New())
	require.NoError(t, err)

	catalog := product.NewCatalog([]product.Product{
		{ID: "p1", Name: "A", Price: decimal.NewFromInt(100)},
		{ID: "p2", Name: "B", Price: decimal.NewFromInt(100)},
	})

	mux := http.NewServeMux()
	New(engine, catalog, coupon.NewRegistry()).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	status, _ := doJSON(t, srv, http.MethodPost, "/api/cart/items", `{"productId": "p1"}`)
	require.Equal(t, http.StatusOK, status)

	status, payload := doJSON(t, srv, http.MethodPost, "/api/cart/items", `{"productId": "p2"}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CartFull", payload["error"])
}
