package cart

import (
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeTopLevelShapes(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "empty input", raw: "", wantErr: false},
		{name: "valid empty record", raw: `{"items": []}`, wantErr: false},
		{name: "array at top level", raw: `[1, 2, 3]`, wantErr: true},
		{name: "string at top level", raw: `"cart"`, wantErr: true},
		{name: "truncated object", raw: `{"items": [`, wantErr: true},
		{name: "items not an array", raw: `{"items": {"p1": 1}}`, wantErr: true},
		{name: "items missing", raw: `{"appliedCoupon": null}`, wantErr: true},
		{name: "not json at all", raw: `<html>`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := Sanitize([]byte(tt.raw), cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedPersistedData))
			} else {
				require.NoError(t, err)
			}

			// Malformed or not, the caller always gets a usable snapshot.
			assert.NotNil(t, snap.Items)
			if tt.wantErr {
				assert.Empty(t, snap.Items)
				assert.Nil(t, snap.AppliedCoupon)
			}
		})
	}
}

func TestSanitizeItems(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name string
		raw  string
		want []LineItem
	}{
		{
			name: "well-formed item survives",
			raw:  `{"items": [{"id": "p1", "name": "Seed", "price": 12000, "quantity": 2}]}`,
			want: []LineItem{{ID: "p1", Name: "Seed", Price: dec("12000"), Variant: DefaultVariant, Quantity: 2}},
		},
		{
			name: "numeric id is coerced to a string",
			raw:  `{"items": [{"id": 42, "name": "Seed", "price": 100, "quantity": 1}]}`,
			want: []LineItem{{ID: "42", Name: "Seed", Price: dec("100"), Variant: DefaultVariant, Quantity: 1}},
		},
		{
			name: "string price is parsed",
			raw:  `{"items": [{"id": "p1", "name": "Seed", "price": "99.50", "quantity": 1}]}`,
			want: []LineItem{{ID: "p1", Name: "Seed", Price: dec("99.50"), Variant: DefaultVariant, Quantity: 1}},
		},
		{
			name: "missing name drops the item",
			raw:  `{"items": [{"id": "p1", "price": 100, "quantity": 1}]}`,
			want: []LineItem{},
		},
		{
			name: "blank id drops the item",
			raw:  `{"items": [{"id": "   ", "name": "Seed", "price": 100, "quantity": 1}]}`,
			want: []LineItem{},
		},
		{
			name: "negative price drops the item",
			raw:  `{"items": [{"id": "p1", "name": "Seed", "price": -5, "quantity": 1}]}`,
			want: []LineItem{},
		},
		{
			name: "zero quantity drops the item",
			raw:  `{"items": [{"id": "p1", "name": "Seed", "price": 100, "quantity": 0}]}`,
			want: []LineItem{},
		},
		{
			name: "fractional quantity drops the item",
			raw:  `{"items": [{"id": "p1", "name": "Seed", "price": 100, "quantity": 1.5}]}`,
			want: []LineItem{},
		},
		{
			name: "quantity above the cap is clamped",
			raw:  `{"items": [{"id": "p1", "name": "Seed", "price": 100, "quantity": 500}]}`,
			want: []LineItem{{ID: "p1", Name: "Seed", Price: dec("100"), Variant: DefaultVariant, Quantity: 99}},
		},
		{
			name: "non-object entries are dropped, valid ones kept",
			raw:  `{"items": [17, "junk", {"id": "p1", "name": "Seed", "price": 100, "quantity": 1}, null]}`,
			want: []LineItem{{ID: "p1", Name: "Seed", Price: dec("100"), Variant: DefaultVariant, Quantity: 1}},
		},
		{
			name: "duplicate (id, variant) keeps the first entry",
			raw: `{"items": [
				{"id": "p1", "name": "Seed", "price": 100, "quantity": 1},
				{"id": "p1", "name": "Seed", "price": 100, "quantity": 9},
				{"id": "p1", "name": "Seed", "price": 100, "variant": "x5", "quantity": 3}
			]}`,
			want: []LineItem{
				{ID: "p1", Name: "Seed", Price: dec("100"), Variant: DefaultVariant, Quantity: 1},
				{ID: "p1", Name: "Seed", Price: dec("100"), Variant: "x5", Quantity: 3},
			},
		},
		{
			name: "unknown item fields are ignored",
			raw:  `{"items": [{"id": "p1", "name": "Seed", "price": 100, "quantity": 1, "subtotal": 999, "rating": 5}]}`,
			want: []LineItem{{ID: "p1", Name: "Seed", Price: dec("100"), Variant: DefaultVariant, Quantity: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := Sanitize([]byte(tt.raw), cfg)
			require.NoError(t, err)

			require.Len(t, snap.Items, len(tt.want))
			for i, want := range tt.want {
				got := snap.Items[i]
				assert.Equal(t, want.ID, got.ID)
				assert.Equal(t, want.Name, got.Name)
				assert.Equal(t, want.Variant, got.Variant)
				assert.Equal(t, want.Quantity, got.Quantity)
				assert.True(t, want.Price.Equal(got.Price), "price = %s, want %s", got.Price, want.Price)
			}
		})
	}
}

func TestSanitizeTruncatesToCartLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxItemsInCart = 2

	raw := `{"items": [
		{"id": "p1", "name": "A", "price": 100, "quantity": 1},
		{"id": "p2", "name": "B", "price": 100, "quantity": 1},
		{"id": "p3", "name": "C", "price": 100, "quantity": 1}
	]}`

	snap, err := Sanitize([]byte(raw), cfg)
	require.NoError(t, err)
	require.Len(t, snap.Items, 2)
	assert.Equal(t, "p1", snap.Items[0].ID)
	assert.Equal(t, "p2", snap.Items[1].ID)
}

func TestSanitizeCoupon(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name string
		raw  string
		want *Coupon
	}{
		{
			name: "valid percentage coupon survives",
			raw:  `{"items": [], "appliedCoupon": {"code": "GROW10", "type": "percentage", "discount": 0.10}}`,
			want: &Coupon{Code: "GROW10", Type: DiscountPercentage, Value: dec("0.10")},
		},
		{
			name: "valid fixed coupon survives",
			raw:  `{"items": [], "appliedCoupon": {"code": "FLAT5000", "type": "fixed", "discount": 5000}}`,
			want: &Coupon{Code: "FLAT5000", Type: DiscountFixed, Value: dec("5000")},
		},
		{
			name: "null coupon",
			raw:  `{"items": [], "appliedCoupon": null}`,
			want: nil,
		},
		{
			name: "percentage above one is discarded",
			raw:  `{"items": [], "appliedCoupon": {"code": "X", "type": "percentage", "discount": 10}}`,
			want: nil,
		},
		{
			name: "negative discount is discarded",
			raw:  `{"items": [], "appliedCoupon": {"code": "X", "type": "fixed", "discount": -5}}`,
			want: nil,
		},
		{
			name: "unknown type is discarded",
			raw:  `{"items": [], "appliedCoupon": {"code": "X", "type": "bogo", "discount": 1}}`,
			want: nil,
		},
		{
			name: "missing code is discarded",
			raw:  `{"items": [], "appliedCoupon": {"type": "fixed", "discount": 5}}`,
			want: nil,
		},
		{
			name: "coupon that is not an object is discarded",
			raw:  `{"items": [], "appliedCoupon": "GROW10"}`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := Sanitize([]byte(tt.raw), cfg)
			require.NoError(t, err, "a bad coupon never fails the whole record")

			if tt.want == nil {
				assert.Nil(t, snap.AppliedCoupon)
				return
			}
			require.NotNil(t, snap.AppliedCoupon)
			assert.Equal(t, tt.want.Code, snap.AppliedCoupon.Code)
			assert.Equal(t, tt.want.Type, snap.AppliedCoupon.Type)
			assert.True(t, tt.want.Value.Equal(snap.AppliedCoupon.Value))
		})
	}
}

func TestSanitizeIgnoresPersistedTotals(t *testing.T) {
	raw := `{
		"items": [{"id": "p1", "name": "Seed", "price": 10000, "quantity": 1}],
		"totals": {"subtotal": 1, "total": 1},
		"subtotal": 1,
		"total": 1
	}`

	snap, err := Sanitize([]byte(raw), DefaultConfig())
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)

	// Derived fields come only from recalculation.
	got := CalculateTotals(snap.Items, snap.AppliedCoupon, DefaultConfig())
	assertDec(t, "10000", got.Subtotal, "subtotal")
	assertDec(t, "12500", got.Total, "total")
}

func TestSanitizeLastUpdated(t *testing.T) {
	cfg := DefaultConfig()

	snap, err := Sanitize([]byte(`{"items": [], "lastUpdated": 1756300000000}`), cfg)
	require.NoError(t, err)
	assert.Equal(t, time.UnixMilli(1756300000000), snap.LastUpdated)

	// Garbage timestamps are dropped, not guessed at.
	snap, err = Sanitize([]byte(`{"items": [], "lastUpdated": "yesterday"}`), cfg)
	require.NoError(t, err)
	assert.True(t, snap.LastUpdated.IsZero())
}

func TestEncodeSanitizeRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	orig := Snapshot{
		Items: []LineItem{
			{ID: "p1", Name: "Seed", Price: dec("12000"), OriginalPrice: dec("14000"), Image: "img/p1.jpg", Category: "semillas", Variant: "x3", Quantity: 2},
			{ID: "p2", Name: "Lamp", Price: dec("60000"), Variant: DefaultVariant, Quantity: 1},
		},
		AppliedCoupon: &Coupon{Code: "GROW10", Type: DiscountPercentage, Value: dec("0.10")},
		LastUpdated:   time.UnixMilli(1756300000000),
	}
	orig.Totals = CalculateTotals(orig.Items, orig.AppliedCoupon, cfg)

	snap, err := Sanitize(EncodeSnapshot(orig), cfg)
	require.NoError(t, err)

	require.Len(t, snap.Items, 2)
	for i := range orig.Items {
		assert.Equal(t, orig.Items[i].ID, snap.Items[i].ID)
		assert.Equal(t, orig.Items[i].Name, snap.Items[i].Name)
		assert.Equal(t, orig.Items[i].Image, snap.Items[i].Image)
		assert.Equal(t, orig.Items[i].Category, snap.Items[i].Category)
		assert.Equal(t, orig.Items[i].Variant, snap.Items[i].Variant)
		assert.Equal(t, orig.Items[i].Quantity, snap.Items[i].Quantity)
		assert.True(t, orig.Items[i].Price.Equal(snap.Items[i].Price))
	}
	require.NotNil(t, snap.AppliedCoupon)
	assert.Equal(t, "GROW10", snap.AppliedCoupon.Code)
	assert.True(t, dec("0.10").Equal(snap.AppliedCoupon.Value))
	assert.Equal(t, orig.LastUpdated, snap.LastUpdated)
}
