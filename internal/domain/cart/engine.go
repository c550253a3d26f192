package cart

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// Engine owns the authoritative in-memory cart snapshot. All mutation goes
// through its operations; each operation is atomic: validate, mutate,
// recalculate, persist, notify — or fail with no state change.
//
// One Engine is expected per composition root. Construct isolated instances
// in tests; there is no package-level state.
type Engine struct {
	cfg      Config
	storage  Storage
	lg       *zap.Logger
	notifier *notifier
	now      func() time.Time

	mu   sync.Mutex
	snap Snapshot
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. Defaults to zap.NewNop().
func WithLogger(lg *zap.Logger) Option {
	return func(e *Engine) { e.lg = lg }
}

// WithPublisher bridges mutation events to an external event system. Internal
// subscribers always run first.
func WithPublisher(bus Publisher) Option {
	return func(e *Engine) { e.notifier.bus = bus }
}

// WithClock overrides the LastUpdated time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New constructs an Engine and reconstructs its snapshot from storage.
// A malformed persisted record is recovered as an empty cart and logged, not
// surfaced as a failure; a storage read error is.
func New(ctx context.Context, cfg Config, storage Storage, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:     cfg,
		storage: storage,
		lg:      zap.NewNop(),
		now:     time.Now,
	}
	e.notifier = newNotifier(e.lg, nil)
	for _, opt := range opts {
		opt(e)
	}
	e.notifier.lg = e.lg

	raw, ok, err := storage.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load cart snapshot")
	}
	if !ok {
		raw = nil
	}

	snap, err := Sanitize(raw, cfg)
	if err != nil {
		// Recovered locally: start from the empty snapshot Sanitize returned.
		e.lg.Warn("discarding malformed persisted cart", zap.Error(err))
	}
	snap.Totals = CalculateTotals(snap.Items, snap.AppliedCoupon, cfg)
	e.snap = snap

	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Subscribe registers fn to receive an event after every successful mutation
// and returns an unsubscribe handle.
func (e *Engine) Subscribe(fn Subscriber) (unsubscribe func()) {
	return e.notifier.subscribe(fn)
}

// Cart returns a defensive copy of the current snapshot.
func (e *Engine) Cart() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap.Clone()
}

// HasItem reports whether a line item with the given (id, variant) exists.
// An empty variant matches the default variant.
func (e *Engine) HasItem(id, variant string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.findLocked(id, normalizeVariant(variant)) >= 0
}

// ItemQuantity returns the quantity of the matching line item, or 0.
func (e *Engine) ItemQuantity(id, variant string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := e.findLocked(id, normalizeVariant(variant)); i >= 0 {
		return e.snap.Items[i].Quantity
	}
	return 0
}

// IsEmpty reports whether the cart holds no line items.
func (e *Engine) IsEmpty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.snap.Items) == 0
}

// Stats returns a read-only summary of the cart for rendering layers.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	t := e.snap.Totals
	st := Stats{
		TotalItems:  t.TotalItems,
		UniqueItems: len(e.snap.Items),
		Subtotal:    t.Subtotal,
		Savings:     t.Discount,
		Shipping:    t.Shipping,
		Total:       t.Total,
		HasDiscount: t.Discount.IsPositive(),
	}
	st.HasFreeShipping = len(e.snap.Items) > 0 && t.Shipping.IsZero()

	remaining := e.cfg.FreeShippingThreshold.Sub(t.Subtotal.Sub(t.Discount))
	st.RemainingForFreeShipping = floorAtZero(remaining)
	return st
}

// AddItem adds quantity units of the product to the cart, merging into an
// existing line item with the same (id, variant). On success it returns the
// resulting line item.
func (e *Engine) AddItem(ctx context.Context, p Product, quantity int, variant string) (LineItem, error) {
	if reason := validateProduct(p); reason != "" {
		return LineItem{}, &InvalidProductError{Reason: reason}
	}
	if quantity < 1 || quantity > e.cfg.MaxQuantityPerItem {
		return LineItem{}, &QuantityOutOfRangeError{Quantity: quantity, Max: e.cfg.MaxQuantityPerItem}
	}
	variant = normalizeVariant(variant)

	e.mu.Lock()

	var item LineItem
	if i := e.findLocked(p.ID, variant); i >= 0 {
		merged := e.snap.Items[i].Quantity + quantity
		if merged > e.cfg.MaxQuantityPerItem {
			e.mu.Unlock()
			return LineItem{}, &QuantityOutOfRangeError{Quantity: merged, Max: e.cfg.MaxQuantityPerItem}
		}
		e.snap.Items[i].Quantity = merged
		item = e.snap.Items[i]
	} else {
		if len(e.snap.Items) >= e.cfg.MaxItemsInCart {
			e.mu.Unlock()
			return LineItem{}, &CartFullError{Limit: e.cfg.MaxItemsInCart}
		}
		item = LineItem{
			ID:            strings.TrimSpace(p.ID),
			Name:          strings.TrimSpace(p.Name),
			Price:         p.Price,
			OriginalPrice: p.OriginalPrice,
			Image:         p.Image,
			Category:      p.Category,
			Variant:       variant,
			Quantity:      quantity,
		}
		e.snap.Items = append(e.snap.Items, item)
	}

	events := e.commitLocked(ctx, Event{Kind: EventItemAdded, Item: &item})
	e.mu.Unlock()

	e.dispatch(events)
	return item, nil
}

// RemoveItem removes the line item matching (id, variant) and returns it.
func (e *Engine) RemoveItem(ctx context.Context, id, variant string) (LineItem, error) {
	variant = normalizeVariant(variant)

	e.mu.Lock()
	i := e.findLocked(id, variant)
	if i < 0 {
		e.mu.Unlock()
		return LineItem{}, &ItemNotFoundError{ID: id, Variant: variant}
	}

	removed := e.snap.Items[i]
	e.snap.Items = append(e.snap.Items[:i], e.snap.Items[i+1:]...)

	events := e.commitLocked(ctx, Event{Kind: EventItemRemoved, Item: &removed})
	e.mu.Unlock()

	e.dispatch(events)
	return removed, nil
}

// UpdateQuantity sets the quantity of the matching line item. A quantity of
// zero removes the item, identically to RemoveItem.
func (e *Engine) UpdateQuantity(ctx context.Context, id string, quantity int, variant string) (LineItem, error) {
	if quantity == 0 {
		return e.RemoveItem(ctx, id, variant)
	}
	if quantity < 1 || quantity > e.cfg.MaxQuantityPerItem {
		return LineItem{}, &QuantityOutOfRangeError{Quantity: quantity, Max: e.cfg.MaxQuantityPerItem}
	}
	variant = normalizeVariant(variant)

	e.mu.Lock()
	i := e.findLocked(id, variant)
	if i < 0 {
		e.mu.Unlock()
		return LineItem{}, &ItemNotFoundError{ID: id, Variant: variant}
	}

	e.snap.Items[i].Quantity = quantity
	item := e.snap.Items[i]

	events := e.commitLocked(ctx, Event{Kind: EventUpdated, Item: &item})
	e.mu.Unlock()

	e.dispatch(events)
	return item, nil
}

// ApplyCoupon validates and applies the coupon, replacing any existing one.
// At most one coupon is active at a time.
func (e *Engine) ApplyCoupon(ctx context.Context, c Coupon) error {
	c.Code = strings.TrimSpace(c.Code)
	if c.Code == "" {
		return errors.Wrap(ErrInvalidCoupon, "empty code")
	}
	switch c.Type {
	case DiscountPercentage:
		if c.Value.IsNegative() || c.Value.GreaterThan(one) {
			return errors.Wrap(ErrInvalidCoupon, "percentage out of range")
		}
	case DiscountFixed:
		if c.Value.IsNegative() {
			return errors.Wrap(ErrInvalidCoupon, "negative amount")
		}
	default:
		return errors.Wrapf(ErrInvalidCoupon, "unknown type %q", c.Type)
	}

	e.mu.Lock()
	e.snap.AppliedCoupon = &c

	events := e.commitLocked(ctx, Event{Kind: EventCouponApplied, Coupon: &c})
	e.mu.Unlock()

	e.dispatch(events)
	return nil
}

// RemoveCoupon clears the applied coupon and returns the previous one, or nil
// when none was applied. It always succeeds; removing from a coupon-less cart
// is a no-op that does not mutate or notify.
func (e *Engine) RemoveCoupon(ctx context.Context) (*Coupon, error) {
	e.mu.Lock()
	prev := e.snap.AppliedCoupon
	if prev == nil {
		e.mu.Unlock()
		return nil, nil
	}
	e.snap.AppliedCoupon = nil

	events := e.commitLocked(ctx, Event{Kind: EventCouponRemoved, Coupon: prev})
	e.mu.Unlock()

	e.dispatch(events)
	c := *prev
	return &c, nil
}

// Clear empties the cart: all items and any coupon. It always succeeds.
func (e *Engine) Clear(ctx context.Context) error {
	e.mu.Lock()
	e.snap.Items = []LineItem{}
	e.snap.AppliedCoupon = nil

	events := e.commitLocked(ctx, Event{Kind: EventCleared})
	e.mu.Unlock()

	e.dispatch(events)
	return nil
}

// commitLocked finalizes a mutation: recalculates totals, stamps LastUpdated,
// persists, and prepares the events to dispatch once the lock is released.
// A persistence failure does not roll back the mutation; it is reported as a
// persistence-warning event ahead of the mutation event.
func (e *Engine) commitLocked(ctx context.Context, ev Event) []Event {
	e.snap.Totals = CalculateTotals(e.snap.Items, e.snap.AppliedCoupon, e.cfg)
	e.snap.LastUpdated = e.now()

	events := make([]Event, 0, 2)
	if err := e.storage.Save(ctx, EncodeSnapshot(e.snap)); err != nil {
		perr := &PersistenceError{Err: err}
		e.lg.Warn("cart snapshot not persisted", zap.Error(perr))
		events = append(events, Event{Kind: EventPersistenceWarning, Err: perr, Snapshot: e.snap.Clone()})
	}

	ev.Snapshot = e.snap.Clone()
	return append(events, ev)
}

// dispatch delivers events outside the engine lock so subscribers may call
// back into the engine.
func (e *Engine) dispatch(events []Event) {
	for _, ev := range events {
		e.notifier.dispatch(ev)
	}
}

// findLocked returns the index of the line item matching (id, variant), or -1.
func (e *Engine) findLocked(id, variant string) int {
	id = strings.TrimSpace(id)
	for i, item := range e.snap.Items {
		if item.ID == id && item.Variant == variant {
			return i
		}
	}
	return -1
}

// validateProduct returns a non-empty reason when the product record cannot
// become a line item.
func validateProduct(p Product) string {
	if strings.TrimSpace(p.ID) == "" {
		return "missing id"
	}
	if strings.TrimSpace(p.Name) == "" {
		return "missing name"
	}
	if p.Price.IsNegative() {
		return "negative price"
	}
	return ""
}

func normalizeVariant(variant string) string {
	variant = strings.TrimSpace(variant)
	if variant == "" {
		return DefaultVariant
	}
	return variant
}
