package cart

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventKind names the mutation that produced an event.
type EventKind string

const (
	EventUpdated            EventKind = "updated"
	EventItemAdded          EventKind = "item-added"
	EventItemRemoved        EventKind = "item-removed"
	EventCouponApplied      EventKind = "coupon-applied"
	EventCouponRemoved      EventKind = "coupon-removed"
	EventCleared            EventKind = "cleared"
	EventPersistenceWarning EventKind = "persistence-warning"
)

// Event is delivered to subscribers once per successful mutation. It carries
// the new snapshot and, depending on the kind, the affected item or coupon.
// For EventPersistenceWarning, Err holds the underlying PersistenceError.
type Event struct {
	Kind     EventKind
	Item     *LineItem
	Coupon   *Coupon
	Snapshot Snapshot
	Err      error
}

// Subscriber receives cart events. A subscriber must not assume it is the
// only one registered; panics are isolated and logged, never propagated to
// the mutating caller or to other subscribers.
type Subscriber func(Event)

// Publisher is the external event sink a composition root may bridge to its
// UI event system. Internal subscribers are always invoked before Publish.
type Publisher interface {
	Publish(topic string, payload any)
}

// subscription pairs a subscriber with a stable handle so unsubscription
// does not disturb delivery order of the others.
type subscription struct {
	id uuid.UUID
	fn Subscriber
}

// notifier keeps the ordered subscriber registry and the optional external
// publisher.
type notifier struct {
	lg  *zap.Logger
	bus Publisher

	mu   sync.Mutex
	subs []subscription
}

func newNotifier(lg *zap.Logger, bus Publisher) *notifier {
	return &notifier{lg: lg, bus: bus}
}

// subscribe registers fn and returns an unsubscribe handle. Calling the
// handle more than once is a no-op.
func (n *notifier) subscribe(fn Subscriber) (unsubscribe func()) {
	id := uuid.New()

	n.mu.Lock()
	n.subs = append(n.subs, subscription{id: id, fn: fn})
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			for i, s := range n.subs {
				if s.id == id {
					n.subs = append(n.subs[:i], n.subs[i+1:]...)
					break
				}
			}
		})
	}
}

// dispatch delivers ev to internal subscribers in registration order, then
// emits it on the external publisher. Must be called without the engine lock
// held so subscribers may call back into the engine.
func (n *notifier) dispatch(ev Event) {
	n.mu.Lock()
	subs := make([]subscription, len(n.subs))
	copy(subs, n.subs)
	n.mu.Unlock()

	for _, s := range subs {
		n.invoke(s, ev)
	}

	if n.bus != nil {
		n.bus.Publish(string(ev.Kind), ev)
	}
}

func (n *notifier) invoke(s subscription, ev Event) {
	defer func() {
		if rec := recover(); rec != nil {
			n.lg.Error("cart subscriber panicked",
				zap.String("event", string(ev.Kind)),
				zap.String("subscription", s.id.String()),
				zap.Any("panic", rec),
			)
		}
	}()
	s.fn(ev)
}
