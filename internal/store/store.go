// Package store owns the authoritative in-memory order map. All mutation
// goes through Apply, which runs under per-order mutual exclusion and
// re-validates the order invariants before committing, so concurrent
// writers on the same order resolve deterministically and writers on
// different orders never block each other.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"waiterboard/internal/domain"
)

// ErrUnchanged may be returned by a Mutation to signal an idempotent no-op:
// Apply commits nothing and returns the current order with no error.
var ErrUnchanged = errors.New("order unchanged")

// Filter selects orders for Snapshot.
type Filter func(domain.Order) bool

// Mutation edits an order in place. It runs while the order is locked and
// must not block.
type Mutation func(*domain.Order) error

type entry struct {
	mu    sync.Mutex
	order domain.Order
}

type Store struct {
	mu     sync.RWMutex // guards the map itself, not the orders
	orders map[string]*entry
}

func New() *Store {
	return &Store{orders: make(map[string]*entry)}
}

// Create adds a new pending order with no waiter and returns it.
func (s *Store) Create(typ domain.OrderType, tableID *string, total float64, now time.Time) (domain.Order, error) {
	if !typ.Valid() {
		return domain.Order{}, fmt.Errorf("%w: unknown order type %q", domain.ErrInvalidArgument, typ)
	}
	if total < 0 {
		return domain.Order{}, fmt.Errorf("%w: negative total", domain.ErrInvalidArgument)
	}
	if (typ == domain.TypeDineIn) != (tableID != nil && *tableID != "") {
		return domain.Order{}, fmt.Errorf("%w: table id is required for dine-in orders and only for them", domain.ErrInvalidArgument)
	}

	o := domain.Order{
		ID:        uuid.NewString(),
		Type:      typ,
		TableID:   tableID,
		Status:    domain.StatusPending,
		Total:     total,
		CreatedAt: now,
	}

	s.mu.Lock()
	s.orders[o.ID] = &entry{order: o}
	s.mu.Unlock()
	return o, nil
}

func (s *Store) lookup(orderID string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.orders[orderID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, orderID)
	}
	return e, nil
}

func (s *Store) Get(orderID string) (domain.Order, error) {
	e, err := s.lookup(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	e.mu.Lock()
	o := e.order
	e.mu.Unlock()
	return o, nil
}

// Apply is the only mutation entry point. The mutation runs on a copy; any
// invariant violation discards the copy and leaves the store untouched.
func (s *Store) Apply(orderID string, m Mutation) (domain.Order, error) {
	e, err := s.lookup(orderID)
	if err != nil {
		return domain.Order{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.order
	if err := m(&next); err != nil {
		if errors.Is(err, ErrUnchanged) {
			return e.order, nil
		}
		return domain.Order{}, err
	}
	if err := validate(e.order, next); err != nil {
		return domain.Order{}, err
	}
	e.order = next
	return next, nil
}

// Snapshot returns a consistent point-in-time copy of every order matching
// the filter, ascending by creation time. A nil filter matches everything.
func (s *Store) Snapshot(f Filter) []domain.Order {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.orders))
	for _, e := range s.orders {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]domain.Order, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		o := e.order
		e.mu.Unlock()
		if f == nil || f(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// validate enforces the order invariants between the committed state and a
// proposed one. Clearing an established claim is allowed (that is release);
// everything delivery-related is write-once.
func validate(old, next domain.Order) error {
	if next.ID != old.ID || !next.CreatedAt.Equal(old.CreatedAt) || next.Type != old.Type || next.Total != old.Total {
		return fmt.Errorf("%w: identity fields are immutable", domain.ErrInvalidTransition)
	}
	if (old.TableID == nil) != (next.TableID == nil) || (old.TableID != nil && *old.TableID != *next.TableID) {
		return fmt.Errorf("%w: table id is immutable", domain.ErrInvalidTransition)
	}

	if old.Status.Terminal() && next.Status != old.Status {
		return fmt.Errorf("%w: order is already %s", domain.ErrInvalidTransition, old.Status)
	}
	if next.Status != old.Status && next.Status != domain.StatusDelivered && !old.Status.CanAdvanceTo(next.Status) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, old.Status, next.Status)
	}
	if next.Status == domain.StatusDelivered && old.Status != domain.StatusDelivered && old.Status != domain.StatusReady {
		return fmt.Errorf("%w: only ready orders can be delivered, was %s", domain.ErrInvalidTransition, old.Status)
	}

	if (next.WaiterID != "") != (next.ClaimedAt != nil) {
		return fmt.Errorf("%w: waiter id and claim time must be set together", domain.ErrInvalidTransition)
	}
	if (next.DeliveredBy != "") != (next.DeliveredAt != nil) {
		return fmt.Errorf("%w: delivered-by and delivery time must be set together", domain.ErrInvalidTransition)
	}
	if next.Delivered() != (next.Status == domain.StatusDelivered) {
		return fmt.Errorf("%w: delivery fields require delivered status", domain.ErrInvalidTransition)
	}
	if old.Delivered() && (next.DeliveredBy != old.DeliveredBy || !next.DeliveredAt.Equal(*old.DeliveredAt)) {
		return fmt.Errorf("%w: delivery record is write-once", domain.ErrInvalidTransition)
	}
	if old.Claimed() && old.Status == domain.StatusDelivered && next.WaiterID != old.WaiterID {
		return fmt.Errorf("%w: claim on a delivered order is frozen", domain.ErrInvalidTransition)
	}
	// An established claim may only be cleared (release) or stay as is; a
	// swap to another waiter or a moved claim time must go through a clear
	// first.
	if old.Claimed() && next.Claimed() && (next.WaiterID != old.WaiterID || !next.ClaimedAt.Equal(*old.ClaimedAt)) {
		return fmt.Errorf("%w: claim is write-once, release it first", domain.ErrInvalidTransition)
	}

	if next.ClaimedAt != nil && next.ClaimedAt.Before(next.CreatedAt) {
		return fmt.Errorf("%w: claimed before created", domain.ErrInvalidTransition)
	}
	if next.DeliveredAt != nil && next.ClaimedAt != nil && next.DeliveredAt.Before(*next.ClaimedAt) {
		return fmt.Errorf("%w: delivered before claimed", domain.ErrInvalidTransition)
	}
	return nil
}
