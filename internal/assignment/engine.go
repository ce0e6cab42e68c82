// Package assignment gates the claim, deliver and release transitions with
// the exclusivity rules the dashboard assumes: one claimant per order, one
// deliverer, and delivery strictly by the claimant.
package assignment

import (
	"fmt"
	"time"

	"waiterboard/internal/domain"
	"waiterboard/internal/store"
)

type Engine struct {
	orders *store.Store
}

func New(orders *store.Store) *Engine {
	return &Engine{orders: orders}
}

// Claim assigns the order to waiterID and stamps the claim time. Re-claiming
// by the same waiter is an idempotent no-op; a claim by anyone else fails
// with ErrAlreadyClaimed.
func (e *Engine) Claim(orderID, waiterID string, now time.Time) (domain.Order, error) {
	if waiterID == "" {
		return domain.Order{}, fmt.Errorf("%w: empty waiter id", domain.ErrInvalidArgument)
	}
	return e.orders.Apply(orderID, func(o *domain.Order) error {
		if o.Status.Terminal() {
			return fmt.Errorf("%w: order is %s", domain.ErrInvalidState, o.Status)
		}
		if o.WaiterID == waiterID {
			return store.ErrUnchanged
		}
		if o.Claimed() {
			return fmt.Errorf("%w: held by %s", domain.ErrAlreadyClaimed, o.WaiterID)
		}
		o.WaiterID = waiterID
		t := now
		o.ClaimedAt = &t
		return nil
	})
}

// Deliver marks the order handed to the customer. Only the claiming waiter
// may deliver, and only once the kitchen has marked the order ready.
func (e *Engine) Deliver(orderID, waiterID string, now time.Time) (domain.Order, error) {
	if waiterID == "" {
		return domain.Order{}, fmt.Errorf("%w: empty waiter id", domain.ErrInvalidArgument)
	}
	return e.orders.Apply(orderID, func(o *domain.Order) error {
		if !o.Claimed() {
			return fmt.Errorf("%w: claim it first", domain.ErrNotClaimed)
		}
		if o.WaiterID != waiterID {
			return fmt.Errorf("%w: order is claimed by %s", domain.ErrWrongWaiter, o.WaiterID)
		}
		switch o.Status {
		case domain.StatusReady:
		case domain.StatusDelivered, domain.StatusCancelled:
			return fmt.Errorf("%w: order is %s", domain.ErrInvalidState, o.Status)
		default:
			return fmt.Errorf("%w: order is %s, not ready", domain.ErrInvalidState, o.Status)
		}
		o.Status = domain.StatusDelivered
		o.DeliveredBy = waiterID
		t := now
		o.DeliveredAt = &t
		return nil
	})
}

// Release revokes waiterID's claim so another waiter can take over. It is
// the one sanctioned undo of an assignment; call sites log it with actor and
// reason.
func (e *Engine) Release(orderID, waiterID string) (domain.Order, error) {
	if waiterID == "" {
		return domain.Order{}, fmt.Errorf("%w: empty waiter id", domain.ErrInvalidArgument)
	}
	return e.orders.Apply(orderID, func(o *domain.Order) error {
		if !o.Claimed() {
			return fmt.Errorf("%w: nothing to release", domain.ErrNotClaimed)
		}
		if o.WaiterID != waiterID {
			return fmt.Errorf("%w: order is claimed by %s", domain.ErrWrongWaiter, o.WaiterID)
		}
		if o.Status == domain.StatusDelivered {
			return fmt.Errorf("%w: order is already delivered", domain.ErrInvalidState)
		}
		o.WaiterID = ""
		o.ClaimedAt = nil
		return nil
	})
}

// AdvanceStatus is the kitchen's path through the generic transition rules:
// pending -> preparing -> ready, or cancellation of anything not terminal.
func (e *Engine) AdvanceStatus(orderID string, next domain.OrderStatus) (domain.Order, error) {
	switch next {
	case domain.StatusPreparing, domain.StatusReady, domain.StatusCancelled:
	default:
		return domain.Order{}, fmt.Errorf("%w: kitchen cannot set status %q", domain.ErrInvalidArgument, next)
	}
	return e.orders.Apply(orderID, func(o *domain.Order) error {
		if o.Status == next {
			return store.ErrUnchanged
		}
		if !o.Status.CanAdvanceTo(next) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidState, o.Status, next)
		}
		o.Status = next
		return nil
	})
}
