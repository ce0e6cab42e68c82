package domain

import "time"

type OrderType string

const (
	TypeDineIn   OrderType = "dine-in"
	TypeTakeout  OrderType = "takeout"
	TypeDelivery OrderType = "delivery"
)

func (t OrderType) Valid() bool {
	switch t {
	case TypeDineIn, TypeTakeout, TypeDelivery:
		return true
	}
	return false
}

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// kitchenRank orders the kitchen progression; terminal statuses are not ranked.
func kitchenRank(s OrderStatus) int {
	switch s {
	case StatusPending:
		return 0
	case StatusPreparing:
		return 1
	case StatusReady:
		return 2
	}
	return -1
}

func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Active reports whether the order is still in flight on the floor.
func (s OrderStatus) Active() bool {
	return s == StatusPending || s == StatusPreparing || s == StatusReady
}

// CanAdvanceTo reports whether the kitchen may move an order from s to next.
// The kitchen path never regresses and never reaches delivered; delivery
// belongs to the assignment engine.
func (s OrderStatus) CanAdvanceTo(next OrderStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusCancelled {
		return true
	}
	fromRank, toRank := kitchenRank(s), kitchenRank(next)
	return toRank >= 0 && toRank > fromRank
}

// Order is the unit of work on the floor. Claim and delivery fields are set
// at most once each; release is the single sanctioned exception and goes
// through the assignment engine.
type Order struct {
	ID          string      `json:"id"`
	Type        OrderType   `json:"type"`
	TableID     *string     `json:"table_id,omitempty"` // set iff Type == dine-in
	Status      OrderStatus `json:"status"`
	Total       float64     `json:"total"`
	CreatedAt   time.Time   `json:"created_at"`
	WaiterID    string      `json:"waiter_id,omitempty"`
	ClaimedAt   *time.Time  `json:"claimed_at,omitempty"`
	DeliveredBy string      `json:"delivered_by,omitempty"`
	DeliveredAt *time.Time  `json:"delivered_at,omitempty"`
}

func (o Order) Claimed() bool   { return o.WaiterID != "" }
func (o Order) Delivered() bool { return o.DeliveredBy != "" }
