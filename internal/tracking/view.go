// Package tracking projects the manager's live list of in-flight orders.
package tracking

import (
	"time"

	"waiterboard/internal/domain"
	"waiterboard/internal/store"
)

// ActiveOrderView is one row of the live board: the order plus derived
// timing fields relative to the caller-supplied now.
type ActiveOrderView struct {
	domain.Order
	AgeMinutes          float64  `json:"age_minutes"`
	ClaimLatencyMinutes *float64 `json:"claim_latency_minutes,omitempty"`
}

type View struct {
	orders *store.Store
}

func New(orders *store.Store) *View {
	return &View{orders: orders}
}

// ActiveOrders returns every pending, preparing or ready order, oldest
// first, so the longest-unserved orders surface at the top of the board.
func (v *View) ActiveOrders(now time.Time) []ActiveOrderView {
	snap := v.orders.Snapshot(func(o domain.Order) bool { return o.Status.Active() })

	out := make([]ActiveOrderView, 0, len(snap))
	for _, o := range snap {
		row := ActiveOrderView{Order: o, AgeMinutes: now.Sub(o.CreatedAt).Minutes()}
		if o.ClaimedAt != nil {
			lat := o.ClaimedAt.Sub(o.CreatedAt).Minutes()
			row.ClaimLatencyMinutes = &lat
		}
		out = append(out, row)
	}
	return out
}
