// Package stats derives per-waiter, per-day performance numbers from order
// snapshots. It mutates nothing and reads no clock; callers pass the date.
package stats

import (
	"time"

	"waiterboard/internal/domain"
	"waiterboard/internal/store"
)

type Aggregator struct {
	orders *store.Store
	loc    *time.Location // the restaurant's local zone for calendar-day matching
}

func New(orders *store.Store, loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{orders: orders, loc: loc}
}

// ComputeStats aggregates the given waiter's activity for the calendar day
// containing date in the restaurant's zone. No matching orders yields
// all-zero stats, mirroring the dashboard's "no data" display.
func (a *Aggregator) ComputeStats(waiterID string, date time.Time) domain.WaiterDailyStats {
	y, m, d := date.In(a.loc).Date()

	snap := a.orders.Snapshot(func(o domain.Order) bool {
		oy, om, od := o.CreatedAt.In(a.loc).Date()
		if oy != y || om != m || od != d {
			return false
		}
		return o.WaiterID == waiterID || o.DeliveredBy == waiterID
	})

	out := domain.WaiterDailyStats{
		WaiterID: waiterID,
		Date:     time.Date(y, m, d, 0, 0, 0, 0, a.loc).Format("2006-01-02"),
	}

	var claimTotal, deliveryTotal time.Duration
	var deliveredWithClaim int
	for _, o := range snap {
		if o.WaiterID == waiterID && o.ClaimedAt != nil {
			out.OrdersClaimed++
			claimTotal += o.ClaimedAt.Sub(o.CreatedAt)
		}
		if o.DeliveredBy == waiterID {
			out.OrdersDelivered++
			out.TotalRevenue += o.Total
			if o.ClaimedAt != nil && o.DeliveredAt != nil {
				deliveredWithClaim++
				deliveryTotal += o.DeliveredAt.Sub(*o.ClaimedAt)
			}
		}
	}
	if out.OrdersClaimed > 0 {
		out.AvgClaimMinutes = claimTotal.Minutes() / float64(out.OrdersClaimed)
	}
	if deliveredWithClaim > 0 {
		out.AvgDeliveryMinutes = deliveryTotal.Minutes() / float64(deliveredWithClaim)
	}
	return out
}
