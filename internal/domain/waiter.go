package domain

// Waiter comes from the external user directory; the core treats the id as
// an opaque foreign key.
type Waiter struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// WaiterDailyStats is derived on every query, never stored. Averages keep
// sub-minute precision; truncation to whole minutes happens only at the
// presentation edge (see Presented).
type WaiterDailyStats struct {
	WaiterID           string  `json:"waiter_id"`
	Date               string  `json:"date"` // YYYY-MM-DD in the restaurant's zone
	OrdersClaimed      int     `json:"orders_claimed"`
	OrdersDelivered    int     `json:"orders_delivered"`
	AvgClaimMinutes    float64 `json:"avg_claim_minutes"`
	AvgDeliveryMinutes float64 `json:"avg_delivery_minutes"`
	TotalRevenue       float64 `json:"total_revenue"`
}

// Presented returns a copy with the averages truncated to whole minutes,
// matching what the dashboard displays.
func (s WaiterDailyStats) Presented() WaiterDailyStats {
	s.AvgClaimMinutes = float64(int64(s.AvgClaimMinutes))
	s.AvgDeliveryMinutes = float64(int64(s.AvgDeliveryMinutes))
	return s
}
