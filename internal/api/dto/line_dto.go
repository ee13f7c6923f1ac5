package dto

import "time"

// OrderNotifyRequest asks for an order to be announced in the studio LINE group.
type OrderNotifyRequest struct {
	OrderID      string   `json:"order_id"`
	CustomerName string   `json:"customer_name"`
	Items        []string `json:"items"`
	Total        float64  `json:"total"`
}

// LineGroupResponse is a discovered LINE group.
type LineGroupResponse struct {
	GroupID     string    `json:"group_id"`
	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}
