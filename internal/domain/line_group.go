package domain

import "time"

// LineGroup is a LINE group discovered through the webhook.
type LineGroup struct {
	GroupID     string
	FirstSeenAt time.Time
	LastSeenAt  time.Time
}

// OrderNotification is the payload forwarded to LINE when an order is placed.
type OrderNotification struct {
	OrderID      string
	CustomerName string
	Items        []string
	Total        float64
	RequestedBy  string
}
