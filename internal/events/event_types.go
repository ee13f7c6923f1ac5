package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSignedIn          EventType = "signed_in"
	EventSignedOut         EventType = "signed_out"
	EventTokenRefreshed    EventType = "token_refreshed"
	EventStaffChanged      EventType = "staff_changed"
	EventOrderNotification EventType = "order_notification"
)

// AuthEventTypes are the events that affect a live session.
var AuthEventTypes = []EventType{
	EventSignedIn,
	EventSignedOut,
	EventTokenRefreshed,
	EventStaffChanged,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Email     string      `json:"email,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// New stamps an event with an ID and the current time.
func New(eventType EventType) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

// StaffChangedPayload payload.
type StaffChangedPayload struct {
	StaffID  int64  `json:"staff_id"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// OrderNotificationPayload payload.
type OrderNotificationPayload struct {
	OrderID      string   `json:"order_id"`
	CustomerName string   `json:"customer_name"`
	Items        []string `json:"items"`
	Total        float64  `json:"total"`
	RequestedBy  string   `json:"requested_by"`
}
