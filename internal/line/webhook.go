package line

import (
	"encoding/json"
	"fmt"
)

// Source types reported by the platform.
const (
	SourceUser  = "user"
	SourceGroup = "group"
	SourceRoom  = "room"
)

// WebhookPayload is the body delivered to the webhook endpoint.
type WebhookPayload struct {
	Destination string         `json:"destination"`
	Events      []WebhookEvent `json:"events"`
}

// WebhookEvent is one event in a webhook delivery. Only fields used here are decoded.
type WebhookEvent struct {
	Type       string      `json:"type"`
	Timestamp  int64       `json:"timestamp"`
	ReplyToken string      `json:"replyToken,omitempty"`
	Source     EventSource `json:"source"`
}

// EventSource identifies where an event came from.
type EventSource struct {
	Type    string `json:"type"`
	UserID  string `json:"userId,omitempty"`
	GroupID string `json:"groupId,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
}

// ParseWebhook decodes a webhook body.
func ParseWebhook(body []byte) (*WebhookPayload, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}
	return &payload, nil
}

// GroupIDs returns the distinct group IDs in payload, in first-seen order.
func (p *WebhookPayload) GroupIDs() []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, ev := range p.Events {
		if ev.Source.Type != SourceGroup || ev.Source.GroupID == "" {
			continue
		}
		if _, ok := seen[ev.Source.GroupID]; ok {
			continue
		}
		seen[ev.Source.GroupID] = struct{}{}
		ids = append(ids, ev.Source.GroupID)
	}
	return ids
}
