package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/studio-ops/studio-erp/internal/domain"
	"github.com/studio-ops/studio-erp/internal/events"
	"github.com/studio-ops/studio-erp/internal/line"
	apperrors "github.com/studio-ops/studio-erp/pkg/util/errorutil"
)

// NotificationRecorder receives delivery outcomes for metrics.
type NotificationRecorder interface {
	RecordNotification(result string)
}

// NotificationService turns order notification requests into LINE group messages.
type NotificationService struct {
	dispatcher events.Dispatcher
	pusher     line.Pusher
	groupID    string
	logger     *zap.Logger
	recorder   NotificationRecorder
}

// NewNotificationService creates the service. groupID is the LINE group that receives orders.
func NewNotificationService(dispatcher events.Dispatcher, pusher line.Pusher, groupID string, logger *zap.Logger, recorder NotificationRecorder) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		pusher:     pusher,
		groupID:    groupID,
		logger:     logger,
		recorder:   recorder,
	}
}

// RequestOrderNotification validates n and publishes it for delivery.
func (n *NotificationService) RequestOrderNotification(ctx context.Context, order domain.OrderNotification) error {
	details := map[string]any{}
	if strings.TrimSpace(order.OrderID) == "" {
		details["order_id"] = "required"
	}
	if strings.TrimSpace(order.CustomerName) == "" {
		details["customer_name"] = "required"
	}
	if order.Total < 0 {
		details["total"] = "must not be negative"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid order notification", details)
	}

	ev := events.New(events.EventOrderNotification)
	ev.Payload = events.OrderNotificationPayload{
		OrderID:      order.OrderID,
		CustomerName: order.CustomerName,
		Items:        order.Items,
		Total:        order.Total,
		RequestedBy:  order.RequestedBy,
	}
	return n.dispatcher.Publish(ctx, ev)
}

// Deliver pushes one order notification event to the configured group. Failures are
// reported, not retried.
func (n *NotificationService) Deliver(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.OrderNotificationPayload)
	if !ok {
		n.record("invalid")
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	if n.groupID == "" {
		n.record("skipped")
		n.logger.Warn("no LINE group configured; order notification dropped", zap.String("order_id", payload.OrderID))
		return nil
	}

	if err := n.pusher.PushText(ctx, n.groupID, FormatOrderMessage(payload)); err != nil {
		n.record("failed")
		return fmt.Errorf("push order %s: %w", payload.OrderID, err)
	}
	n.record("sent")
	n.logger.Info("order notification sent", zap.String("order_id", payload.OrderID), zap.String("event_id", event.ID))
	return nil
}

// FormatOrderMessage renders the group message for an order.
func FormatOrderMessage(p events.OrderNotificationPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New order %s\n", p.OrderID)
	fmt.Fprintf(&b, "Customer: %s\n", p.CustomerName)
	for _, item := range p.Items {
		fmt.Fprintf(&b, "- %s\n", item)
	}
	fmt.Fprintf(&b, "Total: %.2f", p.Total)
	if p.RequestedBy != "" {
		fmt.Fprintf(&b, "\nBy: %s", p.RequestedBy)
	}
	return b.String()
}

func (n *NotificationService) record(result string) {
	if n.recorder != nil {
		n.recorder.RecordNotification(result)
	}
}
