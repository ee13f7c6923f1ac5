package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/studio-ops/studio-erp/internal/api/dto"
	"github.com/studio-ops/studio-erp/internal/auth"
	"github.com/studio-ops/studio-erp/internal/domain"
	"github.com/studio-ops/studio-erp/internal/line"
	"github.com/studio-ops/studio-erp/internal/service"
)

// LineHandler exposes the LINE webhook and order notifications.
type LineHandler struct {
	lineService   *service.LineService
	notifications *service.NotificationService
}

// NewLineHandler constructs handler.
func NewLineHandler(lineService *service.LineService, notifications *service.NotificationService) *LineHandler {
	return &LineHandler{lineService: lineService, notifications: notifications}
}

// Webhook handles POST /line/webhook.
func (h *LineHandler) Webhook(c *fiber.Ctx) error {
	body := append([]byte(nil), c.Body()...)
	groups, err := h.lineService.HandleWebhook(c.UserContext(), body, c.Get(line.SignatureHeader))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"groups": groups}})
}

// NotifyOrder handles POST /orders/notify.
func (h *LineHandler) NotifyOrder(c *fiber.Ctx) error {
	var req dto.OrderNotifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	order := domain.OrderNotification{
		OrderID:      req.OrderID,
		CustomerName: req.CustomerName,
		Items:        req.Items,
		Total:        req.Total,
	}
	if user, ok := auth.UserFromContext(c); ok {
		order.RequestedBy = user.Email
	}
	if err := h.notifications.RequestOrderNotification(c.UserContext(), order); err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": fiber.Map{"status": "queued", "order_id": order.OrderID}})
}

// ListGroups handles GET /settings/line-groups.
func (h *LineHandler) ListGroups(c *fiber.Ctx) error {
	groups, err := h.lineService.ListGroups(c.UserContext())
	if err != nil {
		return err
	}
	resp := make([]dto.LineGroupResponse, 0, len(groups))
	for _, g := range groups {
		resp = append(resp, dto.LineGroupResponse{GroupID: g.GroupID, FirstSeenAt: g.FirstSeenAt, LastSeenAt: g.LastSeenAt})
	}
	return c.JSON(fiber.Map{"data": resp})
}
