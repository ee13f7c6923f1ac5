package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/studio-ops/studio-erp/internal/api/dto"
	"github.com/studio-ops/studio-erp/internal/domain"
)

func parseBoolQuery(c *fiber.Ctx, key string, defaultVal bool) bool {
	if val := c.Query(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func parseIntQuery(c *fiber.Ctx, key string, defaultVal int) int {
	if val := c.Query(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultVal
}

// parsePage turns page/page_size query params into limit and offset.
func parsePage(c *fiber.Ctx) (limit, offset int) {
	page := parseIntQuery(c, "page", 1)
	pageSize := parseIntQuery(c, "page_size", 50)
	return pageSize, (page - 1) * pageSize
}

func staffResponse(staff *domain.StaffRecord) dto.StaffResponse {
	return dto.StaffResponse{
		ID:        staff.ID,
		Email:     staff.Email,
		StaffName: staff.StaffName,
		Role:      string(staff.Role),
		IsActive:  staff.IsActive,
		CreatedAt: staff.CreatedAt,
		UpdatedAt: staff.UpdatedAt,
	}
}
