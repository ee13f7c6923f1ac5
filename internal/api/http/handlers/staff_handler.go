package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/studio-ops/studio-erp/internal/api/dto"
	"github.com/studio-ops/studio-erp/internal/domain"
	"github.com/studio-ops/studio-erp/internal/service"
)

// StaffHandler exposes staff provisioning under /settings/staff.
type StaffHandler struct {
	staffService *service.StaffService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(staffService *service.StaffService) *StaffHandler {
	return &StaffHandler{staffService: staffService}
}

// CreateStaff handles POST /settings/staff.
func (h *StaffHandler) CreateStaff(c *fiber.Ctx) error {
	var req dto.StaffCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.StaffName == "" || req.Email == "" || req.Password == "" || req.Role == "" {
		return fiber.NewError(http.StatusBadRequest, "staff_name, email, password, role required")
	}
	role, err := domain.ParseStaffRole(req.Role)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	staff, err := h.staffService.CreateStaffMember(c.UserContext(), service.CreateStaffInput{
		Email:     req.Email,
		StaffName: req.StaffName,
		Password:  req.Password,
		Role:      role,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": staffResponse(staff)})
}

// ListStaff handles GET /settings/staff.
func (h *StaffHandler) ListStaff(c *fiber.Ctx) error {
	filters, err := parseStaffListFilters(c)
	if err != nil {
		return err
	}
	list, err := h.staffService.ListStaffMembers(c.UserContext(), filters)
	if err != nil {
		return err
	}
	resp := make([]dto.StaffResponse, 0, len(list))
	for i := range list {
		resp = append(resp, staffResponse(&list[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// GetStaff handles GET /settings/staff/:id.
func (h *StaffHandler) GetStaff(c *fiber.Ctx) error {
	id, err := staffIDParam(c)
	if err != nil {
		return err
	}
	staff, err := h.staffService.GetStaffMemberByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponse(staff)})
}

// UpdateStaff handles PATCH /settings/staff/:id.
func (h *StaffHandler) UpdateStaff(c *fiber.Ctx) error {
	id, err := staffIDParam(c)
	if err != nil {
		return err
	}
	var req dto.StaffUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	in := service.UpdateStaffInput{
		StaffName: req.StaffName,
		IsActive:  req.IsActive,
		Password:  req.Password,
	}
	if req.Role != nil {
		role, err := domain.ParseStaffRole(*req.Role)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		in.Role = &role
	}

	updated, err := h.staffService.UpdateStaffMember(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponse(updated)})
}

// DeactivateStaff handles POST /settings/staff/:id/deactivate.
func (h *StaffHandler) DeactivateStaff(c *fiber.Ctx) error {
	id, err := staffIDParam(c)
	if err != nil {
		return err
	}
	updated, err := h.staffService.DeactivateStaffMember(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponse(updated)})
}

func staffIDParam(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(http.StatusBadRequest, "invalid staff id")
	}
	return id, nil
}

func parseStaffListFilters(c *fiber.Ctx) (service.StaffListFilters, error) {
	var filters service.StaffListFilters
	if roleStr := c.Query("role"); roleStr != "" {
		role, err := domain.ParseStaffRole(roleStr)
		if err != nil {
			return filters, fiber.NewError(http.StatusBadRequest, err.Error())
		}
		filters.Role = &role
	}
	if c.Query("active") != "" {
		active := parseBoolQuery(c, "active", true)
		filters.Active = &active
	}
	filters.Limit, filters.Offset = parsePage(c)
	return filters, nil
}
