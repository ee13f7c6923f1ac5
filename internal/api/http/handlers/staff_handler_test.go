package handlers

import (
	"context"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studio-ops/studio-erp/internal/api/dto"
	"github.com/studio-ops/studio-erp/internal/events"
	"github.com/studio-ops/studio-erp/internal/service"
)

func newStaffApp(t *testing.T) (*fiber.App, *[]events.Event) {
	t.Helper()
	dispatcher := events.NewInMemoryDispatcher(nil)
	published := &[]events.Event{}
	dispatcher.Subscribe(events.EventStaffChanged, func(_ context.Context, ev events.Event) error {
		*published = append(*published, ev)
		return nil
	})

	h := NewStaffHandler(service.NewStaffService(newMemStaff(), dispatcher, 4, nil))
	app := newTestApp()
	app.Get("/settings/staff", h.ListStaff)
	app.Post("/settings/staff", h.CreateStaff)
	app.Get("/settings/staff/:id", h.GetStaff)
	app.Patch("/settings/staff/:id", h.UpdateStaff)
	app.Post("/settings/staff/:id/deactivate", h.DeactivateStaff)
	return app, published
}

func createStaff(t *testing.T, app *fiber.App, email, role string) dto.StaffResponse {
	t.Helper()
	resp := doJSON(t, app, fiber.MethodPost, "/settings/staff", dto.StaffCreateRequest{
		Email: email, StaffName: "Someone", Password: "longenough", Role: role,
	}, nil)
	require.Equal(t, fiber.StatusCreated, resp.status, string(resp.body))
	var out struct {
		Data dto.StaffResponse `json:"data"`
	}
	resp.decode(t, &out)
	return out.Data
}

func TestStaffHandler_CreateValidatesAndConflicts(t *testing.T) {
	app, published := newStaffApp(t)

	created := createStaff(t, app, "Kai@Studio.test", "sales")
	assert.Equal(t, "kai@studio.test", created.Email)
	assert.Equal(t, "sales", created.Role)
	assert.True(t, created.IsActive)
	require.Len(t, *published, 1)

	tests := []struct {
		name   string
		req    dto.StaffCreateRequest
		status int
	}{
		{"duplicate email", dto.StaffCreateRequest{Email: "kai@studio.test", StaffName: "Kai", Password: "longenough", Role: "sales"}, fiber.StatusConflict},
		{"unknown role", dto.StaffCreateRequest{Email: "new@studio.test", StaffName: "New", Password: "longenough", Role: "owner"}, fiber.StatusBadRequest},
		{"missing name", dto.StaffCreateRequest{Email: "new@studio.test", Password: "longenough", Role: "sales"}, fiber.StatusBadRequest},
		{"weak password", dto.StaffCreateRequest{Email: "new@studio.test", StaffName: "New", Password: "short", Role: "sales"}, fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, app, fiber.MethodPost, "/settings/staff", tt.req, nil)
			assert.Equal(t, tt.status, resp.status, string(resp.body))
		})
	}
}

func TestStaffHandler_ListFiltersByRole(t *testing.T) {
	app, _ := newStaffApp(t)
	createStaff(t, app, "a@studio.test", "sales")
	createStaff(t, app, "b@studio.test", "artist")

	resp := doJSON(t, app, fiber.MethodGet, "/settings/staff?role=artist", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.status)
	var out struct {
		Data []dto.StaffResponse `json:"data"`
	}
	resp.decode(t, &out)
	require.Len(t, out.Data, 1)
	assert.Equal(t, "b@studio.test", out.Data[0].Email)

	resp = doJSON(t, app, fiber.MethodGet, "/settings/staff?role=owner", nil, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.status)
}

func TestStaffHandler_UpdateAndDeactivate(t *testing.T) {
	app, published := newStaffApp(t)
	created := createStaff(t, app, "lee@studio.test", "sales")
	path := "/settings/staff/" + itoa(created.ID)

	role := "front_desk"
	resp := doJSON(t, app, fiber.MethodPatch, path, dto.StaffUpdateRequest{Role: &role}, nil)
	require.Equal(t, fiber.StatusOK, resp.status, string(resp.body))
	var out struct {
		Data dto.StaffResponse `json:"data"`
	}
	resp.decode(t, &out)
	assert.Equal(t, "front_desk", out.Data.Role)

	resp = doJSON(t, app, fiber.MethodPost, path+"/deactivate", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.status)
	resp.decode(t, &out)
	assert.False(t, out.Data.IsActive)

	require.Len(t, *published, 3)
	last := (*published)[2]
	assert.Equal(t, "lee@studio.test", last.Email)
	payload, ok := last.Payload.(events.StaffChangedPayload)
	require.True(t, ok)
	assert.False(t, payload.IsActive)
}

func TestStaffHandler_BadAndMissingIDs(t *testing.T) {
	app, _ := newStaffApp(t)

	assert.Equal(t, fiber.StatusBadRequest, doJSON(t, app, fiber.MethodGet, "/settings/staff/abc", nil, nil).status)
	assert.Equal(t, fiber.StatusBadRequest, doJSON(t, app, fiber.MethodGet, "/settings/staff/0", nil, nil).status)
	assert.Equal(t, fiber.StatusNotFound, doJSON(t, app, fiber.MethodGet, "/settings/staff/404", nil, nil).status)
}
