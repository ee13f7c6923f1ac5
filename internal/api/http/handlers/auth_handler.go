package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/studio-ops/studio-erp/internal/api/dto"
	"github.com/studio-ops/studio-erp/internal/auth"
	"github.com/studio-ops/studio-erp/internal/service"
)

// AuthHandler exposes sign-in endpoints.
type AuthHandler struct {
	authService  *service.AuthService
	cookieName   string
	cookieSecure bool
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, cookieName string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{authService: authService, cookieName: cookieName, cookieSecure: cookieSecure}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "email and password required")
	}

	res, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return h.respond(c, res)
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if claims, ok := auth.ClaimsFromContext(c); ok {
		if err := h.authService.Logout(c.UserContext(), claims.SessionID); err != nil {
			return err
		}
	}
	h.setCookie(c, "", time.Unix(0, 0))
	return c.SendStatus(http.StatusNoContent)
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	res, err := h.authService.Refresh(c.UserContext(), claims.SessionID)
	if err != nil {
		return err
	}
	return h.respond(c, res)
}

// ChangePassword handles POST /auth/password/change.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	var req dto.PasswordChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return fiber.NewError(http.StatusBadRequest, "current and new password required")
	}

	if err := h.authService.ChangePassword(c.UserContext(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "password_changed"}})
}

func (h *AuthHandler) respond(c *fiber.Ctx, res *service.SignInResult) error {
	h.setCookie(c, res.Token, res.Session.ExpiresAt)
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"staff": staffResponse(res.Staff),
			"auth": dto.AuthResponse{
				Token:     res.Token,
				SessionID: res.Session.ID,
				ExpiresAt: res.Session.ExpiresAt,
			},
		},
	})
}

func (h *AuthHandler) setCookie(c *fiber.Ctx, value string, expires time.Time) {
	if h.cookieName == "" {
		return
	}
	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   h.cookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
