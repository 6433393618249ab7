package handlers

import (
	"github.com/gofiber/fiber/v2"

	"rocktheauction/internal/domain"
	"rocktheauction/internal/log"
	"rocktheauction/internal/services"
	"rocktheauction/internal/validate"
)

type AuthHandler struct {
	Auth *services.AuthService
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseInto(c, &req); err != nil {
		return fail(c, "auth.login.fail", err)
	}
	email, ok := validate.Email(req.Email)
	if !ok {
		return badRequest(c, "email", "enter a valid email address")
	}
	if !validate.Password(req.Password) {
		return loginDenied(c, map[string]any{"email": email, "reason": "bad_password_format"})
	}
	token, u, err := h.Auth.Login(c.UserContext(), email, req.Password)
	if domain.IsKind(err, domain.KindUnauthorized) {
		return loginDenied(c, map[string]any{"email": email})
	}
	if err != nil {
		return fail(c, "auth.login.error", err)
	}
	c.Locals("user_id", u.ID)
	log.Audit(c, "auth.login.success", map[string]any{"email": email})
	return c.JSON(fiber.Map{"success": true, "token": token})
}

func loginDenied(c *fiber.Ctx, fields map[string]any) error {
	c.Status(fiber.StatusUnauthorized)
	log.Security(c, "auth.login.fail", fields)
	return c.JSON(fiber.Map{"success": false, "error": services.ErrBadCreds.Error()})
}
