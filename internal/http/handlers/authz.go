package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"rocktheauction/internal/domain"
	applog "rocktheauction/internal/log"
	"rocktheauction/internal/services"
)

// RequireAdmin accepts "Authorization: Bearer <token>" carrying the ADMIN
// role. Missing or invalid tokens get 401, other roles 403.
func RequireAdmin(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		h := c.Get(fiber.HeaderAuthorization)
		tok, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || strings.TrimSpace(tok) == "" {
			applog.Security(c, "access.denied.no_token", nil)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "error": "authentication required"})
		}
		claims, err := auth.ParseToken(strings.TrimSpace(tok))
		if err != nil {
			applog.Security(c, "access.denied.bad_token", nil)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "error": "invalid token"})
		}
		c.Locals("user_id", claims.UserID)
		if claims.Role != domain.RoleAdmin {
			applog.Security(c, "access.denied.admin", map[string]any{"role": claims.Role})
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "error": "access denied"})
		}
		return c.Next()
	}
}
