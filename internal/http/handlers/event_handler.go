package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"rocktheauction/internal/domain"
	"rocktheauction/internal/repos"
	"rocktheauction/internal/validate"
)

type EventHandler struct {
	Events *repos.EventLogRepo
}

func (h *EventHandler) List(c *fiber.Ctx) error {
	f := repos.EventFilter{
		EntityType: strings.ToLower(strings.TrimSpace(c.Query("entityType"))),
		Limit:      validate.Limit(c.Query("limit"), 50, 200),
	}
	if raw := c.Query("entityId"); raw != "" {
		id, ok := validate.ID(raw)
		if !ok {
			return badRequest(c, "entityId", "invalid entity id")
		}
		f.EntityID = id
	}
	events, err := h.Events.List(c.UserContext(), f)
	if err != nil {
		return fail(c, "event.list.error", domain.Internal(err))
	}
	return c.JSON(fiber.Map{"success": true, "events": events})
}
