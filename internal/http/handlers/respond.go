package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"rocktheauction/internal/domain"
	"rocktheauction/internal/log"
)

// statusOf maps an error kind to its HTTP status.
func statusOf(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return fiber.StatusBadRequest
	case domain.KindNotFound:
		return fiber.StatusNotFound
	case domain.KindConflict:
		return fiber.StatusConflict
	case domain.KindUnauthorized:
		return fiber.StatusUnauthorized
	}
	return fiber.StatusInternalServerError
}

// fail writes the JSON error envelope and logs the failure under action.
func fail(c *fiber.Ctx, action string, err error) error {
	status := statusOf(err)
	body := fiber.Map{"success": false, "error": err.Error()}
	var de *domain.Error
	if errors.As(err, &de) && len(de.Details) > 0 {
		body["errors"] = de.Details
	}
	c.Status(status)
	switch {
	case status >= fiber.StatusInternalServerError:
		log.Error(c, action, err, nil)
	case status == fiber.StatusUnauthorized:
		log.Security(c, action, map[string]any{"error": err.Error()})
	default:
		log.Info(c, action, map[string]any{"error": err.Error()})
	}
	return c.JSON(body)
}

// badRequest rejects malformed request input before it reaches a service.
func badRequest(c *fiber.Ctx, field, msg string) error {
	log.Security(c, "validation.fail", map[string]any{"field": field})
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": msg})
}

// ErrorHandler is the catch-all for errors returned by handlers and
// middleware; it keeps every failure inside the JSON envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		msg := fe.Message
		if fe.Code >= fiber.StatusInternalServerError {
			log.Error(c, "server.error", err, nil)
			msg = "something went wrong, please try again"
		}
		return c.Status(fe.Code).JSON(fiber.Map{"success": false, "error": msg})
	}
	return fail(c, "server.error", err)
}

// actor names the authenticated user for the event log.
func actor(c *fiber.Ctx) string {
	if id, ok := c.Locals("user_id").(string); ok {
		return id
	}
	return ""
}

// jsonBody decodes a JSON object body; an empty body is an empty object.
func jsonBody(c *fiber.Ctx) (map[string]any, error) {
	body := map[string]any{}
	if len(c.Body()) == 0 {
		return body, nil
	}
	if err := c.BodyParser(&body); err != nil {
		return nil, domain.Validation("request body must be a JSON object")
	}
	if body == nil {
		body = map[string]any{}
	}
	return body, nil
}

// parseInto decodes a JSON body into a typed input.
func parseInto(c *fiber.Ctx, v any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(v); err != nil {
		return domain.Validation("request body must be a JSON object")
	}
	return nil
}
