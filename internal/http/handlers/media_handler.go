package handlers

import (
	"github.com/gofiber/fiber/v2"

	"rocktheauction/internal/log"
	"rocktheauction/internal/media"
)

const maxUploadBytes = 10 << 20

type MediaHandler struct {
	// Uploader is nil when no bucket is configured.
	Uploader media.Uploader
}

func (h *MediaHandler) Upload(c *fiber.Ctx) error {
	if h.Uploader == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"success": false, "error": media.ErrDisabled.Error()})
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "file", "multipart field \"file\" is required")
	}
	if fh.Size > maxUploadBytes {
		return badRequest(c, "file", "file is larger than 10 MiB")
	}
	if _, err := media.Key(fh.Filename); err != nil {
		return badRequest(c, "file", err.Error())
	}
	f, err := fh.Open()
	if err != nil {
		log.Error(c, "media.upload.error", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "could not read upload"})
	}
	defer f.Close()

	url, err := h.Uploader.Upload(c.UserContext(), fh.Filename, fh.Header.Get(fiber.HeaderContentType), f)
	if err != nil {
		log.Error(c, "media.upload.error", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": err.Error()})
	}
	log.Audit(c, "media.upload", map[string]any{"url": url, "size": fh.Size})
	return c.JSON(fiber.Map{"success": true, "url": url})
}
