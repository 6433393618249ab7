package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"rocktheauction/internal/domain"
	"rocktheauction/internal/log"
	"rocktheauction/internal/services"
	"rocktheauction/internal/validate"
)

type CatalogueHandler struct {
	Catalogues *services.CatalogueService
}

func (h *CatalogueHandler) List(c *fiber.Ctx) error {
	status := strings.ToLower(strings.TrimSpace(c.Query("status")))
	if status != "" && !domain.IsCatalogueStatus(status) {
		return badRequest(c, "status", "invalid status filter")
	}
	page := validate.Page(c.Query("page"))
	limit := validate.Limit(c.Query("limit"), services.DefaultPageSize, services.MaxPageSize)
	res, err := h.Catalogues.List(c.UserContext(), status, page, limit)
	if err != nil {
		return fail(c, "catalogue.list.error", err)
	}
	return c.JSON(fiber.Map{"success": true, "catalogues": res.Catalogues, "pagination": res.Pagination})
}

func (h *CatalogueHandler) Get(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, "catalogue.get.fail", domain.NotFound("catalogue not found"))
	}
	cat, err := h.Catalogues.Get(c.UserContext(), id)
	if err != nil {
		return fail(c, "catalogue.get.fail", err)
	}
	return c.JSON(fiber.Map{"success": true, "catalogue": cat})
}

func (h *CatalogueHandler) Create(c *fiber.Ctx) error {
	var in services.CatalogueInput
	if err := parseInto(c, &in); err != nil {
		return fail(c, "catalogue.create.fail", err)
	}
	cat, err := h.Catalogues.Create(c.UserContext(), actor(c), in)
	if err != nil {
		return fail(c, "catalogue.create.fail", err)
	}
	log.Audit(c, "catalogue.create", map[string]any{"catalogue_id": cat.ID})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "catalogue": cat})
}

func (h *CatalogueHandler) Update(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, "catalogue.update.fail", domain.NotFound("catalogue not found"))
	}
	var in services.CatalogueInput
	if err := parseInto(c, &in); err != nil {
		return fail(c, "catalogue.update.fail", err)
	}
	cat, err := h.Catalogues.Update(c.UserContext(), actor(c), id, in)
	if err != nil {
		return fail(c, "catalogue.update.fail", err)
	}
	log.Audit(c, "catalogue.update", map[string]any{"catalogue_id": id})
	return c.JSON(fiber.Map{"success": true, "catalogue": cat})
}

func (h *CatalogueHandler) Delete(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, "catalogue.delete.fail", domain.NotFound("catalogue not found"))
	}
	if err := h.Catalogues.Delete(c.UserContext(), actor(c), id); err != nil {
		return fail(c, "catalogue.delete.fail", err)
	}
	log.Audit(c, "catalogue.delete", map[string]any{"catalogue_id": id})
	return c.JSON(fiber.Map{"success": true, "message": "Catalogue deleted"})
}

// Recompute re-derives one catalogue's totalLots and estimatedValue.
func (h *CatalogueHandler) Recompute(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, "catalogue.recompute.fail", domain.NotFound("catalogue not found"))
	}
	m, err := h.Catalogues.RecomputeAggregate(c.UserContext(), id)
	if err != nil {
		return fail(c, "catalogue.recompute.fail", err)
	}
	log.Audit(c, "catalogue.recompute", map[string]any{"catalogue_id": id, "total_lots": m.TotalLots})
	return c.JSON(fiber.Map{"success": true, "metadata": m})
}

func (h *CatalogueHandler) Reconcile(c *fiber.Ctx) error {
	report, err := h.Catalogues.Reconcile(c.UserContext())
	if err != nil {
		return fail(c, "catalogue.reconcile.fail", err)
	}
	log.Audit(c, "catalogue.reconcile", map[string]any{"checked": report.Checked, "repaired": len(report.Repaired)})
	return c.JSON(fiber.Map{"success": true, "checked": report.Checked, "repaired": report.Repaired})
}
