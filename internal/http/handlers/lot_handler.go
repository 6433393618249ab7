package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"rocktheauction/internal/domain"
	"rocktheauction/internal/log"
	"rocktheauction/internal/repos"
	"rocktheauction/internal/services"
	"rocktheauction/internal/validate"
)

type LotHandler struct {
	Lots *services.LotService
}

func (h *LotHandler) List(c *fiber.Ctx) error {
	f := repos.LotFilter{
		Status:   strings.ToLower(strings.TrimSpace(c.Query("status"))),
		Category: strings.TrimSpace(c.Query("category")),
		Sort:     strings.TrimSpace(c.Query("sort")),
		Page:     validate.Page(c.Query("page")),
		Limit:    validate.Limit(c.Query("limit"), services.DefaultPageSize, services.MaxPageSize),
	}
	if raw := c.Query("catalogue"); raw != "" {
		id, ok := validate.ID(raw)
		if !ok {
			return badRequest(c, "catalogue", "invalid catalogue id")
		}
		f.CatalogueID = id
	}
	if raw := c.Query("auction"); raw != "" {
		id, ok := validate.ID(raw)
		if !ok {
			return badRequest(c, "auction", "invalid auction id")
		}
		f.AuctionID = id
	}
	if f.Status != "" && !domain.IsLotStatus(f.Status) {
		return badRequest(c, "status", "invalid status filter")
	}
	if !repos.ValidLotSort(f.Sort) {
		return badRequest(c, "sort", "invalid sort")
	}
	page, err := h.Lots.List(c.UserContext(), f)
	if err != nil {
		return fail(c, "lot.list.error", err)
	}
	return c.JSON(fiber.Map{"success": true, "lots": page.Lots, "pagination": page.Pagination})
}

func (h *LotHandler) Search(c *fiber.Ctx) error {
	q, ok := validate.Q(c.Query("q"))
	if !ok {
		return badRequest(c, "q", "enter a valid keyword (letters/numbers only)")
	}
	lots, err := h.Lots.Search(c.UserContext(), q, validate.Limit(c.Query("limit"), services.DefaultPageSize, services.MaxPageSize))
	if err != nil {
		return fail(c, "lot.search.error", err)
	}
	return c.JSON(fiber.Map{"success": true, "lots": lots})
}

func (h *LotHandler) Get(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, "lot.get.fail", domain.NotFound("lot not found"))
	}
	l, err := h.Lots.Get(c.UserContext(), id)
	if err != nil {
		return fail(c, "lot.get.fail", err)
	}
	return c.JSON(fiber.Map{"success": true, "lot": l})
}

func (h *LotHandler) Create(c *fiber.Ctx) error {
	body, err := jsonBody(c)
	if err != nil {
		return fail(c, "lot.create.fail", err)
	}
	l, err := h.Lots.Create(c.UserContext(), actor(c), body)
	if err != nil {
		return fail(c, "lot.create.fail", err)
	}
	log.Audit(c, "lot.create", map[string]any{"lot_id": l.ID, "lot_number": l.LotNumber, "catalogue_id": l.CatalogueID})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "lot": l})
}

func (h *LotHandler) Update(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, "lot.update.fail", domain.NotFound("lot not found"))
	}
	body, err := jsonBody(c)
	if err != nil {
		return fail(c, "lot.update.fail", err)
	}
	l, err := h.Lots.Update(c.UserContext(), actor(c), id, body)
	if err != nil {
		return fail(c, "lot.update.fail", err)
	}
	log.Audit(c, "lot.update", map[string]any{"lot_id": id})
	return c.JSON(fiber.Map{"success": true, "data": l})
}

func (h *LotHandler) Delete(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, "lot.delete.fail", domain.NotFound("lot not found"))
	}
	if err := h.Lots.Delete(c.UserContext(), actor(c), id); err != nil {
		return fail(c, "lot.delete.fail", err)
	}
	log.Audit(c, "lot.delete", map[string]any{"lot_id": id})
	return c.JSON(fiber.Map{"success": true, "message": "Lot deleted"})
}
