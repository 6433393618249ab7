package handlers

import (
	"github.com/gofiber/fiber/v2"

	"rocktheauction/internal/domain"
	"rocktheauction/internal/log"
	"rocktheauction/internal/services"
	"rocktheauction/internal/validate"
)

type AuctionHandler struct {
	Auctions *services.AuctionService
}

// idOrSlug accepts either form of auction reference from the path.
func idOrSlug(c *fiber.Ctx) (string, bool) {
	raw := c.Params("idOrSlug")
	if id, ok := validate.ID(raw); ok {
		return id, true
	}
	return validate.Slug(raw)
}

func (h *AuctionHandler) List(c *fiber.Ctx) error {
	page := validate.Page(c.Query("page"))
	limit := validate.Limit(c.Query("limit"), services.DefaultPageSize, services.MaxPageSize)
	res, err := h.Auctions.List(c.UserContext(), page, limit)
	if err != nil {
		return fail(c, "auction.list.error", err)
	}
	return c.JSON(fiber.Map{"success": true, "auctions": res.Auctions, "pagination": res.Pagination})
}

func (h *AuctionHandler) Get(c *fiber.Ctx) error {
	ref, ok := idOrSlug(c)
	if !ok {
		return fail(c, "auction.get.fail", domain.NotFound("auction not found"))
	}
	a, err := h.Auctions.Get(c.UserContext(), ref)
	if err != nil {
		return fail(c, "auction.get.fail", err)
	}
	return c.JSON(fiber.Map{"success": true, "auction": a})
}

func (h *AuctionHandler) Create(c *fiber.Ctx) error {
	var in services.AuctionInput
	if err := parseInto(c, &in); err != nil {
		return fail(c, "auction.create.fail", err)
	}
	a, err := h.Auctions.Create(c.UserContext(), actor(c), in)
	if err != nil {
		return fail(c, "auction.create.fail", err)
	}
	log.Audit(c, "auction.create", map[string]any{"auction_id": a.ID, "slug": a.Slug})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "auction": a})
}

func (h *AuctionHandler) Update(c *fiber.Ctx) error {
	ref, ok := idOrSlug(c)
	if !ok {
		return fail(c, "auction.update.fail", domain.NotFound("auction not found"))
	}
	var in services.AuctionInput
	if err := parseInto(c, &in); err != nil {
		return fail(c, "auction.update.fail", err)
	}
	a, err := h.Auctions.Update(c.UserContext(), actor(c), ref, in)
	if err != nil {
		return fail(c, "auction.update.fail", err)
	}
	log.Audit(c, "auction.update", map[string]any{"auction_id": a.ID})
	return c.JSON(fiber.Map{"success": true, "auction": a})
}

func (h *AuctionHandler) Delete(c *fiber.Ctx) error {
	ref, ok := idOrSlug(c)
	if !ok {
		return fail(c, "auction.delete.fail", domain.NotFound("auction not found"))
	}
	if err := h.Auctions.Delete(c.UserContext(), actor(c), ref); err != nil {
		return fail(c, "auction.delete.fail", err)
	}
	log.Audit(c, "auction.delete", map[string]any{"auction": ref})
	return c.JSON(fiber.Map{"success": true, "message": "Auction deleted"})
}
