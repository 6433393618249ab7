package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	applog "rocktheauction/internal/log"
)

// Register mounts every route at the root and again under /api/v1.
func Register(app *fiber.App, d *Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	d.mount(app)
	d.mount(app.Group("/api/v1"))
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "error": "route not found"})
	})
}

func (d *Deps) mount(r fiber.Router) {
	admin := RequireAdmin(d.Auth)

	// login throttled per IP
	r.Post("/auth/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"success": false, "error": "too many attempts, try again later"})
		},
	}), d.AuthHandler.Login)

	r.Get("/lots", d.LotHandler.List)
	r.Get("/lots/search", limiter.New(limiter.Config{Max: 30, Expiration: time.Minute}), d.LotHandler.Search)
	r.Get("/lots/:id", d.LotHandler.Get)
	r.Post("/lots", admin, d.LotHandler.Create)
	r.Patch("/lots/:id", admin, d.LotHandler.Update)
	r.Delete("/lots/:id", admin, d.LotHandler.Delete)

	r.Get("/catalogues", d.CatalogueHandler.List)
	r.Post("/catalogues/reconcile", admin, d.CatalogueHandler.Reconcile)
	r.Post("/catalogues", admin, d.CatalogueHandler.Create)
	r.Get("/catalogues/:id", d.CatalogueHandler.Get)
	r.Patch("/catalogues/:id", admin, d.CatalogueHandler.Update)
	r.Delete("/catalogues/:id", admin, d.CatalogueHandler.Delete)
	r.Post("/catalogues/:id/recompute", admin, d.CatalogueHandler.Recompute)

	r.Get("/auctions", d.AuctionHandler.List)
	r.Post("/auctions", admin, d.AuctionHandler.Create)
	r.Get("/auctions/:idOrSlug", d.AuctionHandler.Get)
	r.Patch("/auctions/:idOrSlug", admin, d.AuctionHandler.Update)
	r.Delete("/auctions/:idOrSlug", admin, d.AuctionHandler.Delete)

	r.Get("/events", d.EventHandler.List)
	r.Post("/uploads", admin, d.MediaHandler.Upload)
}
