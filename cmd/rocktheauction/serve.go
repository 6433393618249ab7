package main

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rocktheauction/internal/http/handlers"
	applog "rocktheauction/internal/log"
	"rocktheauction/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		if rt.cfg.Seed {
			if err := rt.deps.Seeder.Seed(ctx); err != nil {
				return err
			}
		}

		app := newApp(rt)
		if every := rt.cfg.ReconcileInterval.Duration; every > 0 {
			go reconcileLoop(ctx, rt.deps.Catalogues, every)
		}
		go func() {
			<-ctx.Done()
			_ = app.ShutdownWithTimeout(5 * time.Second)
		}()

		applog.L().Info("server.start", zap.String("port", rt.cfg.Port))
		return app.Listen(":" + rt.cfg.Port)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func newApp(rt *process) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "rocktheauction",
		ErrorHandler: handlers.ErrorHandler,
		ReadTimeout:  rt.cfg.ReadTimeout.Duration,
		WriteTimeout: rt.cfg.WriteTimeout.Duration,
		// uploads need more than the JSON routes
		BodyLimit: 11 << 20,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.global.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"success": false, "error": "rate limit exceeded, retry soon"})
		},
	}))
	// request-scoped deadline for services and repositories
	if d := rt.cfg.WriteTimeout.Duration; d > 0 {
		app.Use(func(c *fiber.Ctx) error {
			ctx, cancel := context.WithTimeout(c.UserContext(), d)
			defer cancel()
			c.SetUserContext(ctx)
			return c.Next()
		})
	}

	handlers.Register(app, rt.deps)
	return app
}

func reconcileLoop(ctx context.Context, cats *services.CatalogueService, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			report, err := cats.Reconcile(ctx)
			if err != nil {
				applog.L().Error("catalogue.reconcile.error", zap.Error(err))
				continue
			}
			if len(report.Repaired) > 0 {
				applog.L().Warn("catalogue.reconcile.repaired",
					zap.Int("checked", report.Checked), zap.Strings("repaired", report.Repaired))
			}
		}
	}
}
