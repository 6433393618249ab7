package handlers

import (
	"github.com/jmoiron/sqlx"

	"rocktheauction/internal/config"
	"rocktheauction/internal/eventlog"
	"rocktheauction/internal/media"
	"rocktheauction/internal/repos"
	"rocktheauction/internal/services"
)

type Deps struct {
	LotHandler       *LotHandler
	CatalogueHandler *CatalogueHandler
	AuctionHandler   *AuctionHandler
	EventHandler     *EventHandler
	AuthHandler      *AuthHandler
	MediaHandler     *MediaHandler

	Auth       *services.AuthService
	Catalogues *services.CatalogueService
	Seeder     *services.Seeder
}

// NewDeps wires repositories and services. Every audit entry goes to the SQL
// event log first and then to extra, which may be nil.
func NewDeps(db *sqlx.DB, cfg config.Config, extra eventlog.Sink, uploader media.Uploader) *Deps {
	lotRepo := repos.NewLotRepo(db)
	catRepo := repos.NewCatalogueRepo(db)
	aucRepo := repos.NewAuctionRepo(db)
	eventRepo := repos.NewEventLogRepo(db)
	userRepo := repos.NewUserRepo(db)

	events := eventlog.Fanout{eventRepo, extra}

	catSvc := services.NewCatalogueService(catRepo, lotRepo, events)
	if cfg.ReconcileWorkers > 0 {
		catSvc.Workers = cfg.ReconcileWorkers
	}
	lotSvc := services.NewLotService(lotRepo, catRepo, aucRepo, catSvc, events, cfg.CacheSize, cfg.CacheTTL.Duration)
	aucSvc := services.NewAuctionService(aucRepo, lotRepo, events)
	authSvc := services.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL.Duration)

	return &Deps{
		LotHandler:       &LotHandler{Lots: lotSvc},
		CatalogueHandler: &CatalogueHandler{Catalogues: catSvc},
		AuctionHandler:   &AuctionHandler{Auctions: aucSvc},
		EventHandler:     &EventHandler{Events: eventRepo},
		AuthHandler:      &AuthHandler{Auth: authSvc},
		MediaHandler:     &MediaHandler{Uploader: uploader},

		Auth:       authSvc,
		Catalogues: catSvc,
		Seeder:     &services.Seeder{Auctions: aucSvc, Catalogues: catSvc, Lots: lotSvc},
	}
}
