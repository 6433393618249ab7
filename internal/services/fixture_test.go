package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rocktheauction/internal/domain"
	"rocktheauction/internal/eventlog"
	"rocktheauction/internal/repos"
	"rocktheauction/internal/services"
)

type fixture struct {
	lotRepo     *repos.LotRepo
	catRepo     *repos.CatalogueRepo
	auctionRepo *repos.AuctionRepo
	eventRepo   *repos.EventLogRepo
	users       *repos.UserRepo

	lots     *services.LotService
	cats     *services.CatalogueService
	auctions *services.AuctionService
}

// newFixture wires the services over an in-memory database; extra sinks are
// appended after the SQL event log.
func newFixture(t *testing.T, extra ...eventlog.Sink) fixture {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := fixture{
		lotRepo:     repos.NewLotRepo(db),
		catRepo:     repos.NewCatalogueRepo(db),
		auctionRepo: repos.NewAuctionRepo(db),
		eventRepo:   repos.NewEventLogRepo(db),
		users:       repos.NewUserRepo(db),
	}
	events := append(eventlog.Fanout{f.eventRepo}, extra...)
	f.cats = services.NewCatalogueService(f.catRepo, f.lotRepo, events)
	f.lots = services.NewLotService(f.lotRepo, f.catRepo, f.auctionRepo, f.cats, events, 32, time.Minute)
	f.auctions = services.NewAuctionService(f.auctionRepo, f.lotRepo, events)
	return f
}

func (f fixture) catalogue(t *testing.T, title string) string {
	t.Helper()
	c, err := f.cats.Create(context.Background(), "tester", services.CatalogueInput{Title: &title})
	require.NoError(t, err)
	return c.ID
}

func (f fixture) auction(t *testing.T, title string) string {
	t.Helper()
	start := time.Date(2027, 3, 14, 10, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)
	a, err := f.auctions.Create(context.Background(), "tester", services.AuctionInput{Title: &title, StartAt: &start, EndAt: &end})
	require.NoError(t, err)
	return a.ID
}

func (f fixture) lot(t *testing.T, body map[string]any) domain.Lot {
	t.Helper()
	l, err := f.lots.Create(context.Background(), "tester", body)
	require.NoError(t, err)
	return l
}

func (f fixture) metadata(t *testing.T, catalogueID string) domain.CatalogueMetadata {
	t.Helper()
	c, err := f.cats.Get(context.Background(), catalogueID)
	require.NoError(t, err)
	return c.Metadata
}

type failingSink struct{}

func (failingSink) Append(context.Context, domain.EventLogEntry) error {
	return errors.New("event store unavailable")
}
