package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rocktheauction/internal/domain"
	"rocktheauction/internal/repos"
	"rocktheauction/internal/services"
)

func TestReconcileRepairsDriftedAggregates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clean := f.catalogue(t, "Clean")
	drifted := f.catalogue(t, "Drifted")
	f.lot(t, map[string]any{"catalogue": clean, "lotNumber": "1", "title": "A", "estimateHigh": 40})
	f.lot(t, map[string]any{"catalogue": drifted, "lotNumber": "1", "title": "B", "estimateHigh": 60})

	require.NoError(t, f.catRepo.SetAggregate(ctx, drifted, domain.CatalogueMetadata{TotalLots: 7, EstimatedValue: 999}, time.Now()))

	f.cats.Workers = 2
	report, err := f.cats.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, []string{drifted}, report.Repaired)
	assert.Equal(t, domain.CatalogueMetadata{TotalLots: 1, EstimatedValue: 60}, f.metadata(t, drifted))

	events, err := f.eventRepo.List(ctx, repos.EventFilter{EntityType: domain.EntityCatalogue, EntityID: drifted})
	require.NoError(t, err)
	require.Equal(t, domain.ActionReconcile, events[0].Action)
	assert.Equal(t, 7.0, events[0].Previous["totalLots"])
	assert.Equal(t, 1.0, events[0].Changes["totalLots"])

	report, err = f.cats.Reconcile(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Repaired)
}

func TestCatalogueCRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty := ""
	_, err := f.cats.Create(ctx, "tester", services.CatalogueInput{Title: &empty})
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	id := f.catalogue(t, "Autumn")
	c, err := f.cats.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.CatalogueDraft, c.Status)
	assert.Empty(t, c.Lots)

	status, loc := "published", "Hall A"
	date := time.Date(2027, 9, 1, 0, 0, 0, 0, time.UTC)
	c, err = f.cats.Update(ctx, "tester", id, services.CatalogueInput{Status: &status, Location: &loc, AuctionDate: &date})
	require.NoError(t, err)
	assert.Equal(t, "Autumn", c.Title)
	assert.Equal(t, "published", c.Status)

	bad := "closed"
	_, err = f.cats.Update(ctx, "tester", id, services.CatalogueInput{Status: &bad})
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	page, err := f.cats.List(ctx, "published", 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Catalogues, 1)
	assert.Equal(t, "Hall A", page.Catalogues[0].Location)

	require.NoError(t, f.cats.Delete(ctx, "tester", id))
	_, err = f.cats.Get(ctx, id)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestCatalogueDeleteRefusedWhileLotsRemain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.catalogue(t, "Spring")
	l := f.lot(t, map[string]any{"catalogue": id, "lotNumber": "1", "title": "A"})

	err := f.cats.Delete(ctx, "tester", id)
	assert.True(t, domain.IsKind(err, domain.KindConflict))

	require.NoError(t, f.lots.Delete(ctx, "tester", l.ID))
	assert.NoError(t, f.cats.Delete(ctx, "tester", id))
}

func TestCatalogueKeepsLotOrder(t *testing.T) {
	f := newFixture(t)
	id := f.catalogue(t, "Spring")
	var want []string
	for _, n := range []string{"3", "1", "2"} {
		want = append(want, f.lot(t, map[string]any{"catalogue": id, "lotNumber": n, "title": "Lot " + n}).ID)
	}
	c, err := f.cats.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, want, c.Lots)
}
