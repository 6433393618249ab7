package services_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rocktheauction/internal/domain"
	"rocktheauction/internal/repos"
	"rocktheauction/internal/services"
)

func TestRecomputeIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.catalogue(t, "Spring")
	f.lot(t, map[string]any{"catalogue": cat, "lotNumber": "1", "title": "A", "estimateHigh": 250})
	f.lot(t, map[string]any{"catalogue": cat, "lotNumber": "2", "title": "B", "estimateHigh": 125.5})

	first, err := f.cats.RecomputeAggregate(ctx, cat)
	require.NoError(t, err)
	second, err := f.cats.RecomputeAggregate(ctx, cat)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, domain.CatalogueMetadata{TotalLots: 2, EstimatedValue: 375.5}, second)
	assert.Equal(t, second, f.metadata(t, cat))
}

func TestRecomputeUnknownCatalogue(t *testing.T) {
	f := newFixture(t)
	_, err := f.cats.RecomputeAggregate(context.Background(), "missing")
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestLotNumberUniqueWithinScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.catalogue(t, "Shared catalogue")
	a1 := f.auction(t, "Evening sale")
	a2 := f.auction(t, "Morning sale")

	f.lot(t, map[string]any{"catalogue": cat, "auctionId": a1, "lotNumber": "1", "title": "A"})
	f.lot(t, map[string]any{"catalogue": cat, "auctionId": a2, "lotNumber": "1", "title": "B"})

	_, err := f.lots.Create(ctx, "tester", map[string]any{"catalogue": cat, "auctionId": a1, "lotNumber": "1", "title": "C"})
	assert.True(t, domain.IsKind(err, domain.KindConflict), "got %v", err)

	// no auction and no catalogue: nothing to collide with
	f.lot(t, map[string]any{"lotNumber": "9", "title": "Loose"})
	f.lot(t, map[string]any{"lotNumber": "9", "title": "Also loose"})

	other := f.catalogue(t, "Other catalogue")
	f.lot(t, map[string]any{"catalogue": other, "lotNumber": "5", "title": "D"})
	_, err = f.lots.Create(ctx, "tester", map[string]any{"catalogue": other, "lotNumber": "5", "title": "E"})
	assert.True(t, domain.IsKind(err, domain.KindConflict))
}

func TestUniqueIndexBacksProactiveCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.catalogue(t, "Spring")
	l := f.lot(t, map[string]any{"catalogue": cat, "lotNumber": "1", "title": "A"})

	dup := l
	dup.ID = "another-id"
	dup.Title = "Racer"
	err := f.lotRepo.Insert(ctx, dup)
	assert.ErrorIs(t, err, repos.ErrDuplicateKey)
}

func TestRenameToTakenNumberLeavesLotUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.catalogue(t, "Spring")
	f.lot(t, map[string]any{"catalogue": cat, "lotNumber": "1", "title": "A"})
	second := f.lot(t, map[string]any{"catalogue": cat, "lotNumber": "2", "title": "B"})

	_, err := f.lots.Update(ctx, "tester", second.ID, map[string]any{"lotNumber": "1"})
	require.True(t, domain.IsKind(err, domain.KindConflict))

	got, err := f.lots.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "2", got.LotNumber)

	// keeping its own number is not a conflict
	_, err = f.lots.Update(ctx, "tester", second.ID, map[string]any{"lotNumber": "2", "title": "B2"})
	assert.NoError(t, err)
}

func TestCreateValidationPersistsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.catalogue(t, "Spring")

	_, err := f.lots.Create(ctx, "tester", map[string]any{
		"catalogue": cat, "lotNumber": "1", "title": "A", "startingBid": 100, "reservePrice": 50,
	})
	require.True(t, domain.IsKind(err, domain.KindValidation))
	assert.Equal(t, "reservePrice must be at least startingBid", err.Error())

	n, err := f.lotRepo.CountByCatalogue(ctx, cat)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, domain.CatalogueMetadata{}, f.metadata(t, cat))
}

func TestValidationAccumulatesEveryRule(t *testing.T) {
	f := newFixture(t)
	_, err := f.lots.Create(context.Background(), "tester", map[string]any{
		"estimateLow": 500, "estimateHigh": 100, "status": "archived",
	})
	require.True(t, domain.IsKind(err, domain.KindValidation))
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Contains(t, de.Details, "lotNumber is required")
	assert.Contains(t, de.Details, "title is required")
	assert.Contains(t, de.Details, "estimateLow must not exceed estimateHigh")
	assert.Len(t, de.Details, 4)
}

func TestDeleteRemovesLotFromAggregate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.catalogue(t, "Spring")
	a := f.lot(t, map[string]any{"catalogue": cat, "lotNumber": "1", "title": "A", "estimateHigh": 300})
	b := f.lot(t, map[string]any{"catalogue": cat, "lotNumber": "2", "title": "B", "estimateHigh": 100})

	require.NoError(t, f.lots.Delete(ctx, "tester", a.ID))

	c, err := f.cats.Get(ctx, cat)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, c.Lots)
	assert.Equal(t, domain.CatalogueMetadata{TotalLots: 1, EstimatedValue: 100}, c.Metadata)

	_, err = f.lots.Get(ctx, a.ID)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
	assert.True(t, domain.IsKind(f.lots.Delete(ctx, "tester", a.ID), domain.KindNotFound))

	events, err := f.eventRepo.List(ctx, repos.EventFilter{EntityType: domain.EntityLot, EntityID: a.ID})
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, domain.ActionDelete, events[0].Action)
	assert.Equal(t, "1", events[0].Previous["lotNumber"])
	assert.Equal(t, "A", events[0].Previous["title"])
}

func TestApprovalCoupling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.catalogue(t, "Spring")
	l := f.lot(t, map[string]any{"catalogue": cat, "lotNumber": "1", "title": "A"})
	assert.Equal(t, domain.ApprovalApproved, l.Approval.Status)

	l, err := f.lots.Update(ctx, "tester", l.ID, map[string]any{
		"requiresApproval": true, "approval": map[string]any{"status": "approved"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalPending, l.Approval.Status)

	l, err = f.lots.Update(ctx, "tester", l.ID, map[string]any{"requiresApproval": false})
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalApproved, l.Approval.Status)

	l, err = f.lots.Update(ctx, "tester", l.ID, map[string]any{
		"requiresApproval": false, "approval": map[string]any{"status": "pending", "notes": "check provenance"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalPending, l.Approval.Status)
	assert.Equal(t, "check provenance", l.Approval.Notes)

	_, err = f.lots.Update(ctx, "tester", l.ID, map[string]any{"approval": map[string]any{"status": "maybe"}})
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestUpdateIgnoresUnknownKeys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.catalogue(t, "Spring")
	other := f.catalogue(t, "Other")
	l := f.lot(t, map[string]any{"catalogue": cat, "lotNumber": "1", "title": "A"})

	got, err := f.lots.Update(ctx, "tester", l.ID, map[string]any{
		"id": "evil", "catalogue": other, "createdAt": "2001-01-01T00:00:00Z", "bogus": 1, "title": "  B ",
	})
	require.NoError(t, err)
	assert.Equal(t, l.ID, got.ID)
	assert.Equal(t, cat, got.CatalogueID)
	assert.Equal(t, "B", got.Title)
	assert.True(t, got.CreatedAt.Equal(l.CreatedAt))

	events, err := f.eventRepo.List(ctx, repos.EventFilter{EntityID: l.ID})
	require.NoError(t, err)
	require.Equal(t, domain.ActionUpdate, events[0].Action)
	assert.Equal(t, map[string]any{"title": "B"}, map[string]any(events[0].Changes))
	assert.ElementsMatch(t, []string{"lotNumber", "title", "sequence", "status"}, keys(events[0].Previous))
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestUpdateRecomputesOnlyWhenEstimateChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.catalogue(t, "Spring")
	l := f.lot(t, map[string]any{"catalogue": cat, "lotNumber": "1", "title": "A", "estimateHigh": 100})

	stale := domain.CatalogueMetadata{TotalLots: 99, EstimatedValue: 1}
	require.NoError(t, f.catRepo.SetAggregate(ctx, cat, stale, l.UpdatedAt))

	_, err := f.lots.Update(ctx, "tester", l.ID, map[string]any{"title": "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, stale, f.metadata(t, cat))

	_, err = f.lots.Update(ctx, "tester", l.ID, map[string]any{"estimateHigh": 180})
	require.NoError(t, err)
	assert.Equal(t, domain.CatalogueMetadata{TotalLots: 1, EstimatedValue: 180}, f.metadata(t, cat))
}

func TestCoercionAndDerivedFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.catalogue(t, "Spring")
	l := f.lot(t, map[string]any{
		"catalogue":    cat,
		"lotNumber":    12,
		"title":        "Boxed console",
		"description":  "<p>Mint &amp; <b>boxed</b></p>",
		"estimateHigh": "240",
		"startingBid":  "abc",
		"quantity":     -3,
		"condition":    "GOOD",
		"images":       "not-a-list",
		"featured":     "true",
	})
	assert.Equal(t, "12", l.LotNumber)
	assert.Equal(t, "Mint & boxed", l.DescriptionText)
	assert.Equal(t, 240.0, l.EstimateHigh)
	assert.Equal(t, 240.0, l.EstimatedValue)
	assert.Zero(t, l.StartingBid)
	assert.Zero(t, l.Quantity)
	assert.Equal(t, "good", l.Condition)
	assert.Empty(t, l.Images)
	assert.True(t, l.Featured)
	assert.Equal(t, domain.LotDraft, l.Status)

	got, err := f.lots.Update(ctx, "tester", l.ID, map[string]any{"description": "<h2>Sealed</h2>"})
	require.NoError(t, err)
	assert.Equal(t, "Sealed", got.DescriptionText)
}

func TestEventLogFailureAfterWriteIsInternal(t *testing.T) {
	f := newFixture(t, failingSink{})
	ctx := context.Background()
	title := "Spring"
	c, err := f.cats.Create(ctx, "tester", services.CatalogueInput{Title: &title})
	require.True(t, domain.IsKind(err, domain.KindInternal))
	require.NotEmpty(t, c.ID)

	l, err := f.lots.Create(ctx, "tester", map[string]any{"catalogue": c.ID, "lotNumber": "1", "title": "A", "estimateHigh": 50})
	assert.True(t, domain.IsKind(err, domain.KindInternal))

	// the write and the aggregate are not undone
	stored, err := f.lotRepo.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", stored.Title)
	assert.Equal(t, domain.CatalogueMetadata{TotalLots: 1, EstimatedValue: 50}, f.metadata(t, c.ID))

	events, err := f.eventRepo.List(ctx, repos.EventFilter{EntityID: l.ID})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestGetCacheIsInvalidatedOnUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.catalogue(t, "Spring")
	l := f.lot(t, map[string]any{"catalogue": cat, "lotNumber": "1", "title": "Before"})

	got, err := f.lots.Get(ctx, l.ID)
	require.NoError(t, err)
	require.Equal(t, "Before", got.Title)

	_, err = f.lots.Update(ctx, "tester", l.ID, map[string]any{"title": "After"})
	require.NoError(t, err)
	got, err = f.lots.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "After", got.Title)
}

func TestListFiltersAndSorts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.catalogue(t, "Spring")
	f.lot(t, map[string]any{"catalogue": cat, "lotNumber": "1", "title": "A", "estimateHigh": 10, "status": "published"})
	f.lot(t, map[string]any{"catalogue": cat, "lotNumber": "2", "title": "B", "estimateHigh": 30, "status": "published"})
	f.lot(t, map[string]any{"catalogue": cat, "lotNumber": "3", "title": "C", "estimateHigh": 20})

	page, err := f.lots.List(ctx, repos.LotFilter{CatalogueID: cat, Status: "published", Sort: "-estimateHigh"})
	require.NoError(t, err)
	require.Len(t, page.Lots, 2)
	assert.Equal(t, "2", page.Lots[0].LotNumber)
	assert.Equal(t, 2, page.Pagination.Total)
	assert.Equal(t, 1, page.Pagination.Pages)
}

func TestSearchRanksByTitle(t *testing.T) {
	f := newFixture(t)
	cat := f.catalogue(t, "Spring")
	f.lot(t, map[string]any{"catalogue": cat, "lotNumber": "1", "title": "Commodore Amiga 500", "category": "computers"})
	f.lot(t, map[string]any{"catalogue": cat, "lotNumber": "2", "title": "Game Boy", "category": "consoles"})

	got, err := f.lots.Search(context.Background(), "amiga", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].LotNumber)
}

func TestUpdateRejectsEmptyStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.catalogue(t, "Spring")
	l := f.lot(t, map[string]any{"catalogue": cat, "lotNumber": "1", "title": "A", "status": "published"})

	for name, raw := range map[string]any{"empty": "", "blank": "   ", "null": nil} {
		t.Run(name, func(t *testing.T) {
			_, err := f.lots.Update(ctx, "tester", l.ID, map[string]any{"status": raw})
			require.Error(t, err)
			assert.True(t, domain.IsKind(err, domain.KindValidation), "got %v", err)
			assert.Contains(t, err.Error(), "status must be one of")

			stored, err := f.lotRepo.Get(ctx, l.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.LotPublished, stored.Status)
		})
	}
}

func TestCreateStatusDefaultsToDraftButRejectsEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.catalogue(t, "Spring")

	l := f.lot(t, map[string]any{"catalogue": cat, "lotNumber": "1", "title": "A"})
	assert.Equal(t, domain.LotDraft, l.Status)

	_, err := f.lots.Create(ctx, "tester", map[string]any{"catalogue": cat, "lotNumber": "2", "title": "B", "status": nil})
	assert.True(t, domain.IsKind(err, domain.KindValidation), "got %v", err)
	n, err := f.lotRepo.CountByCatalogue(ctx, cat)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCachedGetSeesOtherInstanceWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.catalogue(t, "Spring")
	l := f.lot(t, map[string]any{"catalogue": cat, "lotNumber": "1", "title": "Vase"})

	// a second process over the same store
	other := services.NewLotService(f.lotRepo, f.catRepo, f.auctionRepo, f.cats, f.eventRepo, 8, 50*time.Millisecond)
	got, err := other.Get(ctx, l.ID)
	require.NoError(t, err)
	require.Equal(t, "Vase", got.Title)

	_, err = f.lots.Update(ctx, "tester", l.ID, map[string]any{"title": "Urn"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := other.Get(ctx, l.ID)
		return err == nil && got.Title == "Urn"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestApprovalEventRecordsStoredStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.catalogue(t, "Spring")
	l := f.lot(t, map[string]any{"catalogue": cat, "lotNumber": "1", "title": "A"})

	_, err := f.lots.Update(ctx, "tester", l.ID, map[string]any{
		"requiresApproval": true, "approval": map[string]any{"status": "approved", "notes": "ok"},
	})
	require.NoError(t, err)

	events, err := f.eventRepo.List(ctx, repos.EventFilter{EntityType: domain.EntityLot, EntityID: l.ID})
	require.NoError(t, err)
	require.Equal(t, domain.ActionUpdate, events[0].Action)
	approval, ok := events[0].Changes["approval"].(map[string]any)
	require.True(t, ok, "changes: %v", events[0].Changes)
	assert.Equal(t, domain.ApprovalPending, approval["status"])
	assert.Equal(t, "ok", approval["notes"])
}

func TestWholeNumberFieldsSaturate(t *testing.T) {
	f := newFixture(t)
	cat := f.catalogue(t, "Spring")
	l := f.lot(t, map[string]any{"catalogue": cat, "lotNumber": "1", "title": "A", "quantity": 1e20, "sequence": 2.7})
	assert.Equal(t, math.MaxInt32, l.Quantity)
	assert.Equal(t, 2, l.Sequence)

	l = f.lot(t, map[string]any{"catalogue": cat, "lotNumber": "2", "title": "B", "quantity": "4.9", "sequence": -1e20})
	assert.Equal(t, 4, l.Quantity)
	assert.Zero(t, l.Sequence)
}
