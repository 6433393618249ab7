package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sahilm/fuzzy"

	"rocktheauction/internal/domain"
	"rocktheauction/internal/eventlog"
	"rocktheauction/internal/repos"
	"rocktheauction/internal/validate"
)

type LotService struct {
	Lots       *repos.LotRepo
	Catalogues *repos.CatalogueRepo
	Auctions   *repos.AuctionRepo
	Aggregates *CatalogueService
	Events     eventlog.Sink
	Now        func() time.Time

	cache *expirable.LRU[string, domain.Lot]
	// writes counts lot writes; a Get that raced one does not cache its row
	writes atomic.Uint64
}

// DefaultCacheTTL bounds how long Get may serve a lot written by another
// process.
const DefaultCacheTTL = 30 * time.Second

func NewLotService(lots *repos.LotRepo, cats *repos.CatalogueRepo, auctions *repos.AuctionRepo,
	aggregates *CatalogueService, events eventlog.Sink, cacheSize int, cacheTTL time.Duration) *LotService {
	s := &LotService{
		Lots:       lots,
		Catalogues: cats,
		Auctions:   auctions,
		Aggregates: aggregates,
		Events:     events,
		Now:        utcNow,
	}
	if cacheSize > 0 {
		if cacheTTL <= 0 {
			cacheTTL = DefaultCacheTTL
		}
		s.cache = expirable.NewLRU[string, domain.Lot](cacheSize, nil, cacheTTL)
	}
	return s
}

// Create validates and stores a new lot, attaches it to its catalogue and
// refreshes that catalogue's aggregate.
func (s *LotService) Create(ctx context.Context, actor string, body map[string]any) (domain.Lot, error) {
	l := domain.Lot{
		Quantity:  1,
		Status:    domain.LotDraft,
		Approval:  domain.Approval{Status: domain.ApprovalApproved},
		Images:    domain.StringList{},
		Documents: domain.StringList{},
	}
	payload := applyLotFields(&l, body)
	l.CatalogueID = firstString(body, "catalogue", "catalogueId")
	l.AuctionID = toString(body["auctionId"])

	if err := s.validate(l); err != nil {
		return l, err
	}
	if l.CatalogueID != "" {
		ok, err := s.Catalogues.Exists(ctx, l.CatalogueID)
		if err != nil {
			return l, domain.Internal(err)
		}
		if !ok {
			return l, domain.NotFound("catalogue %s not found", l.CatalogueID)
		}
	}
	if l.AuctionID != "" {
		ok, err := s.Auctions.Exists(ctx, l.AuctionID)
		if err != nil {
			return l, domain.Internal(err)
		}
		if !ok {
			return l, domain.NotFound("auction %s not found", l.AuctionID)
		}
	}
	applyApprovalRule(&l, payload)
	clampLot(&l)
	l.SyncMirrors()
	if l.DescriptionText == "" {
		l.DescriptionText = plainText(l.Description)
	}
	now := s.Now()
	l.ID = uuid.NewString()
	l.CreatedAt, l.UpdatedAt = now, now

	if err := s.ensureNumberFree(ctx, l); err != nil {
		return l, err
	}
	if err := s.Lots.Insert(ctx, l); err != nil {
		return l, s.writeErr(l, err)
	}

	if l.CatalogueID != "" {
		if err := s.Catalogues.AppendLot(ctx, l.CatalogueID, l.ID); err != nil {
			return l, domain.Internal(fmt.Errorf("attach lot to catalogue: %w", err))
		}
		if _, err := s.Aggregates.RecomputeAggregate(ctx, l.CatalogueID); err != nil {
			return l, err
		}
	}

	e := eventlog.New(domain.EntityLot, l.ID, domain.ActionCreate, nil, payload)
	e.Actor = actor
	if err := s.Events.Append(ctx, e); err != nil {
		return l, domain.Internal(fmt.Errorf("append lot event: %w", err))
	}
	return l, nil
}

// Update applies a partial patch. Only allow-listed keys are read; the
// validator runs against the merged lot.
func (s *LotService) Update(ctx context.Context, actor, id string, body map[string]any) (domain.Lot, error) {
	existing, err := s.load(ctx, id)
	if err != nil {
		return domain.Lot{}, err
	}
	merged := existing
	payload := applyLotFields(&merged, body)

	if merged.LotNumber != existing.LotNumber {
		if err := s.ensureNumberFree(ctx, merged); err != nil {
			return existing, err
		}
	}
	applyApprovalRule(&merged, payload)
	if err := s.validate(merged); err != nil {
		return existing, err
	}
	clampLot(&merged)
	merged.SyncMirrors()
	if _, ok := payload["description"]; ok {
		if _, explicit := payload["descriptionText"]; !explicit {
			merged.DescriptionText = plainText(merged.Description)
		}
	}
	merged.UpdatedAt = s.Now()

	if err := s.Lots.Update(ctx, merged); err != nil {
		return existing, s.writeErr(merged, err)
	}
	s.forget(id)

	// previous carries the identifying fields only
	e := eventlog.New(domain.EntityLot, id, domain.ActionUpdate, map[string]any{
		"lotNumber": existing.LotNumber,
		"title":     existing.Title,
		"sequence":  existing.Sequence,
		"status":    existing.Status,
	}, payload)
	e.Actor = actor
	logErr := s.Events.Append(ctx, e)

	if merged.CatalogueID != "" && merged.AggregateValue() != existing.AggregateValue() {
		if _, err := s.Aggregates.RecomputeAggregate(ctx, merged.CatalogueID); err != nil {
			return merged, err
		}
	}
	if logErr != nil {
		return merged, domain.Internal(fmt.Errorf("append lot event: %w", logErr))
	}
	return merged, nil
}

// Delete removes the lot, pulls it from its catalogue and refreshes the
// catalogue aggregate.
func (s *LotService) Delete(ctx context.Context, actor, id string) error {
	l, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if l.CatalogueID != "" {
		if err := s.Catalogues.RemoveLot(ctx, l.CatalogueID, id); err != nil {
			return domain.Internal(fmt.Errorf("detach lot from catalogue: %w", err))
		}
	}
	if err := s.Lots.Delete(ctx, id); err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return domain.NotFound("lot %s not found", id)
		}
		return domain.Internal(err)
	}
	s.forget(id)
	if l.CatalogueID != "" {
		if _, err := s.Aggregates.RecomputeAggregate(ctx, l.CatalogueID); err != nil {
			return err
		}
	}
	e := eventlog.New(domain.EntityLot, id, domain.ActionDelete, map[string]any{
		"auctionId": l.AuctionID,
		"lotNumber": l.LotNumber,
		"title":     l.Title,
	}, nil)
	e.Actor = actor
	if err := s.Events.Append(ctx, e); err != nil {
		return domain.Internal(fmt.Errorf("append lot event: %w", err))
	}
	return nil
}

// Get serves from the read cache when possible.
func (s *LotService) Get(ctx context.Context, id string) (domain.Lot, error) {
	if s.cache != nil {
		if l, ok := s.cache.Get(id); ok {
			return l, nil
		}
	}
	epoch := s.writes.Load()
	l, err := s.load(ctx, id)
	if err != nil {
		return l, err
	}
	if s.cache != nil && s.writes.Load() == epoch {
		s.cache.Add(id, l)
	}
	return l, nil
}

type LotPage struct {
	Lots       []domain.Lot
	Pagination Pagination
}

func (s *LotService) List(ctx context.Context, f repos.LotFilter) (LotPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	lots, total, err := s.Lots.List(ctx, f)
	if err != nil {
		return LotPage{}, domain.Internal(err)
	}
	return LotPage{Lots: lots, Pagination: NewPagination(f.Page, f.Limit, total)}, nil
}

func (s *LotService) load(ctx context.Context, id string) (domain.Lot, error) {
	l, err := s.Lots.Get(ctx, id)
	if errors.Is(err, repos.ErrNotFound) {
		return l, domain.NotFound("lot %s not found", id)
	}
	if err != nil {
		return l, domain.Internal(err)
	}
	return l, nil
}

func (s *LotService) forget(id string) {
	s.writes.Add(1)
	if s.cache != nil {
		s.cache.Remove(id)
	}
}

func (s *LotService) validate(l domain.Lot) error {
	res := validate.LotFields(validate.LotInputOf(l))
	// a stored lot always has a status; an explicit empty one is rejected
	if l.Status == "" {
		res.Errors = append(res.Errors, "status must be one of "+strings.Join(domain.LotStatuses, ", "))
		res.Valid = false
	}
	if !domain.IsApprovalStatus(l.Approval.Status) {
		res.Errors = append(res.Errors, "approval.status must be pending or approved")
		res.Valid = false
	}
	return res.Err()
}

// ensureNumberFree is the proactive half of lotNumber uniqueness; the unique
// index catches whatever races past it.
func (s *LotService) ensureNumberFree(ctx context.Context, l domain.Lot) error {
	_, err := s.Lots.FindByNumber(ctx, l.Scope(), l.LotNumber, l.ID)
	switch {
	case errors.Is(err, repos.ErrNotFound):
		return nil
	case err != nil:
		return domain.Internal(err)
	}
	return duplicateNumber(l)
}

func (s *LotService) writeErr(l domain.Lot, err error) error {
	switch {
	case errors.Is(err, repos.ErrDuplicateKey):
		return duplicateNumber(l)
	case errors.Is(err, repos.ErrNotFound):
		return domain.NotFound("lot %s not found", l.ID)
	}
	return domain.Internal(err)
}

func duplicateNumber(l domain.Lot) error {
	scope := "auction"
	if l.AuctionID == "" {
		scope = "catalogue"
	}
	return domain.Conflict("lot number %q already exists in this %s", l.LotNumber, scope)
}

func firstString(body map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := toString(body[k]); s != "" {
			return s
		}
	}
	return ""
}

// searchPool bounds how many lots Search ranks in memory.
const searchPool = 2000

type lotSource []domain.Lot

func (s lotSource) String(i int) string {
	return s[i].LotNumber + " " + s[i].Title + " " + s[i].Category
}

func (s lotSource) Len() int { return len(s) }

// Search ranks lots by fuzzy match on lot number, title and category.
func (s *LotService) Search(ctx context.Context, q string, limit int) ([]domain.Lot, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	lots, err := s.Lots.All(ctx, searchPool)
	if err != nil {
		return nil, domain.Internal(err)
	}
	out := []domain.Lot{}
	for _, m := range fuzzy.FindFrom(q, lotSource(lots)) {
		if len(out) == limit {
			break
		}
		out = append(out, lots[m.Index])
	}
	return out, nil
}
