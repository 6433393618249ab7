package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"rocktheauction/internal/domain"
	"rocktheauction/internal/eventlog"
	"rocktheauction/internal/repos"
	"rocktheauction/internal/validate"
)

type CatalogueService struct {
	Catalogues *repos.CatalogueRepo
	Lots       *repos.LotRepo
	Events     eventlog.Sink
	// Workers bounds how many catalogues Reconcile recomputes at once.
	Workers int
	Now     func() time.Time
}

func NewCatalogueService(cats *repos.CatalogueRepo, lots *repos.LotRepo, events eventlog.Sink) *CatalogueService {
	return &CatalogueService{Catalogues: cats, Lots: lots, Events: events, Workers: 4, Now: utcNow}
}

func utcNow() time.Time { return time.Now().UTC() }

// RecomputeAggregate re-derives totalLots and estimatedValue from the lots that
// currently reference the catalogue and writes both back. Safe to call any
// number of times.
func (s *CatalogueService) RecomputeAggregate(ctx context.Context, catalogueID string) (domain.CatalogueMetadata, error) {
	lots, err := s.Lots.ListByCatalogue(ctx, catalogueID)
	if err != nil {
		return domain.CatalogueMetadata{}, domain.Internal(fmt.Errorf("load catalogue lots: %w", err))
	}
	m := aggregate(lots)
	if err := s.Catalogues.SetAggregate(ctx, catalogueID, m, s.Now()); err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return m, domain.NotFound("catalogue %s not found", catalogueID)
		}
		return m, domain.Internal(fmt.Errorf("write catalogue aggregate: %w", err))
	}
	return m, nil
}

func aggregate(lots []domain.Lot) domain.CatalogueMetadata {
	m := domain.CatalogueMetadata{TotalLots: len(lots)}
	for _, l := range lots {
		m.EstimatedValue += l.AggregateValue()
	}
	return m
}

type ReconcileReport struct {
	Checked  int      `json:"checked"`
	Repaired []string `json:"repaired"`
}

// Reconcile recomputes every catalogue and logs the ones whose stored
// aggregate had drifted from their lots.
func (s *CatalogueService) Reconcile(ctx context.Context) (ReconcileReport, error) {
	report := ReconcileReport{Repaired: []string{}}
	ids, err := s.Catalogues.IDs(ctx)
	if err != nil {
		return report, domain.Internal(err)
	}
	workers := s.Workers
	if workers < 1 {
		workers = 1
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, id := range ids {
		g.Go(func() error {
			before, err := s.Catalogues.Get(ctx, id)
			if errors.Is(err, repos.ErrNotFound) {
				return nil // deleted since IDs was read
			}
			if err != nil {
				return domain.Internal(err)
			}
			after, err := s.RecomputeAggregate(ctx, id)
			if domain.IsKind(err, domain.KindNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			drifted := before.Metadata != after
			mu.Lock()
			report.Checked++
			if drifted {
				report.Repaired = append(report.Repaired, id)
			}
			mu.Unlock()
			if !drifted {
				return nil
			}
			e := eventlog.New(domain.EntityCatalogue, id, domain.ActionReconcile,
				map[string]any{"totalLots": before.Metadata.TotalLots, "estimatedValue": before.Metadata.EstimatedValue},
				map[string]any{"totalLots": after.TotalLots, "estimatedValue": after.EstimatedValue})
			if err := s.Events.Append(ctx, e); err != nil {
				return domain.Internal(fmt.Errorf("append reconcile event: %w", err))
			}
			return nil
		})
	}
	err = g.Wait()
	return report, err
}

// CatalogueInput is the create payload; on update nil fields are left as-is.
type CatalogueInput struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	CoverImage  *string    `json:"coverImage"`
	AuctionDate *time.Time `json:"auctionDate"`
	Location    *string    `json:"location"`
	Status      *string    `json:"status"`
}

func (in CatalogueInput) apply(c *domain.Catalogue) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&c.Title, in.Title)
	set(&c.Description, in.Description)
	set(&c.CoverImage, in.CoverImage)
	set(&c.Location, in.Location)
	if in.Status != nil {
		c.Status = strings.ToLower(strings.TrimSpace(*in.Status))
	}
	if in.AuctionDate != nil {
		d := in.AuctionDate.UTC()
		c.AuctionDate = &d
	}
}

func (s *CatalogueService) Create(ctx context.Context, actor string, in CatalogueInput) (domain.Catalogue, error) {
	c := domain.Catalogue{Status: domain.CatalogueDraft, Lots: []string{}}
	in.apply(&c)
	if err := validate.CatalogueFields(validate.CatalogueInput{Title: c.Title, Status: c.Status}).Err(); err != nil {
		return c, err
	}
	now := s.Now()
	c.ID = uuid.NewString()
	c.CreatedAt, c.UpdatedAt = now, now
	if err := s.Catalogues.Insert(ctx, c); err != nil {
		return c, domain.Internal(err)
	}
	e := eventlog.New(domain.EntityCatalogue, c.ID, domain.ActionCreate, nil, map[string]any{"title": c.Title, "status": c.Status})
	e.Actor = actor
	if err := s.Events.Append(ctx, e); err != nil {
		return c, domain.Internal(fmt.Errorf("append catalogue event: %w", err))
	}
	return c, nil
}

func (s *CatalogueService) Get(ctx context.Context, id string) (domain.Catalogue, error) {
	c, err := s.Catalogues.Get(ctx, id)
	if errors.Is(err, repos.ErrNotFound) {
		return c, domain.NotFound("catalogue %s not found", id)
	}
	if err != nil {
		return c, domain.Internal(err)
	}
	return c, nil
}

type CataloguePage struct {
	Catalogues []domain.Catalogue
	Pagination Pagination
}

func (s *CatalogueService) List(ctx context.Context, status string, page, limit int) (CataloguePage, error) {
	cats, total, err := s.Catalogues.List(ctx, status, page, limit)
	if err != nil {
		return CataloguePage{}, domain.Internal(err)
	}
	return CataloguePage{Catalogues: cats, Pagination: NewPagination(page, limit, total)}, nil
}

func (s *CatalogueService) Update(ctx context.Context, actor, id string, in CatalogueInput) (domain.Catalogue, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return c, err
	}
	prev := map[string]any{"title": c.Title, "status": c.Status}
	in.apply(&c)
	if err := validate.CatalogueFields(validate.CatalogueInput{Title: c.Title, Status: c.Status}).Err(); err != nil {
		return c, err
	}
	c.UpdatedAt = s.Now()
	if err := s.Catalogues.Update(ctx, c); err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return c, domain.NotFound("catalogue %s not found", id)
		}
		return c, domain.Internal(err)
	}
	e := eventlog.New(domain.EntityCatalogue, id, domain.ActionUpdate, prev, map[string]any{"title": c.Title, "status": c.Status})
	e.Actor = actor
	if err := s.Events.Append(ctx, e); err != nil {
		return c, domain.Internal(fmt.Errorf("append catalogue event: %w", err))
	}
	return c, nil
}

// Delete removes an empty catalogue. Catalogues still referenced by lots are
// refused with a conflict.
func (s *CatalogueService) Delete(ctx context.Context, actor, id string) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.Lots.CountByCatalogue(ctx, id)
	if err != nil {
		return domain.Internal(err)
	}
	if n > 0 {
		return domain.Conflict("catalogue %s still has %d lots", id, n)
	}
	if err := s.Catalogues.Delete(ctx, id); err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return domain.NotFound("catalogue %s not found", id)
		}
		return domain.Internal(err)
	}
	e := eventlog.New(domain.EntityCatalogue, id, domain.ActionDelete, map[string]any{"title": c.Title}, nil)
	e.Actor = actor
	if err := s.Events.Append(ctx, e); err != nil {
		return domain.Internal(fmt.Errorf("append catalogue event: %w", err))
	}
	return nil
}
