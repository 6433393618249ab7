package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"rocktheauction/internal/domain"
	"rocktheauction/internal/eventlog"
	"rocktheauction/internal/repos"
	"rocktheauction/internal/validate"
)

type AuctionService struct {
	Auctions *repos.AuctionRepo
	Lots     *repos.LotRepo
	Events   eventlog.Sink
	Now      func() time.Time
}

func NewAuctionService(auctions *repos.AuctionRepo, lots *repos.LotRepo, events eventlog.Sink) *AuctionService {
	return &AuctionService{Auctions: auctions, Lots: lots, Events: events, Now: utcNow}
}

// AuctionInput is the create payload; on update nil fields are left as-is.
type AuctionInput struct {
	Title           *string    `json:"title"`
	Description     *string    `json:"description"`
	StartAt         *time.Time `json:"startAt"`
	EndAt           *time.Time `json:"endAt"`
	Status          *string    `json:"status"`
	BuyerPremiumPct *float64   `json:"buyerPremiumPct"`
}

func (in AuctionInput) apply(a *domain.Auction) {
	if in.Title != nil {
		a.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		a.Description = strings.TrimSpace(*in.Description)
	}
	if in.StartAt != nil {
		a.StartAt = in.StartAt.UTC()
	}
	if in.EndAt != nil {
		a.EndAt = in.EndAt.UTC()
	}
	if in.Status != nil {
		a.Status = strings.ToLower(strings.TrimSpace(*in.Status))
	}
	if in.BuyerPremiumPct != nil {
		a.BuyerPremiumPct = *in.BuyerPremiumPct
	}
}

func validAuction(a domain.Auction) error {
	return validate.AuctionFields(validate.AuctionInput{
		Title:           a.Title,
		StartAt:         a.StartAt,
		EndAt:           a.EndAt,
		Status:          a.Status,
		BuyerPremiumPct: a.BuyerPremiumPct,
	}).Err()
}

// Slugify lowercases s and collapses every run of non-alphanumerics into a
// single hyphen.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if len(out) > 100 {
		out = strings.TrimSuffix(out[:100], "-")
	}
	if out == "" {
		return "auction"
	}
	return out
}

func (s *AuctionService) Create(ctx context.Context, actor string, in AuctionInput) (domain.Auction, error) {
	a := domain.Auction{Status: domain.AuctionDraft}
	in.apply(&a)
	if err := validAuction(a); err != nil {
		return a, err
	}
	now := s.Now()
	a.ID = uuid.NewString()
	a.CreatedAt, a.UpdatedAt = now, now
	a.Slug = Slugify(a.Title)

	if _, err := s.Auctions.BySlug(ctx, a.Slug); err == nil {
		a.Slug = s.suffixed(a.Slug)
	} else if !errors.Is(err, repos.ErrNotFound) {
		return a, domain.Internal(err)
	}
	err := s.Auctions.Insert(ctx, a)
	if errors.Is(err, repos.ErrDuplicateKey) {
		// lost a race for the slug
		a.Slug = s.suffixed(Slugify(a.Title))
		err = s.Auctions.Insert(ctx, a)
	}
	if errors.Is(err, repos.ErrDuplicateKey) {
		return a, domain.Conflict("auction slug %q already exists", a.Slug)
	}
	if err != nil {
		return a, domain.Internal(err)
	}

	e := eventlog.New(domain.EntityAuction, a.ID, domain.ActionCreate, nil, map[string]any{
		"slug": a.Slug, "title": a.Title, "status": a.Status,
	})
	e.Actor = actor
	if err := s.Events.Append(ctx, e); err != nil {
		return a.Resolve(s.Now()), domain.Internal(fmt.Errorf("append auction event: %w", err))
	}
	return a.Resolve(s.Now()), nil
}

func (s *AuctionService) suffixed(slug string) string {
	return slug + "-" + strconv.FormatInt(s.Now().UnixMilli(), 10)
}

// Get accepts either an id or a slug.
func (s *AuctionService) Get(ctx context.Context, idOrSlug string) (domain.Auction, error) {
	a, err := s.stored(ctx, idOrSlug)
	if err != nil {
		return a, err
	}
	return a.Resolve(s.Now()), nil
}

type AuctionPage struct {
	Auctions   []domain.Auction
	Pagination Pagination
}

func (s *AuctionService) List(ctx context.Context, page, limit int) (AuctionPage, error) {
	list, total, err := s.Auctions.List(ctx, page, limit)
	if err != nil {
		return AuctionPage{}, domain.Internal(err)
	}
	now := s.Now()
	for i := range list {
		list[i] = list[i].Resolve(now)
	}
	return AuctionPage{Auctions: list, Pagination: NewPagination(page, limit, total)}, nil
}

func (s *AuctionService) Update(ctx context.Context, actor, idOrSlug string, in AuctionInput) (domain.Auction, error) {
	a, err := s.stored(ctx, idOrSlug)
	if err != nil {
		return a, err
	}
	prev := map[string]any{"title": a.Title, "status": a.Status}
	in.apply(&a)
	if err := validAuction(a); err != nil {
		return a, err
	}
	a.UpdatedAt = s.Now()
	if err := s.Auctions.Update(ctx, a); err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return a, domain.NotFound("auction %s not found", idOrSlug)
		}
		return a, domain.Internal(err)
	}
	e := eventlog.New(domain.EntityAuction, a.ID, domain.ActionUpdate, prev, map[string]any{"title": a.Title, "status": a.Status})
	e.Actor = actor
	if err := s.Events.Append(ctx, e); err != nil {
		return a.Resolve(s.Now()), domain.Internal(fmt.Errorf("append auction event: %w", err))
	}
	return a.Resolve(s.Now()), nil
}

// Delete removes an auction no lot references any more.
func (s *AuctionService) Delete(ctx context.Context, actor, idOrSlug string) error {
	a, err := s.stored(ctx, idOrSlug)
	if err != nil {
		return err
	}
	n, err := s.Lots.CountByAuction(ctx, a.ID)
	if err != nil {
		return domain.Internal(err)
	}
	if n > 0 {
		return domain.Conflict("auction %s still has %d lots", a.Slug, n)
	}
	if err := s.Auctions.Delete(ctx, a.ID); err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return domain.NotFound("auction %s not found", idOrSlug)
		}
		return domain.Internal(err)
	}
	e := eventlog.New(domain.EntityAuction, a.ID, domain.ActionDelete, map[string]any{"slug": a.Slug, "title": a.Title}, nil)
	e.Actor = actor
	if err := s.Events.Append(ctx, e); err != nil {
		return domain.Internal(fmt.Errorf("append auction event: %w", err))
	}
	return nil
}

// stored loads the auction without deriving its status, so updates write back
// the persisted draft/scheduled value.
func (s *AuctionService) stored(ctx context.Context, idOrSlug string) (domain.Auction, error) {
	a, err := s.Auctions.Get(ctx, idOrSlug)
	if errors.Is(err, repos.ErrNotFound) {
		a, err = s.Auctions.BySlug(ctx, idOrSlug)
	}
	if errors.Is(err, repos.ErrNotFound) {
		return a, domain.NotFound("auction %s not found", idOrSlug)
	}
	if err != nil {
		return a, domain.Internal(err)
	}
	return a, nil
}
