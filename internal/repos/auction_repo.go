package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"rocktheauction/internal/domain"
)

const auctionColumns = `
    id, slug, title, description, start_at, end_at, status, buyer_premium_pct, created_at, updated_at`

type AuctionRepo struct{ db *sqlx.DB }

func NewAuctionRepo(db *sqlx.DB) *AuctionRepo { return &AuctionRepo{db: db} }

func (r *AuctionRepo) Get(ctx context.Context, id string) (domain.Auction, error) {
	var a domain.Auction
	err := r.db.GetContext(ctx, &a, r.db.Rebind(`SELECT `+auctionColumns+` FROM auctions WHERE id = ?`), id)
	return a, mapErr(err)
}

func (r *AuctionRepo) BySlug(ctx context.Context, slug string) (domain.Auction, error) {
	var a domain.Auction
	err := r.db.GetContext(ctx, &a, r.db.Rebind(`SELECT `+auctionColumns+` FROM auctions WHERE slug = ?`), slug)
	return a, mapErr(err)
}

func (r *AuctionRepo) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM auctions WHERE id = ?`), id)
	return n > 0, err
}

func (r *AuctionRepo) Insert(ctx context.Context, a domain.Auction) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
  INSERT INTO auctions(id, slug, title, description, start_at, end_at, status, buyer_premium_pct, created_at, updated_at)
  VALUES (?,?,?,?,?,?,?,?,?,?)`),
		a.ID, a.Slug, a.Title, a.Description, a.StartAt, a.EndAt, a.Status, a.BuyerPremiumPct, a.CreatedAt, a.UpdatedAt)
	return mapErr(err)
}

func (r *AuctionRepo) Update(ctx context.Context, a domain.Auction) error {
	return affected(r.db.ExecContext(ctx, r.db.Rebind(`
  UPDATE auctions SET
    title = ?, description = ?, start_at = ?, end_at = ?, status = ?, buyer_premium_pct = ?, updated_at = ?
  WHERE id = ?`),
		a.Title, a.Description, a.StartAt, a.EndAt, a.Status, a.BuyerPremiumPct, a.UpdatedAt, a.ID))
}

func (r *AuctionRepo) Delete(ctx context.Context, id string) error {
	return affected(r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM auctions WHERE id = ?`), id))
}

func (r *AuctionRepo) List(ctx context.Context, page, limit int) ([]domain.Auction, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM auctions`); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	out := []domain.Auction{}
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(`
  SELECT `+auctionColumns+`
  FROM auctions
  ORDER BY start_at DESC
  LIMIT ? OFFSET ?`), limit, (page-1)*limit)
	return out, total, err
}
