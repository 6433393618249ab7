package domain

import "time"

const (
	AuctionDraft     = "draft"
	AuctionScheduled = "scheduled"
	AuctionLive      = "live"
	AuctionClosed    = "closed"
)

type Auction struct {
	ID              string    `db:"id" json:"id"`
	Slug            string    `db:"slug" json:"slug"`
	Title           string    `db:"title" json:"title"`
	Description     string    `db:"description" json:"description"`
	StartAt         time.Time `db:"start_at" json:"startAt"`
	EndAt           time.Time `db:"end_at" json:"endAt"`
	Status          string    `db:"status" json:"status"`
	BuyerPremiumPct float64   `db:"buyer_premium_pct" json:"buyerPremiumPct"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

// EffectiveStatus derives the status at now: closed once endAt has passed, live
// inside [startAt, endAt), otherwise whatever draft/scheduled value is stored.
func (a Auction) EffectiveStatus(now time.Time) string {
	switch {
	case !a.EndAt.IsZero() && !now.Before(a.EndAt):
		return AuctionClosed
	case !a.StartAt.IsZero() && !now.Before(a.StartAt) && now.Before(a.EndAt):
		return AuctionLive
	case a.Status == AuctionScheduled:
		return AuctionScheduled
	}
	return AuctionDraft
}

// Resolve returns a copy with Status replaced by the derived status.
func (a Auction) Resolve(now time.Time) Auction {
	a.Status = a.EffectiveStatus(now)
	return a
}
