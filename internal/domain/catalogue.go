package domain

import "time"

const (
	CatalogueDraft     = "draft"
	CataloguePublished = "published"
	CatalogueArchived  = "archived"
)

var CatalogueStatuses = []string{CatalogueDraft, CataloguePublished, CatalogueArchived}

func IsCatalogueStatus(s string) bool { return contains(CatalogueStatuses, s) }

// CatalogueMetadata is derived from the lots referencing the catalogue and is
// only ever written by the aggregate recompute.
type CatalogueMetadata struct {
	TotalLots      int     `db:"total_lots" json:"totalLots"`
	EstimatedValue float64 `db:"estimated_value" json:"estimatedValue"`
}

type Catalogue struct {
	ID          string            `db:"id" json:"id"`
	Title       string            `db:"title" json:"title"`
	Description string            `db:"description" json:"description"`
	CoverImage  string            `db:"cover_image" json:"coverImage"`
	AuctionDate *time.Time        `db:"auction_date" json:"auctionDate,omitempty"`
	Location    string            `db:"location" json:"location"`
	Status      string            `db:"status" json:"status"`
	Lots        []string          `db:"-" json:"lots"`
	Metadata    CatalogueMetadata `db:"metadata" json:"metadata"`
	CreatedAt   time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updatedAt"`
}
