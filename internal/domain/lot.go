package domain

import "time"

// Lot statuses. The public surface uses draft/published/sold/passed; the admin
// surface adds pending and cancelled. Any status may move to any other.
const (
	LotDraft     = "draft"
	LotPending   = "pending"
	LotPublished = "published"
	LotSold      = "sold"
	LotPassed    = "passed"
	LotCancelled = "cancelled"
)

var LotStatuses = []string{LotDraft, LotPending, LotPublished, LotSold, LotPassed, LotCancelled}

var Conditions = []string{"excellent", "very-good", "good", "fair", "poor"}

const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
)

var ApprovalStatuses = []string{ApprovalPending, ApprovalApproved}

type Approval struct {
	Status string `db:"status" json:"status"`
	Notes  string `db:"notes" json:"notes"`
}

type Lot struct {
	ID               string     `db:"id" json:"id"`
	LotNumber        string     `db:"lot_number" json:"lotNumber"`
	Title            string     `db:"title" json:"title"`
	Subtitle         string     `db:"subtitle" json:"subtitle"`
	Description      string     `db:"description" json:"description"`
	DescriptionText  string     `db:"description_text" json:"descriptionText"`
	Category         string     `db:"category" json:"category"`
	Condition        string     `db:"condition" json:"condition,omitempty"`
	Quantity         int        `db:"quantity" json:"quantity"`
	Sequence         int        `db:"sequence" json:"sequence"`
	EstimateLow      float64    `db:"estimate_low" json:"estimateLow"`
	EstimateHigh     float64    `db:"estimate_high" json:"estimateHigh"`
	StartingBid      float64    `db:"starting_bid" json:"startingBid"`
	ReservePrice     float64    `db:"reserve_price" json:"reservePrice"`
	EstimatedValue   float64    `db:"estimated_value" json:"estimatedValue"` // legacy mirror of EstimateHigh
	StartingPrice    float64    `db:"starting_price" json:"startingPrice"`   // legacy mirror of StartingBid
	Status           string     `db:"status" json:"status"`
	Featured         bool       `db:"featured" json:"featured"`
	RequiresApproval bool       `db:"requires_approval" json:"requiresApproval"`
	Approval         Approval   `db:"approval" json:"approval"`
	Images           StringList `db:"images_json" json:"images"`
	Documents        StringList `db:"documents_json" json:"documents"`
	CatalogueID      string     `db:"catalogue_id" json:"catalogue,omitempty"`
	AuctionID        string     `db:"auction_id" json:"auctionId,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`
}

// AggregateValue is the amount a lot contributes to its catalogue's
// estimatedValue: estimateHigh, else the legacy estimatedValue, else 0.
func (l Lot) AggregateValue() float64 {
	if l.EstimateHigh > 0 {
		return l.EstimateHigh
	}
	if l.EstimatedValue > 0 {
		return l.EstimatedValue
	}
	return 0
}

// Scope returns the key lotNumber uniqueness is enforced within. Lots without an
// auction or catalogue have no scope.
func (l Lot) Scope() string {
	switch {
	case l.AuctionID != "":
		return "auction:" + l.AuctionID
	case l.CatalogueID != "":
		return "catalogue:" + l.CatalogueID
	}
	return ""
}

// SyncMirrors refreshes the legacy fields kept for older clients.
func (l *Lot) SyncMirrors() {
	l.EstimatedValue = l.EstimateHigh
	l.StartingPrice = l.StartingBid
}

func IsLotStatus(s string) bool { return contains(LotStatuses, s) }

func IsCondition(s string) bool { return contains(Conditions, s) }

func IsApprovalStatus(s string) bool { return contains(ApprovalStatuses, s) }

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
