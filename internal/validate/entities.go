package validate

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"rocktheauction/internal/domain"
)

const MaxTitleLen = 80

// Result carries every violated rule; Valid is true only when Errors is empty.
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

func (r *Result) add(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r Result) done() Result {
	r.Valid = len(r.Errors) == 0
	return r
}

// Err converts a failed result into a validation error, nil when valid.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return domain.Validation(r.Errors...)
}

// LotInput is the view of a lot the validator inspects. On update it must be
// the merged view of the stored lot and the incoming patch.
type LotInput struct {
	LotNumber    string
	Title        string
	EstimateLow  float64
	EstimateHigh float64
	StartingBid  float64
	ReservePrice float64
	Status       string
	Condition    string
}

func LotInputOf(l domain.Lot) LotInput {
	return LotInput{
		LotNumber:    l.LotNumber,
		Title:        l.Title,
		EstimateLow:  l.EstimateLow,
		EstimateHigh: l.EstimateHigh,
		StartingBid:  l.StartingBid,
		ReservePrice: l.ReservePrice,
		Status:       l.Status,
		Condition:    l.Condition,
	}
}

// LotFields checks a lot payload and reports all violations together.
func LotFields(in LotInput) Result {
	var r Result
	if strings.TrimSpace(in.LotNumber) == "" {
		r.add("lotNumber is required")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		r.add("title is required")
	} else if utf8.RuneCountInString(title) > MaxTitleLen {
		r.add("title must be %d characters or fewer", MaxTitleLen)
	}
	if in.EstimateLow < 0 {
		r.add("estimateLow must be 0 or greater")
	}
	if in.EstimateHigh < 0 {
		r.add("estimateHigh must be 0 or greater")
	}
	if in.EstimateLow > in.EstimateHigh {
		r.add("estimateLow must not exceed estimateHigh")
	}
	if in.StartingBid > 0 && in.ReservePrice > 0 && in.ReservePrice < in.StartingBid {
		r.add("reservePrice must be at least startingBid")
	}
	if in.Status != "" && !domain.IsLotStatus(in.Status) {
		r.add("status must be one of %s", strings.Join(domain.LotStatuses, ", "))
	}
	if in.Condition != "" && !domain.IsCondition(in.Condition) {
		r.add("condition must be one of %s", strings.Join(domain.Conditions, ", "))
	}
	return r.done()
}

type AuctionInput struct {
	Title           string
	StartAt         time.Time
	EndAt           time.Time
	Status          string
	BuyerPremiumPct float64
}

func AuctionFields(in AuctionInput) Result {
	var r Result
	title := strings.TrimSpace(in.Title)
	if title == "" {
		r.add("title is required")
	} else if utf8.RuneCountInString(title) > 200 {
		r.add("title must be 200 characters or fewer")
	}
	if in.StartAt.IsZero() {
		r.add("startAt is required")
	}
	if in.EndAt.IsZero() {
		r.add("endAt is required")
	}
	if !in.StartAt.IsZero() && !in.EndAt.IsZero() && !in.EndAt.After(in.StartAt) {
		r.add("endAt must be after startAt")
	}
	if in.BuyerPremiumPct < 0 {
		r.add("buyerPremiumPct must be 0 or greater")
	}
	// live and closed are derived from the dates and never stored
	if in.Status != "" && in.Status != domain.AuctionDraft && in.Status != domain.AuctionScheduled {
		r.add("status must be draft or scheduled")
	}
	return r.done()
}

type CatalogueInput struct {
	Title  string
	Status string
}

func CatalogueFields(in CatalogueInput) Result {
	var r Result
	if strings.TrimSpace(in.Title) == "" {
		r.add("title is required")
	}
	if in.Status != "" && !domain.IsCatalogueStatus(in.Status) {
		r.add("status must be one of %s", strings.Join(domain.CatalogueStatuses, ", "))
	}
	return r.done()
}
