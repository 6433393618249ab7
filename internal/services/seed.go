package services

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"rocktheauction/internal/log"
)

//go:embed seed.yaml
var seedYAML []byte

type seedFile struct {
	Auctions []struct {
		Key             string    `yaml:"key"`
		Title           string    `yaml:"title"`
		Description     string    `yaml:"description"`
		StartAt         time.Time `yaml:"startAt"`
		EndAt           time.Time `yaml:"endAt"`
		Status          string    `yaml:"status"`
		BuyerPremiumPct float64   `yaml:"buyerPremiumPct"`
	} `yaml:"auctions"`
	Catalogues []struct {
		Key         string `yaml:"key"`
		Title       string `yaml:"title"`
		Description string `yaml:"description"`
		Location    string `yaml:"location"`
		Status      string `yaml:"status"`
	} `yaml:"catalogues"`
	Lots []struct {
		Catalogue string         `yaml:"catalogue"`
		Auction   string         `yaml:"auction"`
		Fields    map[string]any `yaml:"fields"`
	} `yaml:"lots"`
}

// Seeder loads the embedded demo data through the services, so catalogue
// aggregates and the event log come out the same as for API writes.
type Seeder struct {
	Auctions   *AuctionService
	Catalogues *CatalogueService
	Lots       *LotService
}

const seedActor = "seed"

// Seed is a no-op once any catalogue exists.
func (s *Seeder) Seed(ctx context.Context) error {
	existing, err := s.Catalogues.List(ctx, "", 1, 1)
	if err != nil {
		return err
	}
	if existing.Pagination.Total > 0 {
		log.L().Info("seed.skip")
		return nil
	}

	var f seedFile
	if err := yaml.Unmarshal(seedYAML, &f); err != nil {
		return fmt.Errorf("parse seed data: %w", err)
	}

	auctions := map[string]string{}
	for _, a := range f.Auctions {
		created, err := s.Auctions.Create(ctx, seedActor, AuctionInput{
			Title:           &a.Title,
			Description:     &a.Description,
			StartAt:         &a.StartAt,
			EndAt:           &a.EndAt,
			Status:          &a.Status,
			BuyerPremiumPct: &a.BuyerPremiumPct,
		})
		if err != nil {
			return fmt.Errorf("seed auction %s: %w", a.Key, err)
		}
		auctions[a.Key] = created.ID
	}

	catalogues := map[string]string{}
	for _, c := range f.Catalogues {
		created, err := s.Catalogues.Create(ctx, seedActor, CatalogueInput{
			Title:       &c.Title,
			Description: &c.Description,
			Location:    &c.Location,
			Status:      &c.Status,
		})
		if err != nil {
			return fmt.Errorf("seed catalogue %s: %w", c.Key, err)
		}
		catalogues[c.Key] = created.ID
	}

	for _, l := range f.Lots {
		body := map[string]any{}
		for k, v := range l.Fields {
			body[k] = v
		}
		if id := catalogues[l.Catalogue]; id != "" {
			body["catalogue"] = id
		}
		if id := auctions[l.Auction]; id != "" {
			body["auctionId"] = id
		}
		if _, err := s.Lots.Create(ctx, seedActor, body); err != nil {
			return fmt.Errorf("seed lot %v: %w", l.Fields["lotNumber"], err)
		}
	}
	log.L().Info("seed.done")
	return nil
}
