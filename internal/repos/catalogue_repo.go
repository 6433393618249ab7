package repos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"rocktheauction/internal/domain"
)

const catalogueColumns = `
    id, title, description, cover_image, auction_date, location, status,
    total_lots AS "metadata.total_lots", estimated_value AS "metadata.estimated_value",
    created_at, updated_at`

type CatalogueRepo struct{ db *sqlx.DB }

func NewCatalogueRepo(db *sqlx.DB) *CatalogueRepo { return &CatalogueRepo{db: db} }

// Get loads a catalogue together with its ordered lot ids.
func (r *CatalogueRepo) Get(ctx context.Context, id string) (domain.Catalogue, error) {
	var c domain.Catalogue
	if err := r.db.GetContext(ctx, &c, r.db.Rebind(`SELECT `+catalogueColumns+` FROM catalogues WHERE id = ?`), id); err != nil {
		return c, mapErr(err)
	}
	ids, err := r.LotIDs(ctx, id)
	if err != nil {
		return c, err
	}
	c.Lots = ids
	return c, nil
}

func (r *CatalogueRepo) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM catalogues WHERE id = ?`), id)
	return n > 0, err
}

func (r *CatalogueRepo) LotIDs(ctx context.Context, id string) ([]string, error) {
	ids := []string{}
	err := r.db.SelectContext(ctx, &ids, r.db.Rebind(`
  SELECT lot_id FROM catalogue_lots WHERE catalogue_id = ? ORDER BY position`), id)
	return ids, err
}

func (r *CatalogueRepo) Insert(ctx context.Context, c domain.Catalogue) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
  INSERT INTO catalogues(
    id, title, description, cover_image, auction_date, location, status,
    total_lots, estimated_value, created_at, updated_at
  ) VALUES (?,?,?,?,?,?,?,?,?,?,?)`),
		c.ID, c.Title, c.Description, c.CoverImage, c.AuctionDate, c.Location, c.Status,
		c.Metadata.TotalLots, c.Metadata.EstimatedValue, c.CreatedAt, c.UpdatedAt)
	return mapErr(err)
}

// Update writes the presentation fields; metadata is left to SetAggregate.
func (r *CatalogueRepo) Update(ctx context.Context, c domain.Catalogue) error {
	return affected(r.db.ExecContext(ctx, r.db.Rebind(`
  UPDATE catalogues SET
    title = ?, description = ?, cover_image = ?, auction_date = ?, location = ?, status = ?, updated_at = ?
  WHERE id = ?`),
		c.Title, c.Description, c.CoverImage, c.AuctionDate, c.Location, c.Status, c.UpdatedAt, c.ID))
}

func (r *CatalogueRepo) Delete(ctx context.Context, id string) error {
	return affected(r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM catalogues WHERE id = ?`), id))
}

func (r *CatalogueRepo) List(ctx context.Context, status string, page, limit int) ([]domain.Catalogue, int, error) {
	where, args := "1=1", []any{}
	if status != "" {
		where, args = "status = ?", append(args, status)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(`SELECT COUNT(*) FROM catalogues WHERE `+where), args...); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	out := []domain.Catalogue{}
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(`
  SELECT `+catalogueColumns+`
  FROM catalogues
  WHERE `+where+`
  ORDER BY created_at DESC
  LIMIT ? OFFSET ?`), append(args, limit, (page-1)*limit)...)
	for i := range out {
		out[i].Lots = []string{}
	}
	return out, total, err
}

func (r *CatalogueRepo) IDs(ctx context.Context) ([]string, error) {
	ids := []string{}
	err := r.db.SelectContext(ctx, &ids, `SELECT id FROM catalogues ORDER BY id`)
	return ids, err
}

// AppendLot adds lotID to the end of the catalogue's ordered lot list. Adding
// an id that is already present is a no-op.
func (r *CatalogueRepo) AppendLot(ctx context.Context, catalogueID, lotID string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
  INSERT INTO catalogue_lots(catalogue_id, lot_id, position)
  SELECT ?, ?, COALESCE(MAX(position), 0) + 1 FROM catalogue_lots WHERE catalogue_id = ?
  ON CONFLICT(catalogue_id, lot_id) DO NOTHING`), catalogueID, lotID, catalogueID)
	return mapErr(err)
}

// RemoveLot pulls lotID from the catalogue's lot list; absent ids are ignored.
func (r *CatalogueRepo) RemoveLot(ctx context.Context, catalogueID, lotID string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
  DELETE FROM catalogue_lots WHERE catalogue_id = ? AND lot_id = ?`), catalogueID, lotID)
	return err
}

func (r *CatalogueRepo) SetAggregate(ctx context.Context, id string, m domain.CatalogueMetadata, at time.Time) error {
	return affected(r.db.ExecContext(ctx, r.db.Rebind(`
  UPDATE catalogues SET total_lots = ?, estimated_value = ?, updated_at = ? WHERE id = ?`),
		m.TotalLots, m.EstimatedValue, at, id))
}
