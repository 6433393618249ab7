package repos

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"rocktheauction/internal/domain"
)

const lotColumns = `
    id, lot_number, title, subtitle, description, description_text, category, condition,
    quantity, sequence, estimate_low, estimate_high, starting_bid, reserve_price,
    estimated_value, starting_price, status, featured, requires_approval,
    approval_status AS "approval.status", approval_notes AS "approval.notes",
    images_json, documents_json,
    COALESCE(catalogue_id,'') AS catalogue_id, COALESCE(auction_id,'') AS auction_id,
    created_at, updated_at`

// lotSorts whitelists the sort keys accepted by List.
var lotSorts = map[string]string{
	"":              "sequence ASC, lot_number ASC",
	"sequence":      "sequence ASC, lot_number ASC",
	"lotNumber":     "lot_number ASC",
	"-createdAt":    "created_at DESC",
	"createdAt":     "created_at ASC",
	"estimateHigh":  "estimate_high ASC",
	"-estimateHigh": "estimate_high DESC",
}

func ValidLotSort(s string) bool {
	_, ok := lotSorts[s]
	return ok
}

type LotFilter struct {
	CatalogueID string
	AuctionID   string
	Status      string
	Category    string
	Sort        string
	Page        int
	Limit       int
}

type LotRepo struct{ db *sqlx.DB }

func NewLotRepo(db *sqlx.DB) *LotRepo { return &LotRepo{db: db} }

func (r *LotRepo) Get(ctx context.Context, id string) (domain.Lot, error) {
	var l domain.Lot
	err := r.db.GetContext(ctx, &l, r.db.Rebind(`SELECT `+lotColumns+` FROM lots WHERE id = ?`), id)
	return l, mapErr(err)
}

// FindByNumber looks for another lot holding lotNumber inside scope, ignoring
// excludeID. It returns ErrNotFound when the number is free.
func (r *LotRepo) FindByNumber(ctx context.Context, scope, lotNumber, excludeID string) (domain.Lot, error) {
	var l domain.Lot
	if scope == "" {
		return l, ErrNotFound
	}
	err := r.db.GetContext(ctx, &l, r.db.Rebind(`
  SELECT `+lotColumns+`
  FROM lots
  WHERE scope_key = ? AND lot_number = ? AND id <> ?
  LIMIT 1`), scope, lotNumber, excludeID)
	return l, mapErr(err)
}

func (r *LotRepo) Insert(ctx context.Context, l domain.Lot) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
  INSERT INTO lots(
    id, scope_key, lot_number, title, subtitle, description, description_text, category, condition,
    quantity, sequence, estimate_low, estimate_high, starting_bid, reserve_price,
    estimated_value, starting_price, status, featured, requires_approval,
    approval_status, approval_notes, images_json, documents_json,
    catalogue_id, auction_id, created_at, updated_at
  ) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`),
		l.ID, nullable(l.Scope()), l.LotNumber, l.Title, l.Subtitle, l.Description, l.DescriptionText, l.Category, l.Condition,
		l.Quantity, l.Sequence, l.EstimateLow, l.EstimateHigh, l.StartingBid, l.ReservePrice,
		l.EstimatedValue, l.StartingPrice, l.Status, l.Featured, l.RequiresApproval,
		l.Approval.Status, l.Approval.Notes, l.Images, l.Documents,
		nullable(l.CatalogueID), nullable(l.AuctionID), l.CreatedAt, l.UpdatedAt)
	return mapErr(err)
}

// Update writes the full merged lot in one statement.
func (r *LotRepo) Update(ctx context.Context, l domain.Lot) error {
	return affected(r.db.ExecContext(ctx, r.db.Rebind(`
  UPDATE lots SET
    scope_key = ?, lot_number = ?, title = ?, subtitle = ?, description = ?, description_text = ?,
    category = ?, condition = ?, quantity = ?, sequence = ?, estimate_low = ?, estimate_high = ?,
    starting_bid = ?, reserve_price = ?, estimated_value = ?, starting_price = ?, status = ?,
    featured = ?, requires_approval = ?, approval_status = ?, approval_notes = ?,
    images_json = ?, documents_json = ?, updated_at = ?
  WHERE id = ?`),
		nullable(l.Scope()), l.LotNumber, l.Title, l.Subtitle, l.Description, l.DescriptionText,
		l.Category, l.Condition, l.Quantity, l.Sequence, l.EstimateLow, l.EstimateHigh,
		l.StartingBid, l.ReservePrice, l.EstimatedValue, l.StartingPrice, l.Status,
		l.Featured, l.RequiresApproval, l.Approval.Status, l.Approval.Notes,
		l.Images, l.Documents, l.UpdatedAt,
		l.ID))
}

func (r *LotRepo) Delete(ctx context.Context, id string) error {
	return affected(r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM lots WHERE id = ?`), id))
}

// List returns one page of lots matching f plus the total match count.
func (r *LotRepo) List(ctx context.Context, f LotFilter) ([]domain.Lot, int, error) {
	where := []string{"1=1"}
	args := []any{}
	if f.CatalogueID != "" {
		where = append(where, "catalogue_id = ?")
		args = append(args, f.CatalogueID)
	}
	if f.AuctionID != "" {
		where = append(where, "auction_id = ?")
		args = append(args, f.AuctionID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.Category != "" {
		where = append(where, "LOWER(category) = LOWER(?)")
		args = append(args, f.Category)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(`SELECT COUNT(*) FROM lots WHERE `+cond), args...); err != nil {
		return nil, 0, err
	}

	order, ok := lotSorts[f.Sort]
	if !ok {
		order = lotSorts[""]
	}
	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	out := []domain.Lot{}
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(`
  SELECT `+lotColumns+`
  FROM lots
  WHERE `+cond+`
  ORDER BY `+order+`
  LIMIT ? OFFSET ?`), append(args, limit, (page-1)*limit)...)
	return out, total, err
}

// ListByCatalogue loads every lot whose catalogue reference is catalogueID.
func (r *LotRepo) ListByCatalogue(ctx context.Context, catalogueID string) ([]domain.Lot, error) {
	out := []domain.Lot{}
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(`
  SELECT `+lotColumns+`
  FROM lots
  WHERE catalogue_id = ?
  ORDER BY sequence, lot_number`), catalogueID)
	return out, err
}

// All returns up to limit lots, newest first; feeds in-process search.
func (r *LotRepo) All(ctx context.Context, limit int) ([]domain.Lot, error) {
	out := []domain.Lot{}
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(`
  SELECT `+lotColumns+`
  FROM lots
  ORDER BY created_at DESC
  LIMIT ?`), limit)
	return out, err
}

func (r *LotRepo) CountByCatalogue(ctx context.Context, catalogueID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM lots WHERE catalogue_id = ?`), catalogueID)
	return n, err
}

func (r *LotRepo) CountByAuction(ctx context.Context, auctionID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM lots WHERE auction_id = ?`), auctionID)
	return n, err
}
