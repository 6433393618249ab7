package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"rocktheauction/internal/domain"
)

// EventLogRepo is the SQL audit sink. Entries are only ever inserted.
type EventLogRepo struct{ db *sqlx.DB }

func NewEventLogRepo(db *sqlx.DB) *EventLogRepo { return &EventLogRepo{db: db} }

func (r *EventLogRepo) Append(ctx context.Context, e domain.EventLogEntry) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
  INSERT INTO event_logs(id, entity_type, entity_id, action, previous_json, changes_json, actor, created_at)
  VALUES (?,?,?,?,?,?,?,?)`),
		e.ID, e.EntityType, e.EntityID, e.Action, e.Previous, e.Changes, e.Actor, e.CreatedAt)
	return mapErr(err)
}

type EventFilter struct {
	EntityType string
	EntityID   string
	Limit      int
}

// List returns matching entries, newest first.
func (r *EventLogRepo) List(ctx context.Context, f EventFilter) ([]domain.EventLogEntry, error) {
	where, args := "1=1", []any{}
	if f.EntityType != "" {
		where += " AND entity_type = ?"
		args = append(args, f.EntityType)
	}
	if f.EntityID != "" {
		where += " AND entity_id = ?"
		args = append(args, f.EntityID)
	}
	if f.Limit <= 0 {
		f.Limit = 50
	}
	out := []domain.EventLogEntry{}
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(`
  SELECT id, entity_type, entity_id, action, previous_json, changes_json, actor, created_at
  FROM event_logs
  WHERE `+where+`
  ORDER BY created_at DESC, id DESC
  LIMIT ?`), append(args, f.Limit)...)
	return out, err
}
