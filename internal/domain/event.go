package domain

import "time"

const (
	ActionCreate    = "create"
	ActionUpdate    = "update"
	ActionDelete    = "delete"
	ActionReconcile = "reconcile"
)

const (
	EntityLot       = "lot"
	EntityCatalogue = "catalogue"
	EntityAuction   = "auction"
)

// EventLogEntry is an immutable audit record of one entity mutation.
type EventLogEntry struct {
	ID         string    `db:"id" json:"id" bson:"_id"`
	EntityType string    `db:"entity_type" json:"entityType" bson:"entityType"`
	EntityID   string    `db:"entity_id" json:"entityId" bson:"entityId"`
	Action     string    `db:"action" json:"action" bson:"action"`
	Previous   JSONMap   `db:"previous_json" json:"previous,omitempty" bson:"previous,omitempty"`
	Changes    JSONMap   `db:"changes_json" json:"changes,omitempty" bson:"changes,omitempty"`
	Actor      string    `db:"actor" json:"actor,omitempty" bson:"actor,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt" bson:"createdAt"`
}
