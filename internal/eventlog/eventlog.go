// Package eventlog fans audit entries out to the configured sinks.
package eventlog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"rocktheauction/internal/domain"
)

// Sink accepts append-only audit entries.
type Sink interface {
	Append(ctx context.Context, e domain.EventLogEntry) error
}

// Fanout writes every entry to all sinks and joins their errors. A failing
// sink does not stop the others.
type Fanout []Sink

func (f Fanout) Append(ctx context.Context, e domain.EventLogEntry) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Append(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// New builds an entry stamped with a time-ordered id.
func New(entityType, entityID, action string, previous, changes map[string]any) domain.EventLogEntry {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return domain.EventLogEntry{
		ID:         id.String(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Previous:   previous,
		Changes:    changes,
		CreatedAt:  time.Now().UTC(),
	}
}
