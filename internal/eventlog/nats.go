package eventlog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"rocktheauction/internal/domain"
)

// NATSSink publishes entries as JSON on <prefix>.<entityType>.<action> so
// downstream consumers can subscribe per entity, e.g. "rocktheauction.events.lot.*".
type NATSSink struct {
	conn   *nats.Conn
	prefix string
}

func NewNATSSink(url, prefix string) (*NATSSink, error) {
	conn, err := nats.Connect(url, nats.Name("rocktheauction"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSSink{conn: conn, prefix: prefix}, nil
}

func Subject(prefix string, e domain.EventLogEntry) string {
	return fmt.Sprintf("%s.%s.%s", prefix, e.EntityType, e.Action)
}

func (s *NATSSink) Append(ctx context.Context, e domain.EventLogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := s.conn.Publish(Subject(s.prefix, e), data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (s *NATSSink) Close() {
	if s.conn != nil {
		_ = s.conn.Drain()
	}
}
