package m_outbox

import (
	"time"

	"cloud.google.com/go/spanner"
)

// Data represents the database model for the outbox_events table.
type Data struct {
	EventID       string           `spanner:"event_id"`
	EventType     string           `spanner:"event_type"`
	AggregateType string           `spanner:"aggregate_type"`
	AggregateID   string           `spanner:"aggregate_id"`
	Payload       spanner.NullJSON `spanner:"payload"`
	Status        string           `spanner:"status"`
	CreatedAt     time.Time        `spanner:"created_at"`
	ProcessedAt   spanner.NullTime `spanner:"processed_at"`
}
