package model

import (
	"database/sql"
	"time"
)

// OutboxEvent is written in the same transaction as the state change it
// describes. The relay worker ships unpublished rows to Kafka and stamps
// published_at; consumers dedupe on aggregate_id + topic.
type OutboxEvent struct {
	ID          int64        `db:"id"`
	Aggregate   string       `db:"aggregate"`    // e.g. "post"
	AggregateID string       `db:"aggregate_id"` // post ULID
	Topic       string       `db:"topic"`
	Payload     []byte       `db:"payload"`
	CreatedAt   time.Time    `db:"created_at"`
	PublishedAt sql.NullTime `db:"published_at"`
}
