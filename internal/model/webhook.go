package model

import (
	"database/sql"
	"time"
)

type DeliveryStatus string

const (
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

func (s DeliveryStatus) String() string { return string(s) }

// WebhookSubscription is a user-registered callback for one domain event.
type WebhookSubscription struct {
	ID        string    `db:"id"`
	UserID    int64     `db:"user_id"`
	URL       string    `db:"url"`
	Event     string    `db:"event"`
	Secret    string    `db:"secret"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// WebhookDeliveryAttempt is one HTTP delivery try. Append-only.
type WebhookDeliveryAttempt struct {
	ID             string         `db:"id"`
	SubscriptionID string         `db:"subscription_id"`
	URL            string         `db:"url"`
	Event          string         `db:"event"`
	AttemptNumber  int            `db:"attempt_number"`
	Status         DeliveryStatus `db:"status"`
	ResponseCode   sql.NullInt64  `db:"response_code"`
	ErrorMessage   sql.NullString `db:"error_message"`
	DurationMs     int64          `db:"duration_ms"`
	PayloadHash    string         `db:"payload_hash"`
	CreatedAt      time.Time      `db:"created_at"`
}
