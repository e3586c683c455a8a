package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/postpilot/postpilot/internal/model"
)

// DeliveryRow is the ClickHouse read-model row for one webhook delivery
// attempt, denormalized with the owning user for report filtering.
type DeliveryRow struct {
	ID             string    `db:"id"`
	UserID         int64     `db:"user_id"`
	SubscriptionID string    `db:"subscription_id"`
	URL            string    `db:"url"`
	Event          string    `db:"event"`
	AttemptNumber  int       `db:"attempt_number"`
	Status         string    `db:"status"`
	ResponseCode   int32     `db:"response_code"`
	ErrorMessage   string    `db:"error_message"`
	DurationMs     int64     `db:"duration_ms"`
	PayloadHash    string    `db:"payload_hash"`
	CreatedAt      time.Time `db:"created_at"`
}

// CHDeliveriesRepository is the ClickHouse-backed audit sink and report
// read model for webhook deliveries.
type CHDeliveriesRepository interface {
	Insert(ctx context.Context, row DeliveryRow) error
	ListByUser(ctx context.Context, userID int64, event string, status model.DeliveryStatus, limit, offset int) ([]DeliveryRow, error)
}

type chDeliveriesRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHDeliveriesRepository(ch *sqlx.DB) CHDeliveriesRepository {
	return &chDeliveriesRepository{ch: ch}
}

func (r *chDeliveriesRepository) Insert(ctx context.Context, row DeliveryRow) error {
	_, err := r.ch.ExecContext(ctx, `
		INSERT INTO postpilot.webhook_deliveries
		    (id, user_id, subscription_id, url, event, attempt_number, status,
		     response_code, error_message, duration_ms, payload_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, row.ID, row.UserID, row.SubscriptionID, row.URL, row.Event, row.AttemptNumber,
		row.Status, row.ResponseCode, row.ErrorMessage, row.DurationMs, row.PayloadHash, row.CreatedAt)
	return err
}

func (r *chDeliveriesRepository) ListByUser(ctx context.Context, userID int64, event string, status model.DeliveryStatus, limit, offset int) ([]DeliveryRow, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `
		SELECT id, user_id, subscription_id, url, event, attempt_number, status,
		       response_code, error_message, duration_ms, payload_hash, created_at
		FROM postpilot.webhook_deliveries
		WHERE user_id = ?
	`
	args := []any{userID}

	if event != "" {
		q += " AND event = ?"
		args = append(args, event)
	}
	if status != "" {
		q += " AND status = ?"
		args = append(args, status.String())
	}

	q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []DeliveryRow
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
