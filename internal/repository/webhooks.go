package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/postpilot/postpilot/internal/model"
)

// WebhooksRepository persists subscriptions and their append-only
// delivery-attempt audit trail.
type WebhooksRepository interface {
	InsertSubscription(ctx context.Context, s model.WebhookSubscription) error
	GetSubscription(ctx context.Context, id string, userID int64) (*model.WebhookSubscription, error)
	ListSubscriptionsByUser(ctx context.Context, userID int64) ([]model.WebhookSubscription, error)
	ListActiveByEvent(ctx context.Context, event string) ([]model.WebhookSubscription, error)
	DeleteSubscription(ctx context.Context, id string, userID int64) (bool, error)
	InsertDeliveryAttempt(ctx context.Context, a model.WebhookDeliveryAttempt) error
}

type WebhooksRepositoryImpl struct {
	db *sqlx.DB
}

func NewWebhooksRepository(db *sqlx.DB) *WebhooksRepositoryImpl {
	return &WebhooksRepositoryImpl{db: db}
}

var _ WebhooksRepository = (*WebhooksRepositoryImpl)(nil)

func (r *WebhooksRepositoryImpl) InsertSubscription(ctx context.Context, s model.WebhookSubscription) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO webhook_subscriptions
		    (id, user_id, url, event, secret, active, created_at, updated_at)
		VALUES
		    (?, ?, ?, ?, ?, ?, NOW(), NOW())
	`, s.ID, s.UserID, s.URL, s.Event, s.Secret, s.Active)
	return err
}

func (r *WebhooksRepositoryImpl) GetSubscription(ctx context.Context, id string, userID int64) (*model.WebhookSubscription, error) {
	var s model.WebhookSubscription
	err := r.db.GetContext(ctx, &s, `
		SELECT id, user_id, url, event, secret, active, created_at, updated_at
		  FROM webhook_subscriptions
		 WHERE id = ? AND user_id = ? LIMIT 1
	`, id, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *WebhooksRepositoryImpl) ListSubscriptionsByUser(ctx context.Context, userID int64) ([]model.WebhookSubscription, error) {
	var rows []model.WebhookSubscription
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, url, event, secret, active, created_at, updated_at
		  FROM webhook_subscriptions
		 WHERE user_id = ?
		 ORDER BY created_at ASC
	`, userID)
	return rows, err
}

func (r *WebhooksRepositoryImpl) ListActiveByEvent(ctx context.Context, event string) ([]model.WebhookSubscription, error) {
	var rows []model.WebhookSubscription
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, url, event, secret, active, created_at, updated_at
		  FROM webhook_subscriptions
		 WHERE event = ? AND active = 1
	`, event)
	return rows, err
}

func (r *WebhooksRepositoryImpl) DeleteSubscription(ctx context.Context, id string, userID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM webhook_subscriptions WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *WebhooksRepositoryImpl) InsertDeliveryAttempt(ctx context.Context, a model.WebhookDeliveryAttempt) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO webhook_delivery_attempts
		    (id, subscription_id, url, event, attempt_number, status,
		     response_code, error_message, duration_ms, payload_hash, created_at)
		VALUES
		    (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW())
	`, a.ID, a.SubscriptionID, a.URL, a.Event, a.AttemptNumber, a.Status.String(),
		a.ResponseCode, a.ErrorMessage, a.DurationMs, a.PayloadHash)
	return err
}
