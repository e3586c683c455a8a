package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/postpilot/postpilot/internal/model"
)

type NotificationsRepository interface {
	Insert(ctx context.Context, n model.Notification) error
}

type NotificationsRepositoryImpl struct {
	db *sqlx.DB
}

func NewNotificationsRepository(db *sqlx.DB) *NotificationsRepositoryImpl {
	return &NotificationsRepositoryImpl{db: db}
}

var _ NotificationsRepository = (*NotificationsRepositoryImpl)(nil)

func (r *NotificationsRepositoryImpl) Insert(ctx context.Context, n model.Notification) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, kind, body, created_at)
		VALUES (?, ?, ?, ?, NOW())
	`, n.ID, n.UserID, string(n.Kind), n.Body)
	return err
}
