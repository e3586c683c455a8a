package model

import "time"

type NotificationKind string

const (
	NotificationPostPublished NotificationKind = "post_published"
	NotificationPostFailed    NotificationKind = "post_failed"
)

// Notification is an in-app notification row created by the bus listener.
type Notification struct {
	ID        string           `db:"id"`
	UserID    int64            `db:"user_id"`
	Kind      NotificationKind `db:"kind"`
	Body      string           `db:"body"`
	CreatedAt time.Time        `db:"created_at"`
}
