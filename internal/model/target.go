package model

import (
	"database/sql"
	"time"
)

type TargetStatus string

const (
	TargetStatusPending    TargetStatus = "pending"
	TargetStatusScheduled  TargetStatus = "scheduled"
	TargetStatusProcessing TargetStatus = "processing"
	TargetStatusSuccess    TargetStatus = "success"
	TargetStatusFailed     TargetStatus = "failed"
)

func (s TargetStatus) String() string { return string(s) }

func (s TargetStatus) Valid() bool {
	switch s {
	case TargetStatusPending, TargetStatusScheduled, TargetStatusProcessing, TargetStatusSuccess, TargetStatusFailed:
		return true
	}
	return false
}

// PostTarget is one (post x social account) publishing destination.
// ExternalPostID is written at most once; a later failed attempt never
// clears it.
type PostTarget struct {
	ID             string         `db:"id"`
	PostID         string         `db:"post_id"`
	AccountID      string         `db:"account_id"`
	Status         TargetStatus   `db:"status"`
	Attempt        int            `db:"attempt"`
	LastError      sql.NullString `db:"last_error"`
	ExternalPostID sql.NullString `db:"external_post_id"`
	ExternalURL    sql.NullString `db:"external_url"`
	ScheduledAt    time.Time      `db:"scheduled_at"`
	PublishedAt    sql.NullTime   `db:"published_at"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}
