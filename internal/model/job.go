package model

import (
	"database/sql"
	"time"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusSuccess    JobStatus = "success"
	JobStatusFailed     JobStatus = "failed"
)

func (s JobStatus) String() string { return string(s) }

func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusSuccess, JobStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition may leave this status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSuccess || s == JobStatusFailed
}

// Job drives one PostTarget to a terminal outcome. Rows are never deleted;
// they double as the audit trail of the publishing pipeline.
type Job struct {
	ID          string         `db:"id"`
	PostID      string         `db:"post_id"`
	TargetID    string         `db:"target_id"`
	Provider    string         `db:"provider"`
	Status      JobStatus      `db:"status"`
	Attempt     int            `db:"attempt"`
	LastError   sql.NullString `db:"last_error"`
	ScheduledAt time.Time      `db:"scheduled_at"`
	ExecutedAt  sql.NullTime   `db:"executed_at"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}
