package model

import (
	"database/sql"
	"time"
)

type PostStatus string

const (
	PostStatusDraft           PostStatus = "draft"
	PostStatusScheduled       PostStatus = "scheduled"
	PostStatusPublished       PostStatus = "published"
	PostStatusFailed          PostStatus = "failed"
	PostStatusPendingApproval PostStatus = "pending_approval"
)

func (s PostStatus) String() string { return string(s) }

func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusDraft, PostStatusScheduled, PostStatusPublished, PostStatusFailed, PostStatusPendingApproval:
		return true
	}
	return false
}

// Post is the DB entity persisted in the posts table. Status is never set to
// published/failed directly; only ResolvePostStatus over its targets does that.
type Post struct {
	ID          string         `db:"id"`
	AuthorID    int64          `db:"author_id"`
	TeamID      sql.NullInt64  `db:"team_id"`
	CampaignID  sql.NullString `db:"campaign_id"`
	Status      PostStatus     `db:"status"`
	PublishedAt sql.NullTime   `db:"published_at"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

// PostContent holds one locale's text for a post.
type PostContent struct {
	PostID string `db:"post_id"`
	Locale string `db:"locale"`
	Body   string `db:"body"`
}

type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// PostMedia is one attachment; OrderIndex fixes the carousel order.
type PostMedia struct {
	PostID     string    `db:"post_id"`
	URL        string    `db:"url"`
	Kind       MediaKind `db:"kind"`
	OrderIndex int       `db:"order_index"`
}

// ResolvePostStatus computes a post's status from its targets' statuses.
// The order of the checks matters: a mix of success and pending must read
// as scheduled until every target finishes. Returns ok=false when no rule
// applies (empty target set, or success mixed with failed only), which is
// a no-op for the caller.
func ResolvePostStatus(targets []TargetStatus) (PostStatus, bool) {
	if len(targets) == 0 {
		return "", false
	}

	anySuccess := false
	anyOpen := false
	allSuccess := true
	for _, st := range targets {
		switch st {
		case TargetStatusSuccess:
			anySuccess = true
		case TargetStatusProcessing, TargetStatusPending, TargetStatusScheduled:
			allSuccess = false
			anyOpen = true
		default:
			allSuccess = false
		}
	}

	if allSuccess {
		return PostStatusPublished, true
	}
	if anyOpen {
		return PostStatusScheduled, true
	}
	if !anySuccess {
		return PostStatusFailed, true
	}
	return "", false
}
