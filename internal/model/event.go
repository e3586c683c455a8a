package model

import "time"

// Domain event names. Names and payload shapes are the public contract
// between the scheduler and every listener (webhook, notification, audit).
const (
	EventPostScheduled = "post.scheduled"
	EventPostPublished = "post.published"
	EventPostFailed    = "post.failed"
)

// PostPublishedEvent is emitted once per target reaching success.
type PostPublishedEvent struct {
	PostID         string    `json:"post_id"`
	AuthorID       int64     `json:"author_id"`
	Provider       string    `json:"provider"`
	ExternalPostID string    `json:"external_post_id"`
	ExternalURL    string    `json:"external_url,omitempty"`
	PublishedAt    time.Time `json:"published_at"`
}

// PostFailedEvent is emitted only on permanent failure, never on a
// transient retry.
type PostFailedEvent struct {
	PostID   string `json:"post_id"`
	AuthorID int64  `json:"author_id"`
	Error    string `json:"error"`
	Attempt  int    `json:"attempt"`
}

// PostScheduledEvent is written to the outbox when a post is accepted.
type PostScheduledEvent struct {
	PostID      string    `json:"post_id"`
	AuthorID    int64     `json:"author_id"`
	Targets     int       `json:"targets"`
	ScheduledAt time.Time `json:"scheduled_at"`
}
