package model

import "time"

type PublishKind string

const (
	PublishKindFeed     PublishKind = "feed"
	PublishKindCarousel PublishKind = "carousel"
)

// PublishRequest is the wire payload handed to a provider publisher.
// Text is the concatenation of all locale bodies; Media is ordered by
// order_index; Kind is carousel when more than one media item is attached.
type PublishRequest struct {
	Text              string      `json:"text"`
	Media             []string    `json:"media,omitempty"`
	Kind              PublishKind `json:"kind"`
	AccessToken       string      `json:"access_token"`
	ProviderAccountID string      `json:"provider_account_id"`
}

// PublishResult is what a provider returns on success.
type PublishResult struct {
	ExternalPostID string    `json:"external_post_id"`
	ExternalURL    string    `json:"external_url,omitempty"`
	PublishedAt    time.Time `json:"published_at,omitempty"`
}
