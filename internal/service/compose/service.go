package compose

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/postpilot/postpilot/internal/model"
	"github.com/postpilot/postpilot/internal/repository"
	"github.com/postpilot/postpilot/internal/util"
)

var (
	ErrNoContent      = errors.New("post has no content")
	ErrNoTargets      = errors.New("post has no target accounts")
	ErrUnknownAccount = errors.New("account not found or not owned by user")
)

// Draft is the authoring payload: per-locale text, ordered media, the
// accounts to fan out to, and when to publish.
type Draft struct {
	Content     map[string]string // locale -> body
	MediaURLs   []string
	MediaKind   model.MediaKind
	AccountIDs  []string
	TeamID      *int64
	CampaignID  string
	ScheduledAt time.Time
}

// Service accepts a draft and atomically persists the post, its content
// and media, one target per account, one pending job per target, and the
// scheduled outbox event — all in a single transaction.
type Service struct {
	db       *sqlx.DB
	posts    repository.PostsRepository
	targets  repository.TargetsRepository
	jobs     repository.JobsRepository
	accounts repository.AccountsRepository
	outbox   repository.OutboxRepository
}

func New(
	db *sqlx.DB,
	posts repository.PostsRepository,
	targets repository.TargetsRepository,
	jobs repository.JobsRepository,
	accounts repository.AccountsRepository,
	outbox repository.OutboxRepository,
) *Service {
	return &Service{
		db:       db,
		posts:    posts,
		targets:  targets,
		jobs:     jobs,
		accounts: accounts,
		outbox:   outbox,
	}
}

// Schedule validates the draft and writes everything in one TX. Returns
// the new post id.
func (s *Service) Schedule(ctx context.Context, userID int64, d Draft) (string, error) {
	if len(d.Content) == 0 {
		return "", ErrNoContent
	}
	if len(d.AccountIDs) == 0 {
		return "", ErrNoTargets
	}
	if d.ScheduledAt.IsZero() {
		d.ScheduledAt = time.Now()
	}
	if d.MediaKind == "" {
		d.MediaKind = model.MediaKindImage
	}

	// Resolve accounts up front; ownership and provider come from here.
	accounts := make([]*model.SocialAccount, 0, len(d.AccountIDs))
	for _, id := range d.AccountIDs {
		acc, err := s.accounts.Get(ctx, id)
		if err != nil {
			return "", fmt.Errorf("load account %s: %w", id, err)
		}
		if acc == nil || acc.UserID != userID {
			return "", fmt.Errorf("%w: %s", ErrUnknownAccount, id)
		}
		accounts = append(accounts, acc)
	}

	postID := util.NewID()
	post := model.Post{
		ID:       postID,
		AuthorID: userID,
		Status:   model.PostStatusScheduled,
	}
	if d.TeamID != nil {
		post.TeamID = sql.NullInt64{Int64: *d.TeamID, Valid: true}
	}
	if d.CampaignID != "" {
		post.CampaignID = sql.NullString{String: d.CampaignID, Valid: true}
	}

	ev := model.PostScheduledEvent{
		PostID:      postID,
		AuthorID:    userID,
		Targets:     len(accounts),
		ScheduledAt: d.ScheduledAt,
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("marshal scheduled event: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.posts.Insert(ctx, tx, post); err != nil {
		return "", fmt.Errorf("insert post: %w", err)
	}

	for locale, body := range d.Content {
		if err := s.posts.InsertContent(ctx, tx, model.PostContent{PostID: postID, Locale: locale, Body: body}); err != nil {
			return "", fmt.Errorf("insert content %s: %w", locale, err)
		}
	}

	for i, url := range d.MediaURLs {
		m := model.PostMedia{PostID: postID, URL: url, Kind: d.MediaKind, OrderIndex: i}
		if err := s.posts.InsertMedia(ctx, tx, m); err != nil {
			return "", fmt.Errorf("insert media %d: %w", i, err)
		}
	}

	for _, acc := range accounts {
		target := model.PostTarget{
			ID:          util.NewID(),
			PostID:      postID,
			AccountID:   acc.ID,
			Status:      model.TargetStatusPending,
			ScheduledAt: d.ScheduledAt,
		}
		if err := s.targets.Insert(ctx, tx, target); err != nil {
			return "", fmt.Errorf("insert target: %w", err)
		}

		job := model.Job{
			ID:          util.NewID(),
			PostID:      postID,
			TargetID:    target.ID,
			Provider:    acc.Provider,
			Status:      model.JobStatusPending,
			ScheduledAt: d.ScheduledAt,
		}
		if err := s.jobs.Insert(ctx, tx, job); err != nil {
			return "", fmt.Errorf("insert job: %w", err)
		}
	}

	if err := s.outbox.Insert(ctx, tx, "post", postID, "posts.scheduled", payload); err != nil {
		return "", fmt.Errorf("insert outbox: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return postID, nil
}
