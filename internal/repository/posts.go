package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/postpilot/postpilot/internal/model"
)

// PostsRepository persists posts and their content/media rows. Status
// mutation to published/failed goes only through UpdateStatus, driven by
// target aggregation.
type PostsRepository interface {
	Get(ctx context.Context, id string) (*model.Post, error)
	Insert(ctx context.Context, tx *sqlx.Tx, p model.Post) error
	InsertContent(ctx context.Context, tx *sqlx.Tx, c model.PostContent) error
	InsertMedia(ctx context.Context, tx *sqlx.Tx, m model.PostMedia) error
	ListContent(ctx context.Context, postID string) ([]model.PostContent, error)
	ListMedia(ctx context.Context, postID string) ([]model.PostMedia, error)
	UpdateStatus(ctx context.Context, id string, status model.PostStatus, publishedAt sql.NullTime) error
}

type PostsRepositoryImpl struct {
	db *sqlx.DB
}

func NewPostsRepository(db *sqlx.DB) *PostsRepositoryImpl {
	return &PostsRepositoryImpl{db: db}
}

var _ PostsRepository = (*PostsRepositoryImpl)(nil)

func (r *PostsRepositoryImpl) Get(ctx context.Context, id string) (*model.Post, error) {
	var p model.Post
	err := r.db.GetContext(ctx, &p, `
		SELECT id, author_id, team_id, campaign_id, status, published_at, created_at, updated_at
		  FROM posts
		 WHERE id = ? LIMIT 1
	`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, p model.Post) error {
	const q = `
		INSERT INTO posts (id, author_id, team_id, campaign_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, NOW(), NOW())
	`
	return runInTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q, p.ID, p.AuthorID, p.TeamID, p.CampaignID, p.Status.String())
		return err
	})
}

func (r *PostsRepositoryImpl) InsertContent(ctx context.Context, tx *sqlx.Tx, c model.PostContent) error {
	const q = `INSERT INTO post_content (post_id, locale, body) VALUES (?, ?, ?)`
	return runInTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q, c.PostID, c.Locale, c.Body)
		return err
	})
}

func (r *PostsRepositoryImpl) InsertMedia(ctx context.Context, tx *sqlx.Tx, m model.PostMedia) error {
	const q = `INSERT INTO post_media (post_id, url, kind, order_index) VALUES (?, ?, ?, ?)`
	return runInTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q, m.PostID, m.URL, string(m.Kind), m.OrderIndex)
		return err
	})
}

func (r *PostsRepositoryImpl) ListContent(ctx context.Context, postID string) ([]model.PostContent, error) {
	var rows []model.PostContent
	err := r.db.SelectContext(ctx, &rows, `
		SELECT post_id, locale, body
		  FROM post_content
		 WHERE post_id = ?
		 ORDER BY locale ASC
	`, postID)
	return rows, err
}

func (r *PostsRepositoryImpl) ListMedia(ctx context.Context, postID string) ([]model.PostMedia, error) {
	var rows []model.PostMedia
	err := r.db.SelectContext(ctx, &rows, `
		SELECT post_id, url, kind, order_index
		  FROM post_media
		 WHERE post_id = ?
		 ORDER BY order_index ASC
	`, postID)
	return rows, err
}

func (r *PostsRepositoryImpl) UpdateStatus(ctx context.Context, id string, status model.PostStatus, publishedAt sql.NullTime) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE posts SET status = ?, published_at = ?, updated_at = NOW() WHERE id = ?
	`, status.String(), publishedAt, id)
	return err
}
