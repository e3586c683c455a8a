package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/postpilot/postpilot/internal/model"
)

// TargetsRepository persists post targets. MarkSuccess is first-write-wins
// on external_post_id/external_url: a retry that succeeds after a partial
// earlier success must not overwrite the original external id.
type TargetsRepository interface {
	Get(ctx context.Context, id string) (*model.PostTarget, error)
	Insert(ctx context.Context, tx *sqlx.Tx, t model.PostTarget) error
	ListByPost(ctx context.Context, postID string) ([]model.PostTarget, error)
	ListStatusesByPost(ctx context.Context, postID string) ([]model.TargetStatus, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkSuccess(ctx context.Context, id, externalPostID, externalURL string, publishedAt time.Time) error
	MarkFailed(ctx context.Context, id string, attempt int, errMsg string) error
}

type TargetsRepositoryImpl struct {
	db *sqlx.DB
}

func NewTargetsRepository(db *sqlx.DB) *TargetsRepositoryImpl {
	return &TargetsRepositoryImpl{db: db}
}

var _ TargetsRepository = (*TargetsRepositoryImpl)(nil)

func (r *TargetsRepositoryImpl) Get(ctx context.Context, id string) (*model.PostTarget, error) {
	var t model.PostTarget
	err := r.db.GetContext(ctx, &t, `
		SELECT id, post_id, account_id, status, attempt, last_error,
		       external_post_id, external_url, scheduled_at, published_at,
		       created_at, updated_at
		  FROM post_targets
		 WHERE id = ? LIMIT 1
	`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TargetsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, t model.PostTarget) error {
	const q = `
		INSERT INTO post_targets
		    (id, post_id, account_id, status, attempt, scheduled_at, created_at, updated_at)
		VALUES
		    (?, ?, ?, ?, 0, ?, NOW(), NOW())
	`
	return runInTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q, t.ID, t.PostID, t.AccountID, t.Status.String(), t.ScheduledAt)
		return err
	})
}

func (r *TargetsRepositoryImpl) ListByPost(ctx context.Context, postID string) ([]model.PostTarget, error) {
	var rows []model.PostTarget
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, post_id, account_id, status, attempt, last_error,
		       external_post_id, external_url, scheduled_at, published_at,
		       created_at, updated_at
		  FROM post_targets
		 WHERE post_id = ?
		 ORDER BY created_at ASC
	`, postID)
	return rows, err
}

func (r *TargetsRepositoryImpl) ListStatusesByPost(ctx context.Context, postID string) ([]model.TargetStatus, error) {
	var rows []model.TargetStatus
	err := r.db.SelectContext(ctx, &rows, `
		SELECT status FROM post_targets WHERE post_id = ?
	`, postID)
	return rows, err
}

func (r *TargetsRepositoryImpl) MarkProcessing(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE post_targets
		   SET status = 'processing', last_error = NULL, updated_at = NOW()
		 WHERE id = ?
	`, id)
	return err
}

// MarkSuccess keeps an already-set external_post_id (COALESCE): the first
// attempt that reported an id wins.
func (r *TargetsRepositoryImpl) MarkSuccess(ctx context.Context, id, externalPostID, externalURL string, publishedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE post_targets
		   SET status = 'success',
		       external_post_id = COALESCE(external_post_id, ?),
		       external_url = COALESCE(external_url, ?),
		       published_at = ?,
		       last_error = NULL,
		       updated_at = NOW()
		 WHERE id = ?
	`, externalPostID, externalURL, publishedAt, id)
	return err
}

func (r *TargetsRepositoryImpl) MarkFailed(ctx context.Context, id string, attempt int, errMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE post_targets
		   SET status = 'failed', attempt = ?, last_error = ?, updated_at = NOW()
		 WHERE id = ?
	`, attempt, errMsg, id)
	return err
}
