package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/postpilot/postpilot/internal/model"
)

// JobsRepository persists publishing jobs. Jobs are never deleted; rows
// in terminal states are the pipeline's audit trail.
type JobsRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, j model.Job) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]model.Job, error)
	MarkProcessing(ctx context.Context, id string, executedAt time.Time) error
	MarkSuccess(ctx context.Context, id string) error
	Reschedule(ctx context.Context, id string, attempt int, errMsg string, nextAt time.Time) error
	MarkFailed(ctx context.Context, id string, attempt int, errMsg string) error
}

type JobsRepositoryImpl struct {
	db *sqlx.DB
}

func NewJobsRepository(db *sqlx.DB) *JobsRepositoryImpl {
	return &JobsRepositoryImpl{db: db}
}

var _ JobsRepository = (*JobsRepositoryImpl)(nil)

func (r *JobsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, j model.Job) error {
	const q = `
		INSERT INTO jobs
		    (id, post_id, target_id, provider, status, attempt, scheduled_at, created_at, updated_at)
		VALUES
		    (?, ?, ?, ?, 'pending', 0, ?, NOW(), NOW())
	`
	return runInTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q, j.ID, j.PostID, j.TargetID, j.Provider, j.ScheduledAt)
		return err
	})
}

// ListDue selects the oldest due pending jobs first so a backlog drains
// fairly.
func (r *JobsRepositoryImpl) ListDue(ctx context.Context, now time.Time, limit int) ([]model.Job, error) {
	var rows []model.Job
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, post_id, target_id, provider, status, attempt, last_error,
		       scheduled_at, executed_at, created_at, updated_at
		  FROM jobs
		 WHERE status = 'pending' AND scheduled_at <= ?
		 ORDER BY scheduled_at ASC
		 LIMIT ?
	`, now, limit)
	return rows, err
}

func (r *JobsRepositoryImpl) MarkProcessing(ctx context.Context, id string, executedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs
		   SET status = 'processing', executed_at = ?, last_error = NULL, updated_at = NOW()
		 WHERE id = ?
	`, executedAt, id)
	return err
}

func (r *JobsRepositoryImpl) MarkSuccess(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = 'success', updated_at = NOW() WHERE id = ?
	`, id)
	return err
}

func (r *JobsRepositoryImpl) Reschedule(ctx context.Context, id string, attempt int, errMsg string, nextAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs
		   SET status = 'pending', attempt = ?, last_error = ?, scheduled_at = ?, updated_at = NOW()
		 WHERE id = ?
	`, attempt, errMsg, nextAt, id)
	return err
}

func (r *JobsRepositoryImpl) MarkFailed(ctx context.Context, id string, attempt int, errMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs
		   SET status = 'failed', attempt = ?, last_error = ?, updated_at = NOW()
		 WHERE id = ?
	`, attempt, errMsg, id)
	return err
}
