package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/postpilot/postpilot/internal/model"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "mysql"), mock
}

func TestJobsListDueOrdersOldestFirst(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewJobsRepository(dbx)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "post_id", "target_id", "provider", "status", "attempt", "last_error",
		"scheduled_at", "executed_at", "created_at", "updated_at",
	}).
		AddRow("j1", "p1", "t1", "instagram", "pending", 0, nil, now.Add(-time.Minute), nil, now, now).
		AddRow("j2", "p2", "t2", "facebook", "pending", 2, "status=503", now.Add(-time.Second), nil, now, now)

	mock.ExpectQuery(`WHERE status = 'pending' AND scheduled_at <= \? ORDER BY scheduled_at ASC LIMIT \?`).
		WithArgs(now, 10).
		WillReturnRows(rows)

	due, err := repo.ListDue(context.Background(), now, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	require.Equal(t, "j1", due[0].ID)
	require.Equal(t, model.JobStatusPending, due[0].Status)
	require.Equal(t, 2, due[1].Attempt)
	require.True(t, due[1].LastError.Valid)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobsReschedule(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewJobsRepository(dbx)

	nextAt := time.Date(2025, 6, 1, 12, 0, 2, 0, time.UTC)
	mock.ExpectExec(`UPDATE jobs SET status = 'pending', attempt = \?, last_error = \?, scheduled_at = \?`).
		WithArgs(1, "status=503", nextAt, "j1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Reschedule(context.Background(), "j1", 1, "status=503", nextAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobsMarkFailed(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewJobsRepository(dbx)

	mock.ExpectExec(`UPDATE jobs SET status = 'failed', attempt = \?, last_error = \?`).
		WithArgs(5, "exhausted", "j1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkFailed(context.Background(), "j1", 5, "exhausted"))
	require.NoError(t, mock.ExpectationsWereMet())
}
