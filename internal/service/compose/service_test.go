package compose

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/postpilot/postpilot/internal/repository"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	dbx := sqlx.NewDb(db, "mysql")
	svc := New(
		dbx,
		repository.NewPostsRepository(dbx),
		repository.NewTargetsRepository(dbx),
		repository.NewJobsRepository(dbx),
		repository.NewAccountsRepository(dbx),
		repository.NewOutboxRepository(dbx),
	)
	return svc, mock
}

func TestScheduleValidation(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Schedule(context.Background(), 1, Draft{})
	require.ErrorIs(t, err, ErrNoContent)

	_, err = svc.Schedule(context.Background(), 1, Draft{Content: map[string]string{"en": "hi"}})
	require.ErrorIs(t, err, ErrNoTargets)
}

func TestScheduleRejectsForeignAccount(t *testing.T) {
	svc, mock := newService(t)

	cols := []string{"id", "user_id", "provider", "provider_account_id", "display_name", "status", "created_at", "updated_at"}
	now := time.Now()
	mock.ExpectQuery(`FROM social_accounts WHERE id = \? LIMIT 1`).
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("a1", int64(99), "instagram", "ig-1", "other", "active", now, now))

	_, err := svc.Schedule(context.Background(), 1, Draft{
		Content:    map[string]string{"en": "hi"},
		AccountIDs: []string{"a1"},
	})
	require.ErrorIs(t, err, ErrUnknownAccount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleWritesEverythingInOneTransaction(t *testing.T) {
	svc, mock := newService(t)

	cols := []string{"id", "user_id", "provider", "provider_account_id", "display_name", "status", "created_at", "updated_at"}
	now := time.Now()
	mock.ExpectQuery(`FROM social_accounts WHERE id = \? LIMIT 1`).
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("a1", int64(7), "instagram", "ig-1", "acme", "active", now, now))

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO posts`).
		WithArgs(sqlmock.AnyArg(), int64(7), sqlmock.AnyArg(), sqlmock.AnyArg(), "scheduled").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO post_content`).
		WithArgs(sqlmock.AnyArg(), "en", "hello").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO post_media`).
		WithArgs(sqlmock.AnyArg(), "https://cdn/1.jpg", "image", 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO post_targets`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO jobs`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO outbox`).
		WithArgs("post", sqlmock.AnyArg(), "posts.scheduled", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	postID, err := svc.Schedule(context.Background(), 7, Draft{
		Content:     map[string]string{"en": "hello"},
		MediaURLs:   []string{"https://cdn/1.jpg"},
		AccountIDs:  []string{"a1"},
		ScheduledAt: now,
	})
	require.NoError(t, err)
	require.Len(t, postID, 26) // ULID

	require.NoError(t, mock.ExpectationsWereMet())
}
