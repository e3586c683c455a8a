package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/postpilot/postpilot/internal/model"
	"github.com/stretchr/testify/require"
)

func TestTargetsMarkSuccessKeepsExistingExternalID(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewTargetsRepository(dbx)

	publishedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	// COALESCE keeps the id from the first successful attempt
	mock.ExpectExec(`SET status = 'success', external_post_id = COALESCE\(external_post_id, \?\), external_url = COALESCE\(external_url, \?\)`).
		WithArgs("ext-2", "https://ig/ext-2", publishedAt, "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkSuccess(context.Background(), "t1", "ext-2", "https://ig/ext-2", publishedAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTargetsGetMissingReturnsNil(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewTargetsRepository(dbx)

	mock.ExpectQuery(`FROM post_targets WHERE id = \? LIMIT 1`).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	got, err := repo.Get(context.Background(), "nope")
	require.NoError(t, err)
	require.Nil(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTargetsListStatusesByPost(t *testing.T) {
	dbx, mock := newMockDB(t)
	repo := NewTargetsRepository(dbx)

	mock.ExpectQuery(`SELECT status FROM post_targets WHERE post_id = \?`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("success").AddRow("failed"))

	statuses, err := repo.ListStatusesByPost(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, []model.TargetStatus{model.TargetStatusSuccess, model.TargetStatusFailed}, statuses)
	require.NoError(t, mock.ExpectationsWereMet())
}
