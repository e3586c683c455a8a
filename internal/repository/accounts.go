package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/postpilot/postpilot/internal/model"
)

type AccountsRepository interface {
	Get(ctx context.Context, id string) (*model.SocialAccount, error)
	ListByUser(ctx context.Context, userID int64) ([]model.SocialAccount, error)
	// LatestActiveToken returns the most recent non-revoked token for the
	// account, or (nil, nil) when none exists.
	LatestActiveToken(ctx context.Context, accountID string) (*model.AccountToken, error)
}

type AccountsRepositoryImpl struct {
	db *sqlx.DB
}

func NewAccountsRepository(db *sqlx.DB) *AccountsRepositoryImpl {
	return &AccountsRepositoryImpl{db: db}
}

var _ AccountsRepository = (*AccountsRepositoryImpl)(nil)

func (r *AccountsRepositoryImpl) Get(ctx context.Context, id string) (*model.SocialAccount, error) {
	var a model.SocialAccount
	err := r.db.GetContext(ctx, &a, `
		SELECT id, user_id, provider, provider_account_id, display_name, status, created_at, updated_at
		  FROM social_accounts
		 WHERE id = ? LIMIT 1
	`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountsRepositoryImpl) ListByUser(ctx context.Context, userID int64) ([]model.SocialAccount, error) {
	var rows []model.SocialAccount
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, provider, provider_account_id, display_name, status, created_at, updated_at
		  FROM social_accounts
		 WHERE user_id = ?
		 ORDER BY created_at ASC
	`, userID)
	return rows, err
}

func (r *AccountsRepositoryImpl) LatestActiveToken(ctx context.Context, accountID string) (*model.AccountToken, error) {
	var t model.AccountToken
	err := r.db.GetContext(ctx, &t, `
		SELECT id, account_id, access_token, revoked_at, created_at
		  FROM account_tokens
		 WHERE account_id = ? AND revoked_at IS NULL
		 ORDER BY created_at DESC
		 LIMIT 1
	`, accountID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
