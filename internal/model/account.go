package model

import (
	"database/sql"
	"time"
)

// SocialAccount is one connected provider account (e.g. an instagram page).
type SocialAccount struct {
	ID                string    `db:"id"`
	UserID            int64     `db:"user_id"`
	Provider          string    `db:"provider"`
	ProviderAccountID string    `db:"provider_account_id"`
	DisplayName       string    `db:"display_name"`
	Status            string    `db:"status"` // active | disconnected
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// AccountToken is one access token issued for a social account. The most
// recent non-revoked token wins at publish time.
type AccountToken struct {
	ID          string       `db:"id"`
	AccountID   string       `db:"account_id"`
	AccessToken string       `db:"access_token"`
	RevokedAt   sql.NullTime `db:"revoked_at"`
	CreatedAt   time.Time    `db:"created_at"`
}
