package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/postpilot/postpilot/internal/config"
	"github.com/postpilot/postpilot/internal/db"
	"github.com/postpilot/postpilot/internal/model"
	"github.com/postpilot/postpilot/internal/util"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo users and accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1) load config
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		// 2) connect MySQL
		sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		log.Println(">> Seeding demo users...")

		if err := seedUsers(sqlDB); err != nil {
			return err
		}
		if err := seedAccounts(sqlDB); err != nil {
			return err
		}

		log.Println(">> Seed completed")
		return nil
	},
}

// seedUsers inserts deterministic demo users (idempotent).
func seedUsers(dbx *sqlx.DB) error {
	users := []model.User{
		{
			Name:         "Acme Media",
			APIKey:       "11111111111111111111111111111111",
			Status:       "active",
			RateLimitRPS: intptr(20),
		},
		{
			Name:         "Foobar Agency",
			APIKey:       "22222222222222222222222222222222",
			Status:       "active",
			RateLimitRPS: intptr(50),
		},
		{
			Name:         "Suspended Inc",
			APIKey:       "33333333333333333333333333333333",
			Status:       "suspended",
			RateLimitRPS: nil,
		},
	}

	// idempotent upsert based on api_key (UNIQUE)
	const q = `
INSERT INTO users
    (name, api_key, status, rate_limit_rps, created_at, updated_at)
VALUES
    (?, ?, ?, ?, NOW(), NOW())
ON DUPLICATE KEY UPDATE
    name = VALUES(name),
    status = VALUES(status),
    rate_limit_rps = VALUES(rate_limit_rps),
    updated_at = NOW()
`
	for _, u := range users {
		if _, err := dbx.Exec(q, u.Name, u.APIKey, u.Status, u.RateLimitRPS); err != nil {
			return fmt.Errorf("seed user %s: %w", u.Name, err)
		}
	}
	return nil
}

// seedAccounts gives the first demo user one connected account per
// enabled provider, with a fresh token.
func seedAccounts(dbx *sqlx.DB) error {
	var userID int64
	if err := dbx.Get(&userID, `SELECT id FROM users WHERE api_key = ? LIMIT 1`,
		"11111111111111111111111111111111"); err != nil {
		return fmt.Errorf("lookup demo user: %w", err)
	}

	accounts := []struct {
		provider string
		name     string
	}{
		{"instagram", "acme.media"},
		{"facebook", "Acme Media Page"},
	}

	for _, a := range accounts {
		var existing string
		err := dbx.Get(&existing, `
			SELECT id FROM social_accounts WHERE user_id = ? AND provider = ? LIMIT 1
		`, userID, a.provider)
		if err == nil {
			continue // already seeded
		}

		accID := util.NewID()
		if _, err := dbx.Exec(`
			INSERT INTO social_accounts
			    (id, user_id, provider, provider_account_id, display_name, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, 'active', NOW(), NOW())
		`, accID, userID, a.provider, "ext-"+accID[:8], a.name); err != nil {
			return fmt.Errorf("seed account %s: %w", a.provider, err)
		}

		if _, err := dbx.Exec(`
			INSERT INTO account_tokens (id, account_id, access_token, created_at)
			VALUES (?, ?, ?, ?)
		`, util.NewID(), accID, "demo-token-"+accID[:8], time.Now()); err != nil {
			return fmt.Errorf("seed token %s: %w", a.provider, err)
		}
	}
	return nil
}

func intptr(v int) *int { return &v }
