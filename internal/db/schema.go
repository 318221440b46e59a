package db

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS campaigns (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		summary TEXT NOT NULL DEFAULT '',
		requirements TEXT NOT NULL DEFAULT '',
		restrictions TEXT NOT NULL DEFAULT '',
		platforms TEXT[] NOT NULL DEFAULT '{}',
		deadline DATE NOT NULL,
		nda_url TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'open',
		contact_email TEXT NOT NULL DEFAULT '',
		management_sheet_url TEXT NOT NULL DEFAULT '',
		report_url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS campaign_creators (
		id TEXT PRIMARY KEY,
		campaign_id TEXT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		account_url TEXT NOT NULL DEFAULT '',
		deliverable_url TEXT NOT NULL DEFAULT '',
		position INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS submissions (
		id TEXT PRIMARY KEY,
		campaign_id TEXT NOT NULL REFERENCES campaigns(id),
		activity_name TEXT NOT NULL,
		main_sns TEXT NOT NULL,
		main_account TEXT NOT NULL,
		social_accounts JSONB NOT NULL DEFAULT '[]',
		gender_male INT NOT NULL,
		gender_female INT NOT NULL,
		contact_email TEXT,
		contact_line_id TEXT,
		memo TEXT,
		attachments TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS opt_ins (
		id TEXT PRIMARY KEY,
		campaign_id TEXT NOT NULL REFERENCES campaigns(id),
		activity_name TEXT,
		contact_email TEXT,
		contact_line_id TEXT,
		memo TEXT,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_campaigns_created_at ON campaigns(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_campaign_id ON submissions(campaign_id)`,
}

// EnsureSchema creates the tables used by the Postgres repositories if they do not exist.
func EnsureSchema(ctx context.Context, conn *sql.DB) error {
	for _, ddl := range schema {
		if _, err := conn.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
