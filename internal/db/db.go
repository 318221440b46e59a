// internal/db/db.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/unclebandit/partnerconnex-backend/internal/config"
	"github.com/unclebandit/partnerconnex-backend/internal/logger"
)

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, cfg config.Database) (*sql.DB, error) {
	logger.GetLogger().
		WithField("host", cfg.Host).
		WithField("name", cfg.Name).
		WithField("user", cfg.User).
		Info("Connecting to database")

	conn, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(10)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.GetLogger().Info("✅ Connected to database")
	return conn, nil
}
