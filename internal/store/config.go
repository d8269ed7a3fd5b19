// Package store holds the Postgres persistence for tenant configuration and
// payment requests. All queries are tenant-scoped; no statement ever crosses
// tenant boundaries.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/premiumbot/core/logger"
	"log/slog"
)

// Config reads and writes per-tenant configuration values. Reads never fail
// upward: a missing row, an empty value, or a query error all resolve to the
// caller's default so a database hiccup degrades views instead of breaking
// them.
type Config struct {
	db *sqlx.DB
}

func NewConfig(db *sqlx.DB) *Config {
	return &Config{db: db}
}

// Get returns the stored value, or def when the key is unset or empty.
func (c *Config) Get(ctx context.Context, tenantID, key, def string) string {
	var value string
	err := c.db.GetContext(ctx, &value,
		`SELECT value FROM bot_config WHERE tenant_id = $1 AND key = $2`,
		tenantID, key,
	)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logger.DB.Warn("config read failed",
				slog.String("event", "config.get"),
				slog.String("tenant", tenantID),
				slog.String("key", key),
				slog.String("err", err.Error()),
			)
		}
		return def
	}
	if value == "" {
		return def
	}
	return value
}

// Set upserts the value. Setting an empty string effectively unsets the key.
func (c *Config) Set(ctx context.Context, tenantID, key, value string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO bot_config (tenant_id, key, value)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (tenant_id, key)
		 DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		tenantID, key, value,
	)
	if err != nil {
		return fmt.Errorf("config set %s/%s: %w", tenantID, key, err)
	}
	return nil
}
