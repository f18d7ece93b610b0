package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const AssetsTableSchema = `
	CREATE TABLE IF NOT EXISTS assets (
		id UUID PRIMARY KEY,
		account_id TEXT NOT NULL,
		resource_id TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		provider TEXT NOT NULL,
		region TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'UNKNOWN',
		metadata JSONB NOT NULL DEFAULT '{}',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (account_id, resource_id)
	);
`

const ScansTableSchema = `
	CREATE TABLE IF NOT EXISTS scans (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		status TEXT NOT NULL,
		score INTEGER NOT NULL DEFAULT 0,
		findings JSONB NOT NULL DEFAULT '[]',
		error TEXT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
`

const FindingsTableSchema = `
	CREATE TABLE IF NOT EXISTS findings (
		id UUID PRIMARY KEY,
		control_id TEXT NOT NULL,
		status TEXT NOT NULL,
		description TEXT NOT NULL,
		severity TEXT NOT NULL,
		asset_id UUID NOT NULL REFERENCES assets (id) ON DELETE CASCADE,
		scan_id TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_findings_asset_id ON findings (asset_id);
	CREATE INDEX IF NOT EXISTS idx_findings_scan_id ON findings (scan_id);
`

const AccountLeasesTableSchema = `
	CREATE TABLE IF NOT EXISTS account_leases (
		account_id TEXT PRIMARY KEY,
		holder TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	);
`

var BootQueries = []string{
	AssetsTableSchema,
	ScansTableSchema,
	FindingsTableSchema,
	AccountLeasesTableSchema,
}

type Settings struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

func DefaultSettings(dsn string) Settings {
	return Settings{
		DSN:             dsn,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
		PingTimeout:     5 * time.Second,
	}
}

// NewDB opens a bounded connection pool and verifies it with a ping. The
// schema is not touched; call Migrate for that.
func NewDB(ctx context.Context, settings Settings) (*sqlx.DB, error) {
	if settings.DSN == "" {
		return nil, fmt.Errorf("database DSN is empty")
	}

	db, err := sqlx.Open("postgres", settings.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	Configure(db, settings)

	if err := Ping(ctx, db, settings.PingTimeout); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func Configure(db *sqlx.DB, settings Settings) {
	if settings.MaxOpenConns > 0 {
		db.SetMaxOpenConns(settings.MaxOpenConns)
	}
	if settings.MaxIdleConns > 0 {
		db.SetMaxIdleConns(settings.MaxIdleConns)
	}
	if settings.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(settings.ConnMaxLifetime)
	}
	if settings.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(settings.ConnMaxIdleTime)
	}
}

func Ping(ctx context.Context, db *sqlx.DB, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, query := range BootQueries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
