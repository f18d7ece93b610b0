package scan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/loxe-ai/evidence-tracer/pkg/models/store"
	"github.com/loxe-ai/evidence-tracer/pkg/store/postgres"
)

const (
	statusRunning = "RUNNING"

	uniqueViolation pq.ErrorCode = "23505"
)

type Store interface {
	Create(ctx context.Context, scanID, accountID string) (*store.Scan, error)
	Get(ctx context.Context, scanID string) (*store.Scan, error)
	Finalize(ctx context.Context, update store.ScanUpdate) error
}

type defaultStore struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &defaultStore{
		db: db,
	}, nil
}

func (s *defaultStore) Create(ctx context.Context, scanID, accountID string) (*store.Scan, error) {
	var res store.Scan
	err := sqlx.GetContext(ctx, postgres.Conn(ctx, s.db), &res, `
		INSERT INTO scans (id, account_id, status, score, findings)
		VALUES ($1, $2, $3, 0, '[]')
		RETURNING id, account_id, status, score, findings, error, created_at, updated_at`,
		scanID, accountID, statusRunning,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return nil, fmt.Errorf("%w: %s", postgres.ErrScanExists, scanID)
	}
	if err != nil {
		return nil, fmt.Errorf("create scan: %w", err)
	}
	return &res, nil
}

func (s *defaultStore) Get(ctx context.Context, scanID string) (*store.Scan, error) {
	var res store.Scan
	err := sqlx.GetContext(ctx, postgres.Conn(ctx, s.db), &res, `
		SELECT id, account_id, status, score, findings, error, created_at, updated_at
		FROM scans
		WHERE id = $1`, scanID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", postgres.ErrScanNotFound, scanID)
	}
	if err != nil {
		return nil, fmt.Errorf("get scan: %w", err)
	}
	return &res, nil
}

// Finalize writes the terminal state of a scan. Only a RUNNING scan can be
// finalized; a scan row is immutable afterwards.
func (s *defaultStore) Finalize(ctx context.Context, update store.ScanUpdate) error {
	findings := string(update.Findings)
	if findings == "" {
		findings = "[]"
	}

	var reason sql.NullString
	if update.Error != nil {
		reason = sql.NullString{String: *update.Error, Valid: true}
	}

	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE scans
		SET status = $1, score = $2, findings = $3, error = $4, updated_at = now()
		WHERE id = $5 AND status = $6`,
		update.Status, update.Score, findings, reason, update.ID, statusRunning,
	)
	if err != nil {
		return fmt.Errorf("update scan: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update scan: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", postgres.ErrScanNotRunning, update.ID)
	}
	return nil
}
