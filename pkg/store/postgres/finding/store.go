package finding

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/loxe-ai/evidence-tracer/pkg/models/store"
	"github.com/loxe-ai/evidence-tracer/pkg/store/postgres"
)

type Store interface {
	Clear(ctx context.Context, assetIDs []string) (int64, error)
	Insert(ctx context.Context, findings []store.Finding) error
	ListByAssets(ctx context.Context, assetIDs []string) ([]store.Finding, error)
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

func (s *defaultStore) Clear(ctx context.Context, assetIDs []string) (int64, error) {
	if len(assetIDs) == 0 {
		return 0, nil
	}

	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx,
		`DELETE FROM findings WHERE asset_id = ANY($1::uuid[])`, pq.Array(assetIDs))
	if err != nil {
		return 0, fmt.Errorf("clear findings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear findings: %w", err)
	}
	return n, nil
}

func (s *defaultStore) Insert(ctx context.Context, findings []store.Finding) error {
	if len(findings) == 0 {
		return nil
	}

	query := `
		INSERT INTO findings (
			id, control_id, status, description, severity, asset_id, scan_id, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)`

	stmt, err := postgres.Conn(ctx, s.db).PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, f := range findings {
		_, err = stmt.ExecContext(ctx,
			f.ID,
			f.ControlID,
			f.Status,
			f.Description,
			f.Severity,
			f.AssetID,
			f.ScanID,
			f.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert finding: %w", err)
		}
	}

	return nil
}

func (s *defaultStore) ListByAssets(ctx context.Context, assetIDs []string) ([]store.Finding, error) {
	findings := make([]store.Finding, 0)
	if len(assetIDs) == 0 {
		return findings, nil
	}

	err := sqlx.SelectContext(ctx, postgres.Conn(ctx, s.db), &findings, `
		SELECT id, control_id, status, description, severity, asset_id, scan_id, updated_at
		FROM findings
		WHERE asset_id = ANY($1::uuid[])
		ORDER BY updated_at DESC`, pq.Array(assetIDs))
	if err != nil {
		return nil, fmt.Errorf("list findings: %w", err)
	}
	return findings, nil
}
