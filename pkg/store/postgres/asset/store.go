package asset

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/loxe-ai/evidence-tracer/pkg/models/store"
	"github.com/loxe-ai/evidence-tracer/pkg/store/postgres"
)

type Store interface {
	Upsert(ctx context.Context, accountID string, assets []store.Asset) error
	GetAssetMap(ctx context.Context, accountID string) (map[string]string, error)
	UpdateStatus(ctx context.Context, accountID, resourceID, status string, updatedAt time.Time) error
	List(ctx context.Context, accountID string) ([]store.Asset, error)
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

// Upsert inserts assets keyed on (account_id, resource_id). The id column is
// written only on first insert, so an existing asset keeps its id.
func (s *defaultStore) Upsert(ctx context.Context, accountID string, assets []store.Asset) error {
	if len(assets) == 0 {
		return nil
	}

	query := `
		INSERT INTO assets (
			id, account_id, resource_id, name, type, provider,
			region, status, metadata, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
		ON CONFLICT (account_id, resource_id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			provider = EXCLUDED.provider,
			region = EXCLUDED.region,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at`

	stmt, err := postgres.Conn(ctx, s.db).PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, a := range assets {
		id := a.ID
		if id == "" {
			id = uuid.NewString()
		}
		metadata := string(a.Metadata)
		if metadata == "" {
			metadata = "{}"
		}
		updatedAt := a.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = time.Now().UTC()
		}

		_, err = stmt.ExecContext(ctx,
			id,
			accountID,
			a.ResourceID,
			a.Name,
			a.Type,
			a.Provider,
			a.Region,
			a.Status,
			metadata,
			updatedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert asset %s: %w", a.ResourceID, err)
		}
	}

	return nil
}

func (s *defaultStore) GetAssetMap(ctx context.Context, accountID string) (map[string]string, error) {
	var refs []store.AssetRef
	err := sqlx.SelectContext(ctx, postgres.Conn(ctx, s.db), &refs,
		`SELECT id, resource_id FROM assets WHERE account_id = $1`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query asset map: %w", err)
	}

	res := make(map[string]string, len(refs))
	for _, r := range refs {
		res[r.ResourceID] = r.ID
	}
	return res, nil
}

func (s *defaultStore) UpdateStatus(
	ctx context.Context,
	accountID string,
	resourceID string,
	status string,
	updatedAt time.Time,
) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx,
		`UPDATE assets SET status = $1, updated_at = $2 WHERE account_id = $3 AND resource_id = $4`,
		status, updatedAt, accountID, resourceID,
	)
	if err != nil {
		return fmt.Errorf("update asset status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update asset status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", postgres.ErrAssetNotFound, resourceID)
	}
	return nil
}

func (s *defaultStore) List(ctx context.Context, accountID string) ([]store.Asset, error) {
	assets := make([]store.Asset, 0)
	err := sqlx.SelectContext(ctx, postgres.Conn(ctx, s.db), &assets, `
		SELECT id, account_id, resource_id, name, type, provider, region, status, metadata, updated_at
		FROM assets
		WHERE account_id = $1
		ORDER BY resource_id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return assets, nil
}
