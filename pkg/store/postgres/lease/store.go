package lease

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/loxe-ai/evidence-tracer/pkg/store/postgres"
)

// Store serializes reconciliation per account across processes. A lease is
// a row in account_leases; an expired lease may be taken over.
type Store interface {
	Acquire(ctx context.Context, accountID, holder string, now time.Time, ttl time.Duration) error
	Verify(ctx context.Context, accountID, holder string) error
	Release(ctx context.Context, accountID, holder string) error
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

func (s *defaultStore) Acquire(ctx context.Context, accountID, holder string, now time.Time, ttl time.Duration) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO account_leases (account_id, holder, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id) DO UPDATE SET
			holder = EXCLUDED.holder,
			expires_at = EXCLUDED.expires_at
		WHERE account_leases.expires_at < $4 OR account_leases.holder = EXCLUDED.holder`,
		accountID, holder, now.Add(ttl), now,
	)
	if err != nil {
		return fmt.Errorf("acquire lease: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("acquire lease: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", postgres.ErrLeaseHeld, accountID)
	}
	return nil
}

// Verify locks the lease row for the current transaction and checks that
// holder still owns it.
func (s *defaultStore) Verify(ctx context.Context, accountID, holder string) error {
	var current string
	err := sqlx.GetContext(ctx, postgres.Conn(ctx, s.db), &current,
		`SELECT holder FROM account_leases WHERE account_id = $1 FOR UPDATE`, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: lease for %s is gone", postgres.ErrLeaseHeld, accountID)
	}
	if err != nil {
		return fmt.Errorf("verify lease: %w", err)
	}
	if current != holder {
		return fmt.Errorf("%w: %s", postgres.ErrLeaseHeld, accountID)
	}
	return nil
}

func (s *defaultStore) Release(ctx context.Context, accountID, holder string) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx,
		`DELETE FROM account_leases WHERE account_id = $1 AND holder = $2`, accountID, holder)
	if err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	return nil
}
