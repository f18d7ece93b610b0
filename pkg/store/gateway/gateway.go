package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/loxe-ai/evidence-tracer/pkg/adapters"
	"github.com/loxe-ai/evidence-tracer/pkg/models/domain"
	"github.com/loxe-ai/evidence-tracer/pkg/models/store"
	"github.com/loxe-ai/evidence-tracer/pkg/store/postgres"
	"github.com/loxe-ai/evidence-tracer/pkg/store/postgres/asset"
	"github.com/loxe-ai/evidence-tracer/pkg/store/postgres/finding"
	"github.com/loxe-ai/evidence-tracer/pkg/store/postgres/lease"
	"github.com/loxe-ai/evidence-tracer/pkg/store/postgres/scan"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Gateway is the only component that mutates durable state.
type Gateway struct {
	db       *sqlx.DB
	assets   asset.Store
	findings finding.Store
	scans    scan.Store
	leases   lease.Store
	now      func() time.Time
	pingWait time.Duration
}

const defaultPingWait = 5 * time.Second

// New builds the gateway over db. pingWait bounds each health probe; zero
// or less uses a 5s default.
func New(db *sqlx.DB, pingWait time.Duration) (*Gateway, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	assets, err := asset.NewStore(db)
	if err != nil {
		return nil, err
	}
	findings, err := finding.NewStore(db)
	if err != nil {
		return nil, err
	}
	scans, err := scan.NewStore(db)
	if err != nil {
		return nil, err
	}
	leases, err := lease.NewStore(db)
	if err != nil {
		return nil, err
	}

	return &Gateway{
		db:       db,
		assets:   assets,
		findings: findings,
		scans:    scans,
		leases:   leases,
		now:      func() time.Time { return time.Now().UTC() },
		pingWait: lo.Ternary(pingWait > 0, pingWait, defaultPingWait),
	}, nil
}

func (g *Gateway) Ping(ctx context.Context) error {
	return postgres.Ping(ctx, g.db, g.pingWait)
}

func (g *Gateway) UpsertAssets(ctx context.Context, accountID string, assets []domain.Asset) error {
	rows := make([]store.Asset, 0, len(assets))
	for _, a := range assets {
		row, err := adapters.MapDomainAssetToStore(a, accountID)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	return postgres.InTransaction(ctx, g.db, func(ctx context.Context) error {
		return g.assets.Upsert(ctx, accountID, rows)
	})
}

func (g *Gateway) GetAssetMap(ctx context.Context, accountID string) (map[string]string, error) {
	return g.assets.GetAssetMap(ctx, accountID)
}

func (g *Gateway) UpdateAssetStatus(
	ctx context.Context,
	accountID string,
	resourceID string,
	status domain.AssetStatus,
) error {
	return g.assets.UpdateStatus(ctx, accountID, resourceID, string(status), g.now())
}

func (g *Gateway) ListAssets(ctx context.Context, accountID string) ([]domain.Asset, error) {
	rows, err := g.assets.List(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return lo.Map(rows, func(a store.Asset, _ int) domain.Asset {
		return adapters.MapStoreAssetToDomain(a)
	}), nil
}

func (g *Gateway) ClearFindings(ctx context.Context, assetIDs []string) error {
	_, err := g.findings.Clear(ctx, assetIDs)
	return err
}

func (g *Gateway) InsertFindings(ctx context.Context, findings []domain.Finding) error {
	return g.findings.Insert(ctx, lo.Map(findings, func(f domain.Finding, _ int) store.Finding {
		return adapters.MapDomainFindingToStore(f)
	}))
}

func (g *Gateway) ListFindings(ctx context.Context, assetIDs []string) ([]domain.Finding, error) {
	rows, err := g.findings.ListByAssets(ctx, assetIDs)
	if err != nil {
		return nil, err
	}
	return lo.Map(rows, func(f store.Finding, _ int) domain.Finding {
		return adapters.MapStoreFindingToDomain(f)
	}), nil
}

// ReplaceFindings clears the findings of assetIDs and writes findings in one
// transaction, after confirming that scanID still holds the account lease.
func (g *Gateway) ReplaceFindings(
	ctx context.Context,
	accountID string,
	scanID string,
	assetIDs []string,
	findings []domain.Finding,
) error {
	logger := zerolog.Ctx(ctx)

	return postgres.InTransaction(ctx, g.db, func(ctx context.Context) error {
		if err := g.leases.Verify(ctx, accountID, scanID); err != nil {
			return err
		}

		cleared, err := g.findings.Clear(ctx, assetIDs)
		if err != nil {
			return err
		}

		if err := g.InsertFindings(ctx, findings); err != nil {
			return err
		}

		logger.Debug().
			Int64("cleared", cleared).
			Int("inserted", len(findings)).
			Msg("findings reconciled")
		return nil
	})
}

func (g *Gateway) CreateScan(ctx context.Context, scanID, accountID string) (*domain.Scan, error) {
	row, err := g.scans.Create(ctx, scanID, accountID)
	if err != nil {
		return nil, err
	}
	return adapters.MapStoreScanToDomain(row), nil
}

func (g *Gateway) GetScan(ctx context.Context, scanID string) (*domain.Scan, error) {
	row, err := g.scans.Get(ctx, scanID)
	if err != nil {
		return nil, err
	}
	return adapters.MapStoreScanToDomain(row), nil
}

func (g *Gateway) UpdateScan(
	ctx context.Context,
	scanID string,
	status domain.ScanStatus,
	score int,
	findings []byte,
	reason *string,
) error {
	return g.scans.Finalize(ctx, store.ScanUpdate{
		ID:       scanID,
		Status:   string(status),
		Score:    score,
		Findings: findings,
		Error:    reason,
	})
}

// AcquireLease takes the reconciliation lease of an account for holder. The
// returned function releases it.
func (g *Gateway) AcquireLease(
	ctx context.Context,
	accountID string,
	holder string,
	ttl time.Duration,
) (func(context.Context) error, error) {
	if err := g.leases.Acquire(ctx, accountID, holder, g.now(), ttl); err != nil {
		return nil, err
	}
	return func(ctx context.Context) error {
		return g.leases.Release(ctx, accountID, holder)
	}, nil
}

// RenewLease pushes the lease expiry of holder out by ttl. It fails with
// ErrLeaseHeld once another holder has taken over.
func (g *Gateway) RenewLease(ctx context.Context, accountID, holder string, ttl time.Duration) error {
	return g.leases.Acquire(ctx, accountID, holder, g.now(), ttl)
}
