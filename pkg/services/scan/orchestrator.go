package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/loxe-ai/evidence-tracer/pkg/adapters"
	"github.com/loxe-ai/evidence-tracer/pkg/metrics"
	"github.com/loxe-ai/evidence-tracer/pkg/models/domain"
	"github.com/loxe-ai/evidence-tracer/pkg/services/credentials"
	"github.com/loxe-ai/evidence-tracer/pkg/services/inventory"
	"github.com/loxe-ai/evidence-tracer/pkg/services/rules"
	"github.com/loxe-ai/evidence-tracer/pkg/store/postgres"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

const (
	DefaultLeaseTTL = 15 * time.Minute
	streamBuffer    = 100
)

// Gateway is the subset of the persistence gateway a scan writes through.
type Gateway interface {
	UpsertAssets(ctx context.Context, accountID string, assets []domain.Asset) error
	GetAssetMap(ctx context.Context, accountID string) (map[string]string, error)
	UpdateAssetStatus(ctx context.Context, accountID, resourceID string, status domain.AssetStatus) error
	ReplaceFindings(ctx context.Context, accountID, scanID string, assetIDs []string, findings []domain.Finding) error
	UpdateScan(
		ctx context.Context,
		scanID string,
		status domain.ScanStatus,
		score int,
		findings []byte,
		reason *string,
	) error
	AcquireLease(ctx context.Context, accountID, holder string, ttl time.Duration) (func(context.Context) error, error)
	RenewLease(ctx context.Context, accountID, holder string, ttl time.Duration) error
}

type Config struct {
	Broker    credentials.Broker
	Collector inventory.Collector
	Evaluator rules.Evaluator
	Catalog   *rules.Catalog
	Gateway   Gateway
	Recorder  metrics.Recorder
	LeaseTTL  time.Duration
	Now       func() time.Time
}

type Orchestrator struct {
	broker    credentials.Broker
	collector inventory.Collector
	evaluator rules.Evaluator
	catalog   *rules.Catalog
	gateway   Gateway
	recorder  metrics.Recorder
	leaseTTL  time.Duration
	now       func() time.Time
}

func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	if cfg.Broker == nil {
		return nil, fmt.Errorf("credential broker is nil")
	}
	if cfg.Collector == nil {
		return nil, fmt.Errorf("inventory collector is nil")
	}
	if cfg.Evaluator == nil {
		return nil, fmt.Errorf("rule evaluator is nil")
	}
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("persistence gateway is nil")
	}

	o := &Orchestrator{
		broker:    cfg.Broker,
		collector: cfg.Collector,
		evaluator: cfg.Evaluator,
		catalog:   cfg.Catalog,
		gateway:   cfg.Gateway,
		recorder:  cfg.Recorder,
		leaseTTL:  cfg.LeaseTTL,
		now:       cfg.Now,
	}
	if o.recorder == nil {
		o.recorder = metrics.Record()
	}
	if o.leaseTTL <= 0 {
		o.leaseTTL = DefaultLeaseTTL
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o, nil
}

// CollectAssets assumes the customer role, enumerates the account and
// upserts what it finds. The scan row is not touched.
func (o *Orchestrator) CollectAssets(ctx context.Context, req Request) (domain.Inventory, error) {
	session, err := o.broker.Acquire(ctx, req.RoleARN, req.ExternalID, req.Region)
	if err != nil {
		return domain.Inventory{}, err
	}
	defer session.Destroy()

	inv, _, err := o.collect(ctx, req.AccountID, session)
	return inv, err
}

// RunChecks runs the whole scan and records its outcome on the scan row.
// The result is returned on failure too, with State set to FAILED.
func (o *Orchestrator) RunChecks(ctx context.Context, req Request) (*Result, error) {
	return o.run(ctx, req, func(Event) {})
}

// Stream runs the scan like RunChecks and reports progress on the returned
// channel, which is closed after the EventDone event. The caller must drain it.
func (o *Orchestrator) Stream(ctx context.Context, req Request) <-chan Event {
	events := make(chan Event, streamBuffer)
	go func() {
		defer close(events)
		_, _ = o.run(ctx, req, func(e Event) {
			events <- e
		})
	}()
	return events
}

func (o *Orchestrator) run(ctx context.Context, req Request, emit func(Event)) (*Result, error) {
	logger := zerolog.Ctx(ctx).With().
		Str("scan_id", req.ScanID).
		Str("account_id", req.AccountID).
		Logger()
	ctx = logger.WithContext(ctx)

	started := o.now()
	o.recorder.ScanStarted()

	res := &Result{
		ScanID:    req.ScanID,
		AccountID: req.AccountID,
		Findings:  []domain.EvidenceFinding{},
	}
	o.transition(ctx, res, emit, StateStarted)

	err := o.execute(ctx, req, res, emit)
	if err != nil {
		o.fail(ctx, res, err)
		emit(Event{Type: EventState, State: StateFailed})
	}

	o.recorder.ScanFinished(string(res.State), o.now().Sub(started))
	emit(Event{Type: EventDone, State: res.State, Result: res, Err: err})
	return res, err
}

func (o *Orchestrator) execute(ctx context.Context, req Request, res *Result, emit func(Event)) error {
	logger := zerolog.Ctx(ctx)

	session, err := o.broker.Acquire(ctx, req.RoleARN, req.ExternalID, req.Region)
	if err != nil {
		return err
	}
	defer session.Destroy()
	o.transition(ctx, res, emit, StateCredentialed)

	inv, assetMap, err := o.collect(ctx, req.AccountID, session)
	if err != nil {
		return err
	}
	res.Warnings = inv.Warnings
	emit(Event{Type: EventTotal, State: StateCredentialed, Total: len(inv.Assets)})
	o.transition(ctx, res, emit, StateInventoried)

	release, err := o.gateway.AcquireLease(ctx, req.AccountID, req.ScanID, o.leaseTTL)
	if err != nil {
		return fmt.Errorf("lock account %s: %w", req.AccountID, err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn().Err(err).Msg("failed to release account lease")
		}
	}()

	leasedAt := o.now()
	renew := func() error {
		if err := o.gateway.RenewLease(ctx, req.AccountID, req.ScanID, o.leaseTTL); err != nil {
			return fmt.Errorf("renew lease on account %s: %w", req.AccountID, err)
		}
		leasedAt = o.now()
		return nil
	}

	for _, a := range inv.Assets {
		if o.now().Sub(leasedAt) > o.leaseTTL/2 {
			if err := renew(); err != nil {
				return err
			}
		}

		findings := o.evaluator.Evaluate(ctx, session, a.ResourceID, a.Region)
		for i := range findings {
			f := findings[i]
			logger.Debug().
				Str("resource", f.Resource).
				Str("control", f.ControlID).
				Str("status", string(f.Status)).
				Msg("resource evaluated")
			o.recorder.FindingEvaluated(f.ControlID, string(f.Status))
			emit(Event{Type: EventFinding, State: StateInventoried, Finding: &f})
		}
		res.Findings = append(res.Findings, findings...)

		status := domain.AssetStatusOf(findings)
		err := o.gateway.UpdateAssetStatus(ctx, req.AccountID, a.ResourceID, status)
		if errors.Is(err, postgres.ErrAssetNotFound) {
			logger.Warn().Str("resource", a.ResourceID).Msg("asset vanished before status update")
			continue
		}
		if err != nil {
			return fmt.Errorf("update status of %s: %w", a.ResourceID, err)
		}
	}
	o.transition(ctx, res, emit, StateEvaluated)

	if err := renew(); err != nil {
		return err
	}
	if err := o.reconcile(ctx, req, inv, assetMap, res.Findings); err != nil {
		return err
	}
	o.transition(ctx, res, emit, StateReconciled)

	res.Score = Score(res.Findings)
	blob, err := json.Marshal(res.Findings)
	if err != nil {
		return fmt.Errorf("encode findings: %w", err)
	}
	if err := o.gateway.UpdateScan(ctx, req.ScanID, domain.ScanStatusCompleted, res.Score, blob, nil); err != nil {
		return fmt.Errorf("persist scan result: %w", err)
	}
	o.transition(ctx, res, emit, StateCompleted)

	logger.Info().
		Int("score", res.Score).
		Int("findings", len(res.Findings)).
		Int("failures", res.Failures()).
		Msg("scan completed")
	return nil
}

// collect enumerates the account, upserts the assets and returns the
// resource id to internal id map the findings are keyed on.
func (o *Orchestrator) collect(
	ctx context.Context,
	accountID string,
	session *credentials.Session,
) (domain.Inventory, map[string]string, error) {
	logger := zerolog.Ctx(ctx)

	inv := o.collector.CollectAssets(ctx, session)
	for _, w := range inv.Warnings {
		logger.Warn().Str("warning", w).Msg("inventory degraded")
	}
	o.recorder.InventoryWarnings(len(inv.Warnings))

	now := o.now().UTC()
	for i := range inv.Assets {
		inv.Assets[i].AccountID = accountID
		if inv.Assets[i].UpdatedAt.IsZero() {
			inv.Assets[i].UpdatedAt = now
		}
	}

	if err := o.gateway.UpsertAssets(ctx, accountID, inv.Assets); err != nil {
		return inv, nil, fmt.Errorf("persist assets: %w", err)
	}

	assetMap, err := o.gateway.GetAssetMap(ctx, accountID)
	if err != nil {
		return inv, nil, fmt.Errorf("load asset map: %w", err)
	}

	logger.Info().Int("assets", len(inv.Assets)).Msg("inventory collected")
	return inv, assetMap, nil
}

// reconcile replaces the findings of every asset in this inventory with the
// failing findings of this scan.
func (o *Orchestrator) reconcile(
	ctx context.Context,
	req Request,
	inv domain.Inventory,
	assetMap map[string]string,
	findings []domain.EvidenceFinding,
) error {
	logger := zerolog.Ctx(ctx)

	touched := lo.Uniq(lo.FilterMap(inv.Assets, func(a domain.Asset, _ int) (string, bool) {
		id, ok := assetMap[a.ResourceID]
		return id, ok
	}))

	now := o.now().UTC()
	rows := make([]domain.Finding, 0)
	for _, f := range findings {
		if !f.Failed() {
			continue
		}
		assetID, ok := assetMap[f.Resource]
		if !ok {
			logger.Debug().Str("resource", f.Resource).Msg("no asset for finding, skipping row")
			continue
		}
		rows = append(rows, adapters.MapEvidenceToFinding(f, assetID, req.ScanID, o.catalog.Severity(f.ControlID), now))
	}

	if err := o.gateway.ReplaceFindings(ctx, req.AccountID, req.ScanID, touched, rows); err != nil {
		return fmt.Errorf("reconcile findings: %w", err)
	}
	return nil
}

func (o *Orchestrator) transition(ctx context.Context, res *Result, emit func(Event), next State) {
	res.State = next
	zerolog.Ctx(ctx).Info().Str("state", string(next)).Msg("scan state changed")
	emit(Event{Type: EventState, State: next})
}

// fail records the terminal FAILED state. A failure to write it is logged
// and not retried.
func (o *Orchestrator) fail(ctx context.Context, res *Result, cause error) {
	logger := zerolog.Ctx(ctx)

	res.State = StateFailed
	res.Score = 0
	res.Reason = FailureReason(cause)
	logger.Error().Err(cause).Msg("scan failed")

	reason := res.Reason
	if err := o.gateway.UpdateScan(ctx, res.ScanID, domain.ScanStatusFailed, 0, []byte("[]"), &reason); err != nil {
		logger.Error().Err(err).Msg("failed to persist scan failure")
	}
}

// FailureReason is the text stored on a failed scan. Credential errors keep
// their customer-facing message.
func FailureReason(err error) string {
	var credErr *credentials.Error
	if errors.As(err, &credErr) {
		return credErr.Error()
	}
	return err.Error()
}
