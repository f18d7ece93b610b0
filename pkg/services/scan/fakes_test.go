package scan

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/loxe-ai/evidence-tracer/pkg/models/domain"
	"github.com/loxe-ai/evidence-tracer/pkg/services/credentials"
	"github.com/loxe-ai/evidence-tracer/pkg/store/postgres"
	"github.com/stretchr/testify/mock"
)

type mockBroker struct {
	mock.Mock
}

func (m *mockBroker) Acquire(ctx context.Context, roleARN, externalID, region string) (*credentials.Session, error) {
	args := m.Called(ctx, roleARN, externalID, region)
	if s := args.Get(0); s != nil {
		return s.(*credentials.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockCollector struct {
	mock.Mock
}

func (m *mockCollector) CollectAssets(ctx context.Context, session *credentials.Session) domain.Inventory {
	args := m.Called(ctx, session)
	return args.Get(0).(domain.Inventory)
}

// fakeControl reports a fixed status per resource; unknown resources pass.
type fakeControl struct {
	mu       sync.Mutex
	statuses map[string]domain.FindingStatus
	regions  map[string]string
}

func (c *fakeControl) ID() string {
	return "CC6.1"
}

func (c *fakeControl) regionOf(resourceID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.regions[resourceID]
}

func (c *fakeControl) set(resourceID string, status domain.FindingStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[resourceID] = status
}

func (c *fakeControl) Check(_ context.Context, _ *credentials.Session, resourceID, region string) domain.EvidenceFinding {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.regions == nil {
		c.regions = map[string]string{}
	}
	c.regions[resourceID] = region

	status, ok := c.statuses[resourceID]
	if !ok {
		status = domain.FindingStatusPass
	}
	return domain.EvidenceFinding{
		ControlID:   c.ID(),
		Resource:    resourceID,
		Status:      status,
		Description: fmt.Sprintf("checked %s", resourceID),
		Evidence:    map[string]any{"status": string(status)},
	}
}

type recordingRecorder struct {
	mu       sync.Mutex
	started  int
	finished map[string]int
	findings map[string]int
	warnings int
}

func newRecordingRecorder() *recordingRecorder {
	return &recordingRecorder{finished: map[string]int{}, findings: map[string]int{}}
}

func (r *recordingRecorder) ScanStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *recordingRecorder) ScanFinished(status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished[status]++
}

func (r *recordingRecorder) FindingEvaluated(_ string, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findings[status]++
}

func (r *recordingRecorder) InventoryWarnings(count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings += count
}

// memoryGateway keeps the same invariants as the Postgres gateway: stable
// asset ids, clear-then-write findings, single transition of a scan row and
// one lease holder per account.
type memoryGateway struct {
	mu       sync.Mutex
	assets   map[string]*domain.Asset
	findings map[string]domain.Finding
	scans    map[string]*domain.Scan
	leases   map[string]string

	upserts          int
	renewals         int
	unmapped         map[string]struct{}
	pingErr          error
	renewErr         error
	upsertErr        error
	replaceErr       error
	updateScanErr    error
	failedUpdateErr  error
	statusUpdateErrs map[string]error
}

func newMemoryGateway() *memoryGateway {
	return &memoryGateway{
		assets:           map[string]*domain.Asset{},
		findings:         map[string]domain.Finding{},
		scans:            map[string]*domain.Scan{},
		leases:           map[string]string{},
		statusUpdateErrs: map[string]error{},
	}
}

func assetKey(accountID, resourceID string) string {
	return accountID + "|" + resourceID
}

func (g *memoryGateway) Ping(context.Context) error {
	return g.pingErr
}

func (g *memoryGateway) CreateScan(_ context.Context, scanID, accountID string) (*domain.Scan, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.scans[scanID]; ok {
		return nil, fmt.Errorf("%w: %s", postgres.ErrScanExists, scanID)
	}
	sc := &domain.Scan{
		ID:        scanID,
		AccountID: accountID,
		Status:    domain.ScanStatusRunning,
		Findings:  []byte("[]"),
	}
	g.scans[scanID] = sc
	res := *sc
	return &res, nil
}

func (g *memoryGateway) GetScan(_ context.Context, scanID string) (*domain.Scan, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	sc, ok := g.scans[scanID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", postgres.ErrScanNotFound, scanID)
	}
	res := *sc
	return &res, nil
}

func (g *memoryGateway) UpsertAssets(_ context.Context, accountID string, assets []domain.Asset) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.upserts++
	if g.upsertErr != nil {
		return g.upsertErr
	}
	for _, a := range assets {
		key := assetKey(accountID, a.ResourceID)
		if existing, ok := g.assets[key]; ok {
			existing.Name = a.Name
			existing.Region = a.Region
			existing.Metadata = a.Metadata
			existing.UpdatedAt = a.UpdatedAt
			continue
		}
		row := a
		row.ID = uuid.NewString()
		row.AccountID = accountID
		if row.Status == "" {
			row.Status = domain.AssetStatusUnknown
		}
		g.assets[key] = &row
	}
	return nil
}

func (g *memoryGateway) GetAssetMap(_ context.Context, accountID string) (map[string]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	res := map[string]string{}
	for _, a := range g.assets {
		if _, skip := g.unmapped[a.ResourceID]; skip {
			continue
		}
		if a.AccountID == accountID {
			res[a.ResourceID] = a.ID
		}
	}
	return res, nil
}

func (g *memoryGateway) UpdateAssetStatus(
	_ context.Context,
	accountID string,
	resourceID string,
	status domain.AssetStatus,
) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.statusUpdateErrs[resourceID]; err != nil {
		return err
	}
	a, ok := g.assets[assetKey(accountID, resourceID)]
	if !ok {
		return fmt.Errorf("%w: %s", postgres.ErrAssetNotFound, resourceID)
	}
	a.Status = status
	return nil
}

func (g *memoryGateway) ReplaceFindings(
	_ context.Context,
	accountID string,
	scanID string,
	assetIDs []string,
	findings []domain.Finding,
) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.replaceErr != nil {
		return g.replaceErr
	}
	if g.leases[accountID] != scanID {
		return fmt.Errorf("%w: %s", postgres.ErrLeaseHeld, accountID)
	}

	touched := map[string]struct{}{}
	for _, id := range assetIDs {
		touched[id] = struct{}{}
	}
	for id, f := range g.findings {
		if _, ok := touched[f.AssetID]; ok {
			delete(g.findings, id)
		}
	}
	for _, f := range findings {
		g.findings[f.ID] = f
	}
	return nil
}

func (g *memoryGateway) UpdateScan(
	_ context.Context,
	scanID string,
	status domain.ScanStatus,
	score int,
	findings []byte,
	reason *string,
) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if status == domain.ScanStatusFailed && g.failedUpdateErr != nil {
		return g.failedUpdateErr
	}
	if status == domain.ScanStatusCompleted && g.updateScanErr != nil {
		return g.updateScanErr
	}

	sc, ok := g.scans[scanID]
	if !ok || sc.Status != domain.ScanStatusRunning {
		return fmt.Errorf("%w: %s", postgres.ErrScanNotRunning, scanID)
	}
	sc.Status = status
	sc.Score = score
	sc.Findings = findings
	sc.Error = reason
	return nil
}

func (g *memoryGateway) AcquireLease(
	_ context.Context,
	accountID string,
	holder string,
	_ time.Duration,
) (func(context.Context) error, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if current, ok := g.leases[accountID]; ok && current != holder {
		return nil, fmt.Errorf("%w: %s", postgres.ErrLeaseHeld, accountID)
	}
	g.leases[accountID] = holder

	return func(context.Context) error {
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.leases[accountID] == holder {
			delete(g.leases, accountID)
		}
		return nil
	}, nil
}

func (g *memoryGateway) RenewLease(_ context.Context, accountID, holder string, _ time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.renewals++
	if g.renewErr != nil {
		return g.renewErr
	}
	if current, ok := g.leases[accountID]; ok && current != holder {
		return fmt.Errorf("%w: %s", postgres.ErrLeaseHeld, accountID)
	}
	g.leases[accountID] = holder
	return nil
}

func (g *memoryGateway) asset(accountID, resourceID string) domain.Asset {
	g.mu.Lock()
	defer g.mu.Unlock()

	a, ok := g.assets[assetKey(accountID, resourceID)]
	if !ok {
		return domain.Asset{}
	}
	return *a
}

func (g *memoryGateway) findingRows() []domain.Finding {
	g.mu.Lock()
	defer g.mu.Unlock()

	res := make([]domain.Finding, 0, len(g.findings))
	for _, f := range g.findings {
		res = append(res, f)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].AssetID < res[j].AssetID
	})
	return res
}

func (g *memoryGateway) assetCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.assets)
}
