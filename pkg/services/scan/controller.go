package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/loxe-ai/evidence-tracer/pkg/models/domain"
	"github.com/rs/zerolog"
)

var (
	ErrInvalidRequest     = errors.New("invalid scan request")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

type Runner interface {
	RunChecks(ctx context.Context, req Request) (*Result, error)
}

type Store interface {
	Ping(ctx context.Context) error
	CreateScan(ctx context.Context, scanID, accountID string) (*domain.Scan, error)
	GetScan(ctx context.Context, scanID string) (*domain.Scan, error)
}

// Controller accepts scan requests and runs them in the background. Scans
// of the same account are queued and run one at a time.
type Controller struct {
	runner Runner
	store  Store

	mu       sync.Mutex
	accounts map[string]*sync.Mutex
	wg       sync.WaitGroup
}

func NewController(runner Runner, store Store) *Controller {
	return &Controller{
		runner:   runner,
		store:    store,
		accounts: make(map[string]*sync.Mutex),
	}
}

// StartScan records a RUNNING scan row and returns it. The outcome is only
// observable through the persisted scan.
func (c *Controller) StartScan(ctx context.Context, req Request) (*domain.Scan, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if req.ScanID == "" {
		req.ScanID = uuid.NewString()
	}

	if err := c.store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	sc, err := c.store.CreateScan(ctx, req.ScanID, req.AccountID)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx)
	logger.Info().
		Str("scan_id", req.ScanID).
		Str("account_id", req.AccountID).
		Msg("scan accepted")

	bg := context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		lock := c.accountLock(req.AccountID)
		lock.Lock()
		defer lock.Unlock()

		// the error is already recorded on the scan row
		_, _ = c.runner.RunChecks(bg, req)
	}()

	return sc, nil
}

func (c *Controller) GetScan(ctx context.Context, scanID string) (*domain.Scan, error) {
	return c.store.GetScan(ctx, scanID)
}

// Wait blocks until every accepted scan has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) accountLock(accountID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock, ok := c.accounts[accountID]
	if !ok {
		lock = &sync.Mutex{}
		c.accounts[accountID] = lock
	}
	return lock
}

func validate(req Request) error {
	switch {
	case req.AccountID == "":
		return fmt.Errorf("%w: account_id is required", ErrInvalidRequest)
	case req.RoleARN == "":
		return fmt.Errorf("%w: role_arn is required", ErrInvalidRequest)
	case req.ExternalID == "":
		return fmt.Errorf("%w: external_id is required", ErrInvalidRequest)
	}
	return nil
}
