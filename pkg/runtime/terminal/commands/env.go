package commands

import (
	"context"
	"fmt"

	"github.com/loxe-ai/evidence-tracer/pkg/models/domain"
	"github.com/loxe-ai/evidence-tracer/pkg/services/config"
	"github.com/loxe-ai/evidence-tracer/pkg/services/scan"
)

type Scanner interface {
	Stream(ctx context.Context, req scan.Request) <-chan scan.Event
}

type ScanStore interface {
	CreateScan(ctx context.Context, scanID, accountID string) (*domain.Scan, error)
	GetScan(ctx context.Context, scanID string) (*domain.Scan, error)
}

// Deps is the runtime a command needs once it has to reach the database
// or a customer account.
type Deps struct {
	Scanner Scanner
	Scans   ScanStore
	Migrate func(ctx context.Context) error
	Close   func() error
}

type Loader func(ctx context.Context, cfg *config.Config) (*Deps, error)

// Env is populated by the root command before a subcommand runs.
type Env struct {
	Config *config.Config
	Load   Loader
}

func (e *Env) deps(ctx context.Context) (*Deps, func(), error) {
	if e.Load == nil {
		return nil, nil, fmt.Errorf("no runtime loader configured")
	}
	d, err := e.Load(ctx, e.Config)
	if err != nil {
		return nil, nil, err
	}
	return d, func() {
		if d.Close != nil {
			_ = d.Close()
		}
	}, nil
}
