package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/loxe-ai/evidence-tracer/pkg/metrics"
	"github.com/loxe-ai/evidence-tracer/pkg/services/config"
	"github.com/loxe-ai/evidence-tracer/pkg/services/credentials"
	"github.com/loxe-ai/evidence-tracer/pkg/services/inventory"
	"github.com/loxe-ai/evidence-tracer/pkg/services/rules"
	"github.com/loxe-ai/evidence-tracer/pkg/services/scan"
	"github.com/loxe-ai/evidence-tracer/pkg/store/gateway"
	"github.com/loxe-ai/evidence-tracer/pkg/store/postgres"
	"github.com/rs/zerolog"
)

// App holds the wired runtime shared by the web server and the CLI.
type App struct {
	Config       *config.Config
	DB           *sqlx.DB
	Gateway      *gateway.Gateway
	Orchestrator *scan.Orchestrator
	Controller   *scan.Controller
}

// New connects to the database and builds the scan pipeline. It never
// touches the schema.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := zerolog.Ctx(ctx)

	if err := cfg.Database.Validate(); err != nil {
		return nil, err
	}

	settings := cfg.Database.Settings()
	db, err := postgres.NewDB(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	gw, err := gateway.New(db, settings.PingTimeout)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create persistence gateway: %w", err)
	}

	awsCfg, err := credentials.LoadConfig(ctx, cfg.AWS.Region, cfg.AWS.NetworkTimeout)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	catalog, err := rules.LoadCatalog()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to load control catalog: %w", err)
	}

	evaluator, err := rules.NewEvaluator(rules.NewS3PublicAccessBlock())
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	orchestrator, err := scan.NewOrchestrator(scan.Config{
		Broker: credentials.NewBroker(credentials.BrokerConfig{
			BaseConfig: *awsCfg,
			Duration:   cfg.AWS.SessionDuration,
		}),
		Collector: inventory.NewS3Collector(),
		Evaluator: evaluator,
		Catalog:   catalog,
		Gateway:   gw,
		Recorder:  metrics.Record(),
		LeaseTTL:  cfg.Scan.LeaseTTL,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create scan orchestrator: %w", err)
	}

	logger.Info().
		Str("region", cfg.AWS.Region).
		Strs("controls", evaluator.Controls()).
		Msg("scan pipeline ready")

	return &App{
		Config:       cfg,
		DB:           db,
		Gateway:      gw,
		Orchestrator: orchestrator,
		Controller:   scan.NewController(orchestrator, gw),
	}, nil
}

func (a *App) Close() error {
	return a.DB.Close()
}

// NewLogger parses level, falling back to info.
func NewLogger(level string, base zerolog.Logger) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return base.Level(lvl)
}
