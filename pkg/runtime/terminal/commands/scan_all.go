package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/loxe-ai/evidence-tracer/pkg/runtime/terminal/export"
	"github.com/loxe-ai/evidence-tracer/pkg/services/scan"
	"github.com/loxe-ai/evidence-tracer/pkg/services/targets"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type ScanAllCmd struct {
	env         *Env
	targetsPath string
	watch       bool
}

func NewScanAllCmd(env *Env) *cobra.Command {
	sc := &ScanAllCmd{env: env}
	cmd := &cobra.Command{
		Use:   "scan-all",
		Short: "Scan every account listed in a targets file, one after another",
		RunE:  sc.run,
	}

	cmd.Flags().StringVar(&sc.targetsPath, "targets", "", "Path to the targets ini file (defaults to scan.targets)")
	cmd.Flags().BoolVar(&sc.watch, "watch", false, "Rescan whenever the targets file changes")

	return cmd
}

func (sc *ScanAllCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	path := sc.targetsPath
	if path == "" && sc.env.Config != nil {
		path = sc.env.Config.Scan.Targets
	}
	if path == "" {
		return fmt.Errorf("no targets file given (use --targets or scan.targets)")
	}

	deps, closeFn, err := sc.env.deps(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	progress := export.NewProgress(cmd.OutOrStdout())
	if !sc.watch {
		return sc.scanAll(ctx, cmd, deps, progress, path)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return sc.watchTargets(ctx, cmd, deps, progress, path)
}

func (sc *ScanAllCmd) watchTargets(
	ctx context.Context,
	cmd *cobra.Command,
	deps *Deps,
	progress *export.Progress,
	path string,
) error {
	logger := zerolog.Ctx(ctx)

	changes := make(chan struct{}, 1)
	watchErr := make(chan error, 1)
	go func() {
		watchErr <- targets.Watch(ctx, path, targets.DefaultDebounce, func() {
			select {
			case changes <- struct{}{}:
			default:
			}
		})
	}()

	if err := sc.scanAll(ctx, cmd, deps, progress, path); err != nil {
		logger.Warn().Err(err).Msg("batch scan finished with errors")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-watchErr:
			return err
		case <-changes:
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s changed, rescanning\n", path)
			if err := sc.scanAll(ctx, cmd, deps, progress, path); err != nil {
				logger.Warn().Err(err).Msg("batch scan finished with errors")
			}
		}
	}
}

// scanAll reloads the targets file and scans each target in file order.
// One failing target does not stop the rest.
func (sc *ScanAllCmd) scanAll(
	ctx context.Context,
	cmd *cobra.Command,
	deps *Deps,
	progress *export.Progress,
	path string,
) error {
	registry, err := targets.NewRegistry(path)
	if err != nil {
		return err
	}
	all, err := registry.All(ctx)
	if err != nil {
		return err
	}

	var failed []string
	for _, t := range all {
		region := t.Region
		if region == "" && sc.env.Config != nil {
			region = sc.env.Config.AWS.Region
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\n=== %s (%s) ===\n", t.Name, t.AccountID)
		_, err := runScan(ctx, deps, progress, scan.Request{
			AccountID:  t.AccountID,
			RoleARN:    t.RoleARN,
			ExternalID: t.ExternalID,
			Region:     region,
		})
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("target", t.Name).Msg("target scan failed")
			failed = append(failed, t.Name)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d targets scanned successfully\n", len(all)-len(failed), len(all))
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d target scans failed: %v", len(failed), len(all), failed)
	}
	return nil
}
