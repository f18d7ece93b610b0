package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/loxe-ai/evidence-tracer/pkg/runtime/terminal/export"
	"github.com/loxe-ai/evidence-tracer/pkg/services/report"
	"github.com/spf13/cobra"
)

const (
	formatTable = "table"
	formatCSV   = "csv"
)

type ReportCmd struct {
	env    *Env
	scanID string
	format string
	output string
}

func NewReportCmd(env *Env) *cobra.Command {
	rc := &ReportCmd{env: env}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print or export the findings of a finished scan",
		RunE:  rc.run,
	}

	cmd.Flags().StringVar(&rc.scanID, "scan-id", "", "Scan to report on")
	cmd.Flags().StringVar(&rc.format, "format", formatTable, "Output format: table or csv")
	cmd.Flags().StringVarP(&rc.output, "output", "o", "", "Write to this file instead of stdout")

	_ = cmd.MarkFlagRequired("scan-id")

	return cmd
}

func (rc *ReportCmd) run(cmd *cobra.Command, _ []string) (err error) {
	ctx := cmd.Context()

	if rc.format != formatTable && rc.format != formatCSV {
		return fmt.Errorf("unsupported format %q (use %s or %s)", rc.format, formatTable, formatCSV)
	}

	deps, closeFn, err := rc.env.deps(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	sc, err := deps.Scans.GetScan(ctx, rc.scanID)
	if err != nil {
		return err
	}
	if !sc.Finished() {
		return fmt.Errorf("scan %s is still running", sc.ID)
	}

	var w io.Writer = cmd.OutOrStdout()
	if rc.output != "" {
		f, ferr := os.Create(rc.output)
		if ferr != nil {
			return fmt.Errorf("failed to create %s: %w", rc.output, ferr)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		w = f
	}

	if rc.format == formatCSV {
		return report.RenderScanCSV(w, sc.Findings)
	}
	return export.NewReporter(w).Handle(sc)
}
