package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/loxe-ai/evidence-tracer/pkg/runtime/terminal/export"
	"github.com/loxe-ai/evidence-tracer/pkg/services/scan"
	"github.com/spf13/cobra"
)

type ScanCmd struct {
	env      *Env
	req      scan.Request
	minScore int
}

func NewScanCmd(env *Env) *cobra.Command {
	sc := &ScanCmd{env: env}
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan one AWS account and print findings as they are evaluated",
		RunE:  sc.run,
	}

	cmd.Flags().StringVar(&sc.req.AccountID, "account", "", "AWS account id to scan")
	cmd.Flags().StringVar(&sc.req.RoleARN, "role-arn", "", "ARN of the role created by the onboarding stack")
	cmd.Flags().StringVar(&sc.req.ExternalID, "external-id", "", "External id from the role trust policy")
	cmd.Flags().StringVar(&sc.req.Region, "region", "", "Region for the STS call (defaults to aws.region)")
	cmd.Flags().StringVar(&sc.req.ScanID, "scan-id", "", "Scan id to record (generated when empty)")
	cmd.Flags().IntVar(&sc.minScore, "min-score", 0, "Exit with an error when the score is below this value")

	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("role-arn")
	_ = cmd.MarkFlagRequired("external-id")

	return cmd
}

func (sc *ScanCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	deps, closeFn, err := sc.env.deps(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	req := sc.req
	if req.Region == "" && sc.env.Config != nil {
		req.Region = sc.env.Config.AWS.Region
	}

	res, err := runScan(ctx, deps, export.NewProgress(cmd.OutOrStdout()), req)
	if err != nil {
		return err
	}
	if res.Score < sc.minScore {
		return fmt.Errorf("score %d is below the required %d", res.Score, sc.minScore)
	}
	return nil
}

// runScan records the scan row and follows the scan to its end. A FAILED
// scan is returned as an error carrying the recorded reason.
func runScan(ctx context.Context, deps *Deps, progress *export.Progress, req scan.Request) (*scan.Result, error) {
	if req.ScanID == "" {
		req.ScanID = uuid.NewString()
	}

	if _, err := deps.Scans.CreateScan(ctx, req.ScanID, req.AccountID); err != nil {
		return nil, fmt.Errorf("failed to record scan: %w", err)
	}

	res, err := progress.Follow(deps.Scanner.Stream(ctx, req))
	if err != nil {
		if res != nil && res.Reason != "" {
			return res, fmt.Errorf("scan %s failed: %s", req.ScanID, res.Reason)
		}
		return res, fmt.Errorf("scan %s failed: %w", req.ScanID, err)
	}
	return res, nil
}
