package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/loxe-ai/evidence-tracer/pkg/services/targets"
	"github.com/spf13/cobra"
)

type OnboardCmd struct {
	env        *Env
	externalID string
	region     string
}

func NewOnboardCmd(env *Env) *cobra.Command {
	oc := &OnboardCmd{env: env}
	cmd := &cobra.Command{
		Use:   "onboard",
		Short: "Generate an external id and the link that creates the scan role",
		RunE:  oc.run,
	}

	cmd.Flags().StringVar(&oc.externalID, "external-id", "", "Reuse an existing external id instead of generating one")
	cmd.Flags().StringVar(&oc.region, "region", "", "Region to open the CloudFormation console in")

	return cmd
}

func (oc *OnboardCmd) run(cmd *cobra.Command, _ []string) error {
	if oc.env.Config == nil {
		return fmt.Errorf("configuration not loaded")
	}
	cfg := oc.env.Config.Onboarding

	externalID := oc.externalID
	if externalID == "" {
		externalID = targets.NewExternalID()
	}
	region := oc.region
	if region == "" {
		region = cfg.Region
	}

	link, err := targets.LaunchStackURL(targets.StackParams{
		Region:       region,
		TemplateURL:  cfg.TemplateURL,
		StackName:    cfg.StackName,
		ExternalID:   externalID,
		AppAccountID: cfg.AppAccountID,
	})
	if err != nil {
		return fmt.Errorf("cannot build launch link: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "External ID:  %s\n", color.GreenString(externalID))
	fmt.Fprintf(out, "Launch stack: %s\n", link)
	fmt.Fprintln(out, "Keep the external id. It is required for every scan of this account.")
	return nil
}
