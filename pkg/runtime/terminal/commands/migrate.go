package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewMigrateCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the evidence tables if they do not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			deps, closeFn, err := env.deps(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			if deps.Migrate == nil {
				return fmt.Errorf("migrations are not available")
			}
			if err := deps.Migrate(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}
