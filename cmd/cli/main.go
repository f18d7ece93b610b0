package main

import (
	"context"
	"fmt"
	"os"

	"github.com/loxe-ai/evidence-tracer/pkg/runtime/app"
	"github.com/loxe-ai/evidence-tracer/pkg/runtime/terminal"
	"github.com/loxe-ai/evidence-tracer/pkg/runtime/terminal/commands"
	"github.com/loxe-ai/evidence-tracer/pkg/services/config"
	"github.com/loxe-ai/evidence-tracer/pkg/store/postgres"
)

func main() {
	cli := terminal.NewCLI(terminal.Options{
		Load:   load,
		Output: os.Stdout,
	})

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func load(ctx context.Context, cfg *config.Config) (*commands.Deps, error) {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &commands.Deps{
		Scanner: a.Orchestrator,
		Scans:   a.Gateway,
		Migrate: func(ctx context.Context) error {
			return postgres.Migrate(ctx, a.DB)
		},
		Close: a.Close,
	}, nil
}
