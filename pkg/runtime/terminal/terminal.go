package terminal

import (
	"context"
	"io"
	"os"

	"github.com/loxe-ai/evidence-tracer/pkg/runtime/app"
	"github.com/loxe-ai/evidence-tracer/pkg/runtime/terminal/commands"
	"github.com/loxe-ai/evidence-tracer/pkg/services/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// CLI represents the command-line interface
type CLI struct {
	env        *commands.Env
	logOutput  io.Writer
	configPath string
	envPath    string
	rootCmd    *cobra.Command
}

// Options contain configuration for the CLI
type Options struct {
	Load      commands.Loader
	Output    io.Writer
	LogOutput io.Writer
}

func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}

	cli := &CLI{
		env:       &commands.Env{Load: opts.Load},
		logOutput: opts.LogOutput,
	}

	cli.rootCmd = cli.newRootCmd()
	cli.rootCmd.SetOut(opts.Output)
	return cli
}

func (cli *CLI) Execute() error {
	return cli.ExecuteContext(context.Background())
}

func (cli *CLI) ExecuteContext(ctx context.Context) error {
	return cli.rootCmd.ExecuteContext(ctx)
}

// SetArgs overrides os.Args, for tests.
func (cli *CLI) SetArgs(args []string) {
	cli.rootCmd.SetArgs(args)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "evidence",
		Short:             "Collect compliance evidence from customer AWS accounts",
		SilenceUsage:      true,
		PersistentPreRunE: cli.bootstrap,
	}

	cmd.PersistentFlags().StringVarP(&cli.configPath, "config", "c", "", "Path to a config file (yaml, toml or json)")
	cmd.PersistentFlags().StringVar(&cli.envPath, "env-file", ".env", "Dotenv file loaded before the config")

	cmd.AddCommand(commands.NewScanCmd(cli.env))
	cmd.AddCommand(commands.NewScanAllCmd(cli.env))
	cmd.AddCommand(commands.NewReportCmd(cli.env))
	cmd.AddCommand(commands.NewMigrateCmd(cli.env))
	cmd.AddCommand(commands.NewOnboardCmd(cli.env))

	return cmd
}

func (cli *CLI) bootstrap(cmd *cobra.Command, _ []string) error {
	if err := config.LoadEnvFile(cli.envPath); err != nil {
		return err
	}
	cfg, err := config.Load(cli.configPath)
	if err != nil {
		return err
	}
	cli.env.Config = cfg

	base := zerolog.New(zerolog.ConsoleWriter{Out: cli.logOutput}).With().Timestamp().Logger()
	logger := app.NewLogger(cfg.LogLevel, base)
	cmd.SetContext(logger.WithContext(cmd.Context()))
	return nil
}
