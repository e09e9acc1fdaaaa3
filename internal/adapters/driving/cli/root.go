// Package cli provides the localrag command line.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/localrag/internal/config"
	"github.com/custodia-labs/localrag/internal/logger"
)

// version is set at build time with -ldflags "-X .../cli.version=...".
var version = "dev"

// loadConfig resolves the configuration. Tests replace it.
var loadConfig = func() (config.Config, error) {
	return config.Load(config.LoadOptions{})
}

var rootCmd = &cobra.Command{
	Use:   "localrag",
	Short: "Answer questions about a local document",
	Long: `localrag indexes one document into a local vector store and answers
questions about it with a chat model.

With no arguments it loads the vector store (building it from the source
document on first run) and asks the configured example questions.

Configuration comes from LOCALRAG_* environment variables, a .env file
and an optional TOML or YAML file named by LOCALRAG_CONFIG.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPipeline,
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger.SetVerbose(cfg.Verbose)

	out := newConsole(cmd.OutOrStdout())
	if cfg.ConfigFile != "" {
		logger.Info("Using config file %s", cfg.ConfigFile)
	}

	svc, cleanup, err := newService(cmd.Context(), cfg, out)
	if err != nil {
		return err
	}
	defer cleanup()

	return svc.Run(cmd.Context(), cfg.Queries)
}
