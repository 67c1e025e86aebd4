package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var version = "dev"

// globals are the persistent root flags and the logger built from them.
type globals struct {
	configPath string
	verbose    bool
	logger     *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:           "storepilot",
		Short:         "storepilot - delivery store analytics and promotion scheduling",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config := zap.NewProductionConfig()
			if g.verbose {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := config.Build()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			g.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = g.logger.Sync()
		},
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "storepilot.yaml", "path to config file")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newOrdersCmd(g),
		newAnalyzeCmd(g),
		newCacheCmd(g),
		newPromoCmd(g),
		newStatsCmd(g),
		newMCPCmd(g),
	)
	return root
}
