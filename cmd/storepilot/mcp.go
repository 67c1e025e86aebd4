package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/storepilot/storepilot/pkg/budget"
	"github.com/storepilot/storepilot/pkg/mcp"
	"github.com/storepilot/storepilot/pkg/orders"
	"github.com/storepilot/storepilot/pkg/tracker"
)

func newMCPCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve usage, cache, promotion and order views over MCP on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			tr, err := tracker.New(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("init tracker: %w", err)
			}
			defer tr.Close()

			c, err := openCache(ctx, cfg, g.logger)
			if err != nil {
				return err
			}
			defer c.Close()

			engine, log, err := newEngine(cfg, g.logger)
			if err != nil {
				return err
			}

			deps := mcp.Deps{
				Tracker:    tr,
				Cache:      c,
				Engine:     engine,
				Decisions:  log,
				Orders:     orders.DirSource{Dir: cfg.DataDir},
				BaseBid:    cfg.Policy.BaseBid,
				BaseBudget: cfg.Policy.BaseBudget,
			}
			if len(cfg.Analysis.Budgets) > 0 {
				deps.Budget = budget.New(cfg.Analysis.Budgets, tr)
			}
			return mcp.New(deps, version, g.logger).Run(ctx, os.Stdin, os.Stdout)
		},
	}
}
