package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newCacheCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the analysis result cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			c, err := openCache(cmd.Context(), cfg, g.logger)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			stats, err := c.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Backend: %s\nEntries: %d\n", stats.Backend, stats.Entries)
			return nil
		},
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List cached results, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			c, err := openCache(cmd.Context(), cfg, g.logger)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			entries, err := c.Entries(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("Cache is empty.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FINGERPRINT\tCREATED\tSUMMARY")
			for _, e := range entries {
				summary := e.Result.String("summary")
				if e.Result == nil {
					summary = "(corrupt)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.Fingerprint, e.CreatedAt.Format("2006-01-02T15:04:05"), summary)
			}
			return w.Flush()
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "maximum entries to show")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached result",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			c, err := openCache(cmd.Context(), cfg, g.logger)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			if err := c.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("All cache entries cleared.")
			return nil
		},
	}

	cmd.AddCommand(statsCmd, listCmd, clearCmd)
	return cmd
}
