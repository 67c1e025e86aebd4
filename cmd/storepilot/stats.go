package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/storepilot/storepilot/pkg/budget"
	"github.com/storepilot/storepilot/pkg/models"
	"github.com/storepilot/storepilot/pkg/tracker"
)

func newStatsCmd(g *globals) *cobra.Command {
	var (
		since  time.Duration
		recent int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show analysis usage and cache savings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}

			tr, err := tracker.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer tr.Close()

			ctx := cmd.Context()

			// Recent call view
			if recent > 0 {
				recs, err := tr.Recent(ctx, recent)
				if err != nil {
					return err
				}
				if len(recs) == 0 {
					fmt.Println("No usage data found.")
					return nil
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "TIME\tTASK\tMODEL\tSOURCE\tPROMPT CHARS\tTOTAL TOKENS")
				for _, r := range recs {
					source := "remote"
					if r.CacheHit {
						source = "cache"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
						r.CreatedAt.Local().Format("2006-01-02T15:04:05"), r.Task, r.Model, source, r.PromptChars, r.TotalTokens)
				}
				return w.Flush()
			}

			// Default: per-task summary
			var from time.Time
			if since > 0 {
				from = time.Now().Add(-since)
			}
			summaries, err := tr.Summary(ctx, from)
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Println("No usage data found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TASK\tCALLS\tCACHE HITS\tHIT RATE\tPROMPT CHARS\tTOTAL TOKENS")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%d\t%d\t%.0f%%\t%d\t%d\n",
					s.Task, s.Calls, s.CacheHits, float64(s.CacheHits)/float64(s.Calls)*100, s.PromptChars, s.TotalTokens)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			total, err := tr.TotalTokens(ctx, "", from)
			if err != nil {
				return err
			}
			fmt.Printf("\nTokens spent: %d\n", total)

			if len(cfg.Analysis.Budgets) == 0 {
				return nil
			}
			fmt.Println()
			w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "BUDGET\tPERIOD\tLIMIT\tUSED\tREMAINING")
			for _, b := range cfg.Analysis.Budgets {
				statuses, err := budget.New([]models.TokenBudget{b}, tr).Status(ctx, b.Task)
				if err != nil {
					return err
				}
				label := b.Task
				if label == "" || label == "*" {
					label = "all tasks"
				}
				for _, s := range statuses {
					fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n", label, s.Budget.Period, s.Budget.MaxTokens, s.Used, s.Remaining)
				}
			}
			return w.Flush()
		},
	}

	cmd.Flags().DurationVar(&since, "since", 0, "only count usage within this window (e.g. 24h)")
	cmd.Flags().IntVar(&recent, "recent", 0, "list the N most recent calls instead of the summary")
	return cmd
}
