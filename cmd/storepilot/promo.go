package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/storepilot/storepilot/pkg/config"
	"github.com/storepilot/storepilot/pkg/models"
	"github.com/storepilot/storepilot/pkg/policy"
)

func newPromoCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "promo",
		Short: "Time-of-day promotion bids and budgets",
	}

	var at string
	adjustCmd := &cobra.Command{
		Use:   "adjust",
		Short: "Decide the bid and budget for now and log it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			engine, _, err := newEngine(cfg, g.logger)
			if err != nil {
				return err
			}
			when := time.Now()
			if at != "" {
				when, err = clockToday(at, when)
				if err != nil {
					return err
				}
			}
			d, err := engine.DecideAt(when, cfg.Policy.BaseBid, cfg.Policy.BaseBudget)
			if err != nil {
				return err
			}
			printDecision(d)
			return nil
		},
	}
	adjustCmd.Flags().StringVar(&at, "at", "", "evaluate at HH:MM today instead of now")

	var last int
	todayCmd := &cobra.Command{
		Use:   "today",
		Short: "Summarize today's logged decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("last") {
				last = cfg.Policy.History
			}
			sum, err := policy.NewDecisionLog(cfg.Policy.LogPath).Today(time.Now(), last)
			if err != nil {
				return err
			}
			if sum.Total == 0 {
				fmt.Println("No adjustments today.")
				return nil
			}
			fmt.Printf("Date: %s\nAdjustments: %d\nLast action: %s\nCurrent bid: %.2f\n\n",
				sum.Date, sum.Total, sum.LastAction, sum.CurrentBid)
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tSEGMENT\tACTION\tBID\tBUDGET")
			for _, d := range sum.History {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.2f\n", d.Timestamp, d.Segment, d.Action, d.Bid, d.Budget)
			}
			return w.Flush()
		},
	}
	todayCmd.Flags().IntVar(&last, "last", 5, "number of decisions to show")

	var (
		interval time.Duration
		watch    bool
	)
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Re-evaluate the policy on an interval until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("interval") {
				interval = cfg.Policy.Interval
			}
			if interval <= 0 {
				return fmt.Errorf("interval must be positive, got %s", interval)
			}
			engine, _, err := newEngine(cfg, g.logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			eg, ctx := errgroup.WithContext(ctx)
			eg.Go(func() error {
				return runSchedule(ctx, engine, cfg, interval, g.logger)
			})
			if watch {
				load := func() (policy.Table, error) {
					next, err := config.Load(g.configPath)
					if err != nil {
						return nil, err
					}
					return policy.FromRules(next.Policy.Rules)
				}
				eg.Go(func() error {
					return policy.NewWatcher(g.configPath, load, engine, g.logger).Run(ctx)
				})
			}
			return eg.Wait()
		},
	}
	runCmd.Flags().DurationVar(&interval, "interval", 10*time.Minute, "time between evaluations")
	runCmd.Flags().BoolVar(&watch, "watch", false, "reload the decision table when the config file changes")

	cmd.AddCommand(adjustCmd, todayCmd, runCmd)
	return cmd
}

// runSchedule decides once immediately and then on every tick.
func runSchedule(ctx context.Context, engine *policy.Engine, cfg *config.Config, interval time.Duration, logger *zap.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		d, err := engine.Decide(cfg.Policy.BaseBid, cfg.Policy.BaseBudget)
		if err != nil {
			return err
		}
		printDecision(d)
		select {
		case <-ctx.Done():
			logger.Info("promotion schedule stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func printDecision(d models.PolicyDecision) {
	window := policy.SegmentWindow(d.Segment)
	if window == "" {
		window = "outside peak windows"
	}
	fmt.Printf("[%s] %s (%s): %s, bid %.2f, budget %.2f - %s\n",
		d.Timestamp, d.Segment, window, d.Action, d.Bid, d.Budget, d.Rationale)
}

// clockToday parses HH:MM as a time on now's date.
func clockToday(hhmm string, now time.Time) (time.Time, error) {
	t, err := time.ParseInLocation("15:04", hhmm, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("parse --at %q: want HH:MM", hhmm)
	}
	return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location()), nil
}
