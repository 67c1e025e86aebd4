package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/storepilot/storepilot/pkg/metrics"
	"github.com/storepilot/storepilot/pkg/orders"
	"github.com/storepilot/storepilot/pkg/report"
)

func newOrdersCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Export and summarize orders",
	}

	var (
		days int
		mock bool
	)
	downloadCmd := &cobra.Command{
		Use:   "download",
		Short: "Export recent orders to JSON and CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			if !mock {
				return fmt.Errorf("no merchant order API is configured; use --mock for simulated orders")
			}
			now := time.Now()
			recs, err := orders.MockSource{End: now, Days: days}.Load(cmd.Context())
			if err != nil {
				return err
			}
			jsonPath, csvPath, err := orders.Export(cfg.DataDir, recs, now)
			if err != nil {
				return err
			}
			g.logger.Info("orders exported", zap.Int("orders", len(recs)), zap.String("json", jsonPath))
			fmt.Printf("Exported %d orders\n  JSON: %s\n  CSV:  %s\n", len(recs), jsonPath, csvPath)
			return nil
		},
	}
	downloadCmd.Flags().IntVar(&days, "days", 3, "number of days to export")
	downloadCmd.Flags().BoolVar(&mock, "mock", false, "generate simulated orders")

	var save bool
	summaryCmd := &cobra.Command{
		Use:   "summary",
		Short: "Show metrics for the latest export",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			recs, err := orders.DirSource{Dir: cfg.DataDir}.Load(cmd.Context())
			if err != nil {
				return err
			}
			snap, err := metrics.Aggregate(recs)
			if err != nil {
				return err
			}
			areas := metrics.ByArea(recs)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Orders:\t%d\n", snap.TotalOrders)
			fmt.Fprintf(w, "Completed:\t%d\n", snap.CompletedOrders)
			fmt.Fprintf(w, "Cancellation rate:\t%.1f%%\n", snap.CancellationRate)
			fmt.Fprintf(w, "Revenue:\t%.2f\n", snap.TotalRevenue)
			fmt.Fprintf(w, "Avg order value:\t%.2f\n", snap.AvgOrderValue)
			fmt.Fprintf(w, "Avg rating:\t%.2f\n", snap.AvgRating)
			fmt.Fprintf(w, "Avg delivery:\t%.1f min\n", snap.AvgDelivery)
			fmt.Fprintf(w, "Peak hour:\t%02d:00\n", snap.PeakHour)
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Println()
			w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PERIOD\tORDERS\tAMOUNT")
			for _, p := range metrics.ByPeriod(recs) {
				fmt.Fprintf(w, "%s\t%d\t%.2f\n", p.Name, p.Count, p.Amount)
			}
			fmt.Fprintln(w, "\t\t")
			fmt.Fprintln(w, "AREA\tORDERS\tAMOUNT")
			for _, a := range areas {
				fmt.Fprintf(w, "%s\t%d\t%.2f\n", a.Name, a.Count, a.Amount)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			advice := metrics.Recommend(snap, areas)
			if len(advice) > 0 {
				fmt.Println("\nRecommendations:")
				for i, a := range advice {
					fmt.Printf("  %d. %s\n", i+1, a)
				}
			}

			if save {
				path, err := report.Save(cfg.DataDir, "summary", time.Now(), snap)
				if err != nil {
					return err
				}
				fmt.Printf("\nSaved: %s\n", path)
			}
			return nil
		},
	}
	summaryCmd.Flags().BoolVar(&save, "save", false, "also write the snapshot to the data dir")

	cmd.AddCommand(downloadCmd, summaryCmd)
	return cmd
}
