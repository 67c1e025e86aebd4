package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/storepilot/storepilot/pkg/analysis"
	"github.com/storepilot/storepilot/pkg/config"
	"github.com/storepilot/storepilot/pkg/metrics"
	"github.com/storepilot/storepilot/pkg/orders"
	"github.com/storepilot/storepilot/pkg/prompt"
	"github.com/storepilot/storepilot/pkg/report"
)

func newAnalyzeCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run cached analysis calls",
	}

	// withSession loads config and opens the analysis session around fn.
	withSession := func(cmd *cobra.Command, fn func(cfg *config.Config, s *session) (analysis.Outcome, error)) error {
		cfg, err := g.loadConfig(cmd)
		if err != nil {
			return err
		}
		s, err := openSession(cmd.Context(), cfg, g.logger)
		if err != nil {
			return err
		}
		defer s.Close()

		out, err := fn(cfg, s)
		if err != nil {
			return err
		}
		return printOutcome(out)
	}

	var tierName string
	ordersCmd := &cobra.Command{
		Use:   "orders",
		Short: "Analyze the latest order export",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(cfg *config.Config, s *session) (analysis.Outcome, error) {
				name := cfg.Prompt.Tier
				if cmd.Flags().Changed("tier") {
					name = tierName
				}
				tier, err := prompt.TierByName(name)
				if err != nil {
					return analysis.Outcome{}, err
				}
				tier = tier.WithMaxFieldLen(cfg.Prompt.MaxFieldLen)

				recs, err := orders.DirSource{Dir: cfg.DataDir}.Load(cmd.Context())
				if err != nil {
					return analysis.Outcome{}, err
				}
				snap, err := metrics.Aggregate(recs)
				if err != nil {
					return analysis.Outcome{}, err
				}
				out, err := s.svc.AnalyzeOrders(cmd.Context(), snap, tier)
				if err != nil {
					return out, err
				}

				now := time.Now()
				path, err := report.Save(reportsDir(cfg), "analysis", now, report.Report{
					Time:     now.Format("2006-01-02T15:04:05"),
					Task:     analysis.TaskOrders,
					Cached:   out.Cached,
					Metrics:  &snap,
					Analysis: out.Result,
				})
				if err != nil {
					return out, err
				}
				fmt.Fprintf(os.Stderr, "report: %s\n", path)
				return out, nil
			})
		},
	}
	ordersCmd.Flags().StringVar(&tierName, "tier", "compact", "prompt tier: compact or verbose")

	var focus string
	scriptCmd := &cobra.Command{
		Use:   "script FILE",
		Short: "Suggest optimizations for a script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read script: %w", err)
			}
			return withSession(cmd, func(_ *config.Config, s *session) (analysis.Outcome, error) {
				return s.svc.OptimizeScript(cmd.Context(), string(src), focus)
			})
		},
	}
	scriptCmd.Flags().StringVar(&focus, "focus", "token", "token, speed or readability")

	var background string
	logicCmd := &cobra.Command{
		Use:   "logic PROBLEM",
		Short: "Analyze a logic problem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(_ *config.Config, s *session) (analysis.Outcome, error) {
				return s.svc.AnalyzeLogic(cmd.Context(), args[0], background)
			})
		},
	}
	logicCmd.Flags().StringVar(&background, "context", "", "background for the problem")

	var language string
	codeCmd := &cobra.Command{
		Use:   "code REQUIREMENT",
		Short: "Generate code for a requirement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(_ *config.Config, s *session) (analysis.Outcome, error) {
				return s.svc.GenerateCode(cmd.Context(), args[0], language)
			})
		},
	}
	codeCmd.Flags().StringVar(&language, "language", "go", "target language")

	var goal string
	promptCmd := &cobra.Command{
		Use:   "prompt FILE",
		Short: "Rewrite a prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read prompt: %w", err)
			}
			return withSession(cmd, func(_ *config.Config, s *session) (analysis.Outcome, error) {
				return s.svc.RewritePrompt(cmd.Context(), string(src), goal)
			})
		},
	}
	promptCmd.Flags().StringVar(&goal, "goal", "reduce_tokens", "rewrite goal")

	var last int
	compareCmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare the most recent order analyses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(cfg *config.Config, s *session) (analysis.Outcome, error) {
				reports, err := report.Latest(reportsDir(cfg), "analysis", last)
				if err != nil {
					return analysis.Outcome{}, err
				}
				digests := make([]prompt.ReportDigest, 0, len(reports))
				for _, r := range reports {
					digests = append(digests, prompt.ReportDigest{Time: r.Time, Summary: r.Analysis.String("summary")})
				}
				return s.svc.Compare(cmd.Context(), digests)
			})
		},
	}
	compareCmd.Flags().IntVar(&last, "last", 3, "number of reports to compare")

	cmd.AddCommand(ordersCmd, scriptCmd, logicCmd, codeCmd, promptCmd, compareCmd)
	return cmd
}

func printOutcome(out analysis.Outcome) error {
	source := "remote"
	if out.Cached {
		source = "cache"
	}
	fmt.Fprintf(os.Stderr, "fingerprint: %s (%s, %d tokens)\n", out.Fingerprint, source, out.Usage.TotalTokens)

	data, err := json.MarshalIndent(out.Result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
