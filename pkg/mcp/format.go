package mcp

import (
	"fmt"
	"strings"

	"github.com/storepilot/storepilot/pkg/models"
	"github.com/storepilot/storepilot/pkg/policy"
)

func formatUsage(sums []models.UsageSummary) string {
	if len(sums) == 0 {
		return "No analysis calls recorded."
	}
	var b strings.Builder
	b.WriteString("Task | Calls | Cache hits | Prompt chars | Tokens\n")
	b.WriteString("-----|-------|------------|--------------|-------\n")
	var calls, hits, tokens int
	for _, s := range sums {
		fmt.Fprintf(&b, "%s | %d | %d | %d | %d\n", s.Task, s.Calls, s.CacheHits, s.PromptChars, s.TotalTokens)
		calls += s.Calls
		hits += s.CacheHits
		tokens += s.TotalTokens
	}
	fmt.Fprintf(&b, "\nTotal: %d calls, %d cache hits, %d tokens\n", calls, hits, tokens)
	return b.String()
}

func formatBudget(st []models.BudgetStatus) string {
	if len(st) == 0 {
		return "No token budgets apply."
	}
	var b strings.Builder
	b.WriteString("Task | Period | Limit | Used | Remaining\n")
	b.WriteString("-----|--------|-------|------|----------\n")
	for _, s := range st {
		task := s.Budget.Task
		if task == "" || task == "*" {
			task = "all tasks"
		}
		fmt.Fprintf(&b, "%s | %s | %d | %d | %d\n", task, s.Budget.Period, s.Budget.MaxTokens, s.Used, s.Remaining)
	}
	return b.String()
}

func formatCacheStats(st models.CacheStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Backend: %s\n", st.Backend)
	fmt.Fprintf(&b, "Entries: %d\n", st.Entries)
	fmt.Fprintf(&b, "Hits: %d\n", st.Hits)
	fmt.Fprintf(&b, "Misses: %d\n", st.Misses)
	if total := st.Hits + st.Misses; total > 0 {
		fmt.Fprintf(&b, "Hit rate: %.1f%%\n", float64(st.Hits)/float64(total)*100)
	}
	if st.Corrupt > 0 {
		fmt.Fprintf(&b, "Corrupt entries skipped: %d\n", st.Corrupt)
	}
	return b.String()
}

func formatDecision(d models.PolicyDecision) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Segment: %s", d.Segment)
	if w := policy.SegmentWindow(d.Segment); w != "" {
		fmt.Fprintf(&b, " (%s)", w)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Action: %s\n", d.Action)
	fmt.Fprintf(&b, "Bid: %.2f\n", d.Bid)
	fmt.Fprintf(&b, "Budget: %.2f\n", d.Budget)
	if d.Rationale != "" {
		fmt.Fprintf(&b, "Rationale: %s\n", d.Rationale)
	}
	return b.String()
}

func formatToday(sum models.DailySummary) string {
	if sum.Total == 0 {
		return fmt.Sprintf("No adjustments on %s.", sum.Date)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Date: %s\nAdjustments: %d\nLast action: %s\nCurrent bid: %.2f\n\n",
		sum.Date, sum.Total, sum.LastAction, sum.CurrentBid)
	b.WriteString("Time | Segment | Action | Bid | Budget\n")
	b.WriteString("-----|---------|--------|-----|-------\n")
	for _, d := range sum.History {
		fmt.Fprintf(&b, "%s | %s | %s | %.2f | %.2f\n", d.Timestamp, d.Segment, d.Action, d.Bid, d.Budget)
	}
	return b.String()
}

func formatSnapshot(s models.MetricsSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Orders: %d (%d completed, %.1f%% cancelled)\n", s.TotalOrders, s.CompletedOrders, s.CancellationRate)
	fmt.Fprintf(&b, "Revenue: %.2f\n", s.TotalRevenue)
	fmt.Fprintf(&b, "Avg order value: %.2f\n", s.AvgOrderValue)
	fmt.Fprintf(&b, "Avg rating: %.2f\n", s.AvgRating)
	fmt.Fprintf(&b, "Avg delivery: %.1f min\n", s.AvgDelivery)
	if len(s.Hourly) > 0 {
		fmt.Fprintf(&b, "Peak hour: %02d:00\n", s.PeakHour)
	}
	return b.String()
}
