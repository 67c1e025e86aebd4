package prompt

import (
	"fmt"
	"strings"

	"github.com/storepilot/storepilot/pkg/metrics"
	"github.com/storepilot/storepilot/pkg/models"
)

// Response schemas requested from the analysis endpoint, one per call site.
const (
	ordersSchema = `{"summary":"one sentence","problems":["..."],"recommendations":["..."],"actions":["..."]}`

	ordersVerboseSchema = `{"summary":"one sentence","problems":["..."],` +
		`"recommendations":{"price":["..."],"timing":["..."],"promotion":["..."],"operations":["..."]},` +
		`"action_plan":["..."],"risk_warnings":["..."],"confidence":"high|medium|low"}`

	scriptSchema = `{"summary":"...","changes":["..."],"estimated_savings":"...",` +
		`"code_suggestions":[{"before":"...","after":"...","reason":"..."}]}`

	logicSchema = `{"analysis":"...","approaches":["..."],"recommendation":"...","implementation_notes":["..."]}`

	codeSchema = `{"code":"...","explanation":"...","usage_example":"..."}`

	rewriteSchema = `{"optimized_prompt":"...","changes":["..."],"estimated_token_reduction":"...","quality_impact":"..."}`

	comparisonSchema = `{"trend":"up|down|stable","persistent_problems":["..."],"improved_metrics":["..."],` +
		`"next_focus":["..."],"overall_assessment":"..."}`
)

// Default field bounds for free-text inputs.
const (
	ScriptMaxLen  = 3000
	RewriteMaxLen = 2000
)

// OrdersPrompt asks for operational advice on a metrics snapshot.
func OrdersPrompt(snap models.MetricsSnapshot, tier Tier) string {
	var kpis, hours string
	if tier.Abbreviate {
		kpis = fmt.Sprintf("orders=%d done=%d cancel=%.1f%% rev=%.2f aov=%.2f rating=%.2f delivery=%.1fmin peak=%02d:00",
			snap.TotalOrders, snap.CompletedOrders, snap.CancellationRate, snap.TotalRevenue,
			snap.AvgOrderValue, snap.AvgRating, snap.AvgDelivery, snap.PeakHour)
		parts := make([]string, 0, len(snap.Hourly))
		for _, b := range metrics.TopHours(snap.Hourly, tier.TopN) {
			parts = append(parts, fmt.Sprintf("%d:00(%s)%d", b.Hour, metrics.PeriodName(b.Hour), b.Count))
		}
		hours = strings.Join(parts, ", ")
	} else {
		kpis = strings.Join([]string{
			fmt.Sprintf("- Total orders: %d", snap.TotalOrders),
			fmt.Sprintf("- Completed orders: %d", snap.CompletedOrders),
			fmt.Sprintf("- Cancellation rate: %.1f%%", snap.CancellationRate),
			fmt.Sprintf("- Revenue: %.2f", snap.TotalRevenue),
			fmt.Sprintf("- Average order value: %.2f", snap.AvgOrderValue),
			fmt.Sprintf("- Average rating: %.2f", snap.AvgRating),
			fmt.Sprintf("- Average delivery time: %.1f minutes", snap.AvgDelivery),
			fmt.Sprintf("- Peak hour: %02d:00", snap.PeakHour),
		}, "\n")
		lines := make([]string, 0, len(snap.Hourly))
		for _, b := range metrics.TopHours(snap.Hourly, tier.TopN) {
			lines = append(lines, fmt.Sprintf("- %02d:00 (%s): %d orders, %.2f", b.Hour, metrics.PeriodName(b.Hour), b.Count, b.Amount))
		}
		hours = strings.Join(lines, "\n")
	}

	schema := ordersSchema
	intro := "Analyze this food delivery store data and give 3 improvement suggestions."
	if !tier.Abbreviate {
		schema = ordersVerboseSchema
		intro = "Analyze the operating data of this food delivery store. Diagnose problems, " +
			"suggest price, timing, promotion and operations changes, and list concrete actions for the next 3 days."
	}

	return intro + "\n\n" + tier.Render([]Field{
		{Label: "Key metrics", Key: "KPI", Value: kpis},
		{Label: "Hourly distribution", Key: "Hours", Value: hours},
		{Label: "Response format", Key: "JSON", Value: "Reply with JSON only: " + schema},
	})
}

// ScriptPrompt asks for an optimization review of a script.
func ScriptPrompt(script, focus string, maxLen int) string {
	return fmt.Sprintf("Optimize the following code with a focus on %s.\n\n", focus) + Compact([]Field{
		{Label: "Code", Value: script},
		{Label: "Response format", Value: "Reply with JSON: " + scriptSchema},
	}, maxLen)
}

// LogicPrompt asks for an analysis of a logic problem.
func LogicPrompt(problem, context string) string {
	return "Analyze the following logic problem.\n\n" + Compact([]Field{
		{Label: "Problem", Value: problem},
		{Label: "Context", Value: context},
		{Label: "Response format", Value: "Reply with JSON: " + logicSchema},
	}, 0)
}

// CodePrompt asks for an implementation of a requirement.
func CodePrompt(requirement, language string) string {
	return fmt.Sprintf("Implement the following in %s.\n\n", language) + Compact([]Field{
		{Label: "Requirement", Value: requirement},
		{Label: "Response format", Value: "Reply with JSON: " + codeSchema},
	}, 0)
}

// RewritePrompt asks for a rewritten version of a prompt serving goal.
func RewritePrompt(original, goal string, maxLen int) string {
	return fmt.Sprintf("Rewrite the following prompt. Goal: %s.\n\n", goal) + Compact([]Field{
		{Label: "Original prompt", Value: original},
		{Label: "Response format", Value: "Reply with JSON: " + rewriteSchema},
	}, maxLen)
}

// ReportDigest is the part of a past analysis fed into a comparison.
type ReportDigest struct {
	Time    string
	Summary string
}

// ComparisonPrompt asks for a trend assessment across past analyses.
func ComparisonPrompt(reports []ReportDigest) string {
	fields := make([]Field, 0, len(reports)+1)
	for i, r := range reports {
		day := r.Time
		if len(day) > 10 {
			day = day[:10]
		}
		fields = append(fields, Field{Label: fmt.Sprintf("Report %d (%s)", i+1, day), Value: r.Summary})
	}
	fields = append(fields, Field{Label: "Response format", Value: "Reply with JSON: " + comparisonSchema})
	return "Compare these recent store analyses and identify trends, persistent problems and improvements.\n\n" +
		Compact(fields, 0)
}
