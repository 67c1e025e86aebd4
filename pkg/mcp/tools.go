package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/storepilot/storepilot/pkg/metrics"
	"github.com/storepilot/storepilot/pkg/orders"
)

type handler func(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult

var tools = []Tool{
	{
		Name:        "storepilot_usage",
		Description: "Analysis calls, cache hits and tokens per task",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"since_hours": map[string]any{"type": "number", "description": "Only count calls from the last N hours (default: all)"},
			},
		},
	},
	{
		Name:        "storepilot_budget",
		Description: "Token budget usage and remaining allowance",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"task": map[string]any{"type": "string", "description": "Limit to budgets applying to this task"},
			},
		},
	},
	{
		Name:        "storepilot_cache_stats",
		Description: "Analysis cache backend, entries and hit counters",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
	},
	{
		Name:        "storepilot_promo_decision",
		Description: "Bid and budget the promotion policy would choose at a time of day. Nothing is logged.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"at": map[string]any{"type": "string", "description": "HH:MM today (default: now)"},
			},
		},
	},
	{
		Name:        "storepilot_promo_today",
		Description: "Promotion adjustments logged today",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"last": map[string]any{"type": "integer", "description": "Number of history entries (default: 10)"},
			},
		},
	},
	{
		Name:        "storepilot_orders_summary",
		Description: "Key metrics and recommendations for the latest order export",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
	},
}

var handlers = map[string]handler{
	"storepilot_usage":          handleUsage,
	"storepilot_budget":         handleBudget,
	"storepilot_cache_stats":    handleCacheStats,
	"storepilot_promo_decision": handlePromoDecision,
	"storepilot_promo_today":    handlePromoToday,
	"storepilot_orders_summary": handleOrdersSummary,
}

// decode unmarshals optional tool arguments into v.
func decode(args json.RawMessage, v any) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func handleUsage(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult {
	if s.deps.Tracker == nil {
		return errorResult("usage tracking not configured")
	}
	var a struct {
		SinceHours float64 `json:"since_hours"`
	}
	if err := decode(args, &a); err != nil {
		return errorResult(err.Error())
	}
	var since time.Time
	if a.SinceHours > 0 {
		since = s.now().Add(-time.Duration(a.SinceHours * float64(time.Hour)))
	}
	sums, err := s.deps.Tracker.Summary(ctx, since)
	if err != nil {
		return errorResult(err.Error())
	}
	return textResult(formatUsage(sums))
}

func handleBudget(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult {
	if s.deps.Budget == nil {
		return textResult("No token budgets configured.")
	}
	var a struct {
		Task string `json:"task"`
	}
	if err := decode(args, &a); err != nil {
		return errorResult(err.Error())
	}
	st, err := s.deps.Budget.Status(ctx, a.Task)
	if err != nil {
		return errorResult(err.Error())
	}
	return textResult(formatBudget(st))
}

func handleCacheStats(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	if s.deps.Cache == nil {
		return errorResult("cache not configured")
	}
	st, err := s.deps.Cache.Stats(ctx)
	if err != nil {
		return errorResult(err.Error())
	}
	return textResult(formatCacheStats(st))
}

func handlePromoDecision(_ context.Context, s *Server, args json.RawMessage) ToolCallResult {
	if s.deps.Engine == nil {
		return errorResult("promotion policy not configured")
	}
	var a struct {
		At string `json:"at"`
	}
	if err := decode(args, &a); err != nil {
		return errorResult(err.Error())
	}
	when := s.now()
	if a.At != "" {
		t, err := time.ParseInLocation("15:04", a.At, when.Location())
		if err != nil {
			return errorResult(fmt.Sprintf("invalid time %q, want HH:MM", a.At))
		}
		when = time.Date(when.Year(), when.Month(), when.Day(), t.Hour(), t.Minute(), 0, 0, when.Location())
	}
	d := s.deps.Engine.Evaluate(when, s.deps.BaseBid, s.deps.BaseBudget)
	return textResult(formatDecision(d))
}

func handlePromoToday(_ context.Context, s *Server, args json.RawMessage) ToolCallResult {
	if s.deps.Decisions == nil {
		return errorResult("decision log not configured")
	}
	a := struct {
		Last int `json:"last"`
	}{Last: 10}
	if err := decode(args, &a); err != nil {
		return errorResult(err.Error())
	}
	sum, err := s.deps.Decisions.Today(s.now(), a.Last)
	if err != nil {
		return errorResult(err.Error())
	}
	return textResult(formatToday(sum))
}

func handleOrdersSummary(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	if s.deps.Orders == nil {
		return errorResult("order source not configured")
	}
	recs, err := s.deps.Orders.Load(ctx)
	if errors.Is(err, orders.ErrNoExport) {
		return textResult("No order export found. Run `storepilot orders download` first.")
	}
	if err != nil {
		return errorResult(err.Error())
	}
	snap, err := metrics.Aggregate(recs)
	if err != nil {
		return errorResult(err.Error())
	}

	var b strings.Builder
	b.WriteString(formatSnapshot(snap))
	if advice := metrics.Recommend(snap, metrics.ByArea(recs)); len(advice) > 0 {
		b.WriteString("\nRecommendations:\n")
		for _, r := range advice {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	return textResult(b.String())
}
