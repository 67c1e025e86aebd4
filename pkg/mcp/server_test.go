package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storepilot/storepilot/pkg/models"
	"github.com/storepilot/storepilot/pkg/orders"
	"github.com/storepilot/storepilot/pkg/policy"
)

// fakeTracker implements tracker.Tracker for testing.
type fakeTracker struct {
	summaries []models.UsageSummary
	since     time.Time
}

func (f *fakeTracker) Record(_ context.Context, _ models.UsageRecord) error { return nil }
func (f *fakeTracker) Summary(_ context.Context, since time.Time) ([]models.UsageSummary, error) {
	f.since = since
	return f.summaries, nil
}
func (f *fakeTracker) Recent(_ context.Context, _ int) ([]models.UsageRecord, error) {
	return nil, nil
}
func (f *fakeTracker) TotalTokens(_ context.Context, _ string, _ time.Time) (int64, error) {
	return 0, nil
}
func (f *fakeTracker) Close() error { return nil }

type fakeCache struct {
	stats models.CacheStats
}

func (f *fakeCache) Stats(_ context.Context) (models.CacheStats, error) { return f.stats, nil }

type fakeBudget struct {
	status []models.BudgetStatus
	task   string
}

func (f *fakeBudget) Status(_ context.Context, task string) ([]models.BudgetStatus, error) {
	f.task = task
	return f.status, nil
}

var noon = time.Date(2026, 3, 2, 12, 0, 0, 0, time.Local)

func newTestServer(deps Deps) *Server {
	srv := New(deps, "test", nil)
	srv.now = func() time.Time { return noon }
	return srv
}

func sendAndReceive(t *testing.T, srv *Server, req Request) Response {
	t.Helper()
	line, err := json.Marshal(req)
	require.NoError(t, err)
	line = append(line, '\n')

	var out bytes.Buffer
	require.NoError(t, srv.Run(context.Background(), bytes.NewReader(line), &out))

	var resp Response
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp), "raw: %s", out.String())
	return resp
}

// callTool sends tools/call and returns the decoded tool result.
func callTool(t *testing.T, srv *Server, name, args string) ToolCallResult {
	t.Helper()
	params := ToolCallParams{Name: name}
	if args != "" {
		params.Arguments = json.RawMessage(args)
	}
	raw, err := json.Marshal(params)
	require.NoError(t, err)

	resp := sendAndReceive(t, srv, Request{JSONRPC: "2.0", ID: json.RawMessage(`7`), Method: "tools/call", Params: raw})
	require.Nil(t, resp.Error)

	data, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result ToolCallResult
	require.NoError(t, json.Unmarshal(data, &result))
	require.Len(t, result.Content, 1)
	return result
}

func TestInitialize(t *testing.T) {
	resp := sendAndReceive(t, newTestServer(Deps{}), Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`1`),
		Method:  "initialize",
	})
	require.Nil(t, resp.Error)
	assert.JSONEq(t, `1`, string(resp.ID))

	result := resp.Result.(map[string]any)
	assert.Equal(t, protocolVersion, result["protocolVersion"])
	info := result["serverInfo"].(map[string]any)
	assert.Equal(t, "storepilot", info["name"])
	assert.Equal(t, "test", info["version"])
}

func TestToolsList(t *testing.T) {
	resp := sendAndReceive(t, newTestServer(Deps{}), Request{JSONRPC: "2.0", ID: json.RawMessage(`2`), Method: "tools/list"})
	require.Nil(t, resp.Error)

	listed := resp.Result.(map[string]any)["tools"].([]any)
	require.Len(t, listed, len(handlers))
	for _, item := range listed {
		name := item.(map[string]any)["name"].(string)
		_, ok := handlers[name]
		assert.True(t, ok, "tool %s has no handler", name)
	}
}

func TestToolCallUsage(t *testing.T) {
	tr := &fakeTracker{summaries: []models.UsageSummary{
		{Task: "orders", Calls: 4, CacheHits: 3, PromptChars: 900, TotalTokens: 450},
		{Task: "script", Calls: 1, TotalTokens: 70},
	}}
	srv := newTestServer(Deps{Tracker: tr})

	result := callTool(t, srv, "storepilot_usage", `{"since_hours":24}`)
	assert.False(t, result.IsError)
	text := result.Content[0].Text
	assert.Contains(t, text, "orders | 4 | 3 | 900 | 450")
	assert.Contains(t, text, "Total: 5 calls, 3 cache hits, 520 tokens")
	assert.Equal(t, noon.Add(-24*time.Hour), tr.since)
}

func TestToolCallUsageDefaultsToAllTime(t *testing.T) {
	tr := &fakeTracker{}
	result := callTool(t, newTestServer(Deps{Tracker: tr}), "storepilot_usage", "")
	assert.Equal(t, "No analysis calls recorded.", result.Content[0].Text)
	assert.True(t, tr.since.IsZero())
}

func TestToolCallBudget(t *testing.T) {
	b := &fakeBudget{status: []models.BudgetStatus{{
		Budget:    models.TokenBudget{MaxTokens: 10000, Period: models.BudgetDaily},
		Used:      2500,
		Remaining: 7500,
	}}}
	result := callTool(t, newTestServer(Deps{Budget: b}), "storepilot_budget", `{"task":"orders"}`)
	assert.False(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "all tasks | daily | 10000 | 2500 | 7500")
	assert.Equal(t, "orders", b.task)
}

func TestToolCallBudgetNotConfigured(t *testing.T) {
	result := callTool(t, newTestServer(Deps{}), "storepilot_budget", "")
	assert.False(t, result.IsError)
	assert.Equal(t, "No token budgets configured.", result.Content[0].Text)
}

func TestToolCallCacheStats(t *testing.T) {
	c := &fakeCache{stats: models.CacheStats{Backend: "file+lru", Entries: 12, Hits: 3, Misses: 1}}
	result := callTool(t, newTestServer(Deps{Cache: c}), "storepilot_cache_stats", "")
	text := result.Content[0].Text
	assert.Contains(t, text, "Backend: file+lru")
	assert.Contains(t, text, "Entries: 12")
	assert.Contains(t, text, "Hit rate: 75.0%")
	assert.NotContains(t, text, "Corrupt")
}

func TestToolCallCacheNotConfigured(t *testing.T) {
	result := callTool(t, newTestServer(Deps{}), "storepilot_cache_stats", "")
	assert.True(t, result.IsError)
}

func newTestEngine(t *testing.T) (*policy.Engine, *policy.DecisionLog) {
	t.Helper()
	log := policy.NewDecisionLog(filepath.Join(t.TempDir(), "decisions.jsonl"))
	e, err := policy.NewEngine(policy.DefaultTable(), log)
	require.NoError(t, err)
	return e, log
}

func TestToolCallPromoDecisionLogsNothing(t *testing.T) {
	e, log := newTestEngine(t)
	srv := newTestServer(Deps{Engine: e, Decisions: log, BaseBid: 1, BaseBudget: 75})

	result := callTool(t, srv, "storepilot_promo_decision", "")
	text := result.Content[0].Text
	assert.Contains(t, text, "Segment: lunch (11:00-13:00)")
	assert.Contains(t, text, "Action: peak mode")
	assert.Contains(t, text, "Bid: 1.50")
	assert.Contains(t, text, "Budget: 112.50")

	all, err := log.All()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestToolCallPromoDecisionAt(t *testing.T) {
	e, _ := newTestEngine(t)
	srv := newTestServer(Deps{Engine: e, BaseBid: 1, BaseBudget: 75})

	result := callTool(t, srv, "storepilot_promo_decision", `{"at":"03:00"}`)
	assert.Contains(t, result.Content[0].Text, "Action: paused")

	result = callTool(t, srv, "storepilot_promo_decision", `{"at":"noonish"}`)
	assert.True(t, result.IsError)
}

func TestToolCallPromoToday(t *testing.T) {
	e, log := newTestEngine(t)
	srv := newTestServer(Deps{Engine: e, Decisions: log})

	result := callTool(t, srv, "storepilot_promo_today", "")
	assert.Equal(t, "No adjustments on 2026-03-02.", result.Content[0].Text)

	_, err := e.DecideAt(noon, 1, 75)
	require.NoError(t, err)

	result = callTool(t, srv, "storepilot_promo_today", `{"last":5}`)
	text := result.Content[0].Text
	assert.Contains(t, text, "Adjustments: 1")
	assert.Contains(t, text, "Last action: peak mode")
	assert.Contains(t, text, "2026-03-02 12:00:00 | lunch | peak mode | 1.50 | 112.50")
}

func TestToolCallOrdersSummary(t *testing.T) {
	src := orders.MockSource{End: noon, Days: 1}
	result := callTool(t, newTestServer(Deps{Orders: src}), "storepilot_orders_summary", "")
	assert.False(t, result.IsError)
	text := result.Content[0].Text
	assert.Contains(t, text, "Orders: 20 (15 completed, 25.0% cancelled)")
	assert.Contains(t, text, "Recommendations:")
}

func TestToolCallOrdersSummaryNoExport(t *testing.T) {
	src := orders.DirSource{Dir: t.TempDir()}
	result := callTool(t, newTestServer(Deps{Orders: src}), "storepilot_orders_summary", "")
	assert.False(t, result.IsError)
	assert.True(t, strings.HasPrefix(result.Content[0].Text, "No order export found."))
}

func TestToolCallUnknownTool(t *testing.T) {
	result := callTool(t, newTestServer(Deps{}), "storepilot_nope", "")
	assert.True(t, result.IsError)
	assert.Equal(t, "unknown tool: storepilot_nope", result.Content[0].Text)
}

func TestToolCallBadArguments(t *testing.T) {
	result := callTool(t, newTestServer(Deps{Tracker: &fakeTracker{}}), "storepilot_usage", `{"since_hours":"a day"}`)
	assert.True(t, result.IsError)
}

func TestNotificationNoResponse(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader(`{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n")
	require.NoError(t, newTestServer(Deps{}).Run(context.Background(), in, &out))
	assert.Zero(t, out.Len())
}

func TestUnknownMethod(t *testing.T) {
	resp := sendAndReceive(t, newTestServer(Deps{}), Request{JSONRPC: "2.0", ID: json.RawMessage(`3`), Method: "resources/list"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeMethodNotFound, resp.Error.Code)
}

func TestParseError(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader("{not json\n\n")
	require.NoError(t, newTestServer(Deps{}).Run(context.Background(), in, &out))

	var resp Response
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeParseError, resp.Error.Code)
}
