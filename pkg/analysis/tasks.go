package analysis

import (
	"context"
	"fmt"

	"github.com/storepilot/storepilot/pkg/models"
	"github.com/storepilot/storepilot/pkg/prompt"
)

// Task names, also used as usage-summary keys.
const (
	TaskOrders  = "orders"
	TaskScript  = "script"
	TaskLogic   = "logic"
	TaskCode    = "code"
	TaskPrompt  = "prompt"
	TaskCompare = "compare"
)

// Reply budgets per call site.
const (
	ordersTokens  = 800
	scriptTokens  = 1500
	logicTokens   = 800
	codeTokens    = 1200
	rewriteTokens = 1000
	compareTokens = 800
)

// AnalyzeOrders asks for operational advice on a metrics snapshot.
func (s *Service) AnalyzeOrders(ctx context.Context, snap models.MetricsSnapshot, tier prompt.Tier) (Outcome, error) {
	return s.Run(ctx, Task{
		Name:      TaskOrders,
		Prompt:    prompt.OrdersPrompt(snap, tier),
		Options:   map[string]string{"tier": tier.Name},
		MaxTokens: ordersTokens,
	})
}

// OptimizeScript asks for an optimization review of a script.
// focus is one of "token", "speed" or "readability".
func (s *Service) OptimizeScript(ctx context.Context, script, focus string) (Outcome, error) {
	if focus == "" {
		focus = "token"
	}
	return s.Run(ctx, Task{
		Name:      TaskScript,
		Prompt:    prompt.ScriptPrompt(script, focus, prompt.ScriptMaxLen),
		Options:   map[string]string{"focus": focus},
		MaxTokens: scriptTokens,
	})
}

// AnalyzeLogic asks for an analysis of a logic problem.
func (s *Service) AnalyzeLogic(ctx context.Context, problem, background string) (Outcome, error) {
	return s.Run(ctx, Task{
		Name:      TaskLogic,
		Prompt:    prompt.LogicPrompt(problem, background),
		MaxTokens: logicTokens,
	})
}

// GenerateCode asks for an implementation of requirement.
func (s *Service) GenerateCode(ctx context.Context, requirement, language string) (Outcome, error) {
	if language == "" {
		language = "go"
	}
	return s.Run(ctx, Task{
		Name:      TaskCode,
		Prompt:    prompt.CodePrompt(requirement, language),
		Options:   map[string]string{"language": language},
		MaxTokens: codeTokens,
	})
}

// RewritePrompt asks for a rewrite of original serving goal.
func (s *Service) RewritePrompt(ctx context.Context, original, goal string) (Outcome, error) {
	if goal == "" {
		goal = "reduce_tokens"
	}
	return s.Run(ctx, Task{
		Name:      TaskPrompt,
		Prompt:    prompt.RewritePrompt(original, goal, prompt.RewriteMaxLen),
		Options:   map[string]string{"goal": goal},
		MaxTokens: rewriteTokens,
	})
}

// Compare asks for a trend assessment across past analyses. At least two
// reports are needed.
func (s *Service) Compare(ctx context.Context, reports []prompt.ReportDigest) (Outcome, error) {
	if len(reports) < 2 {
		return Outcome{}, fmt.Errorf("compare needs at least 2 reports, got %d", len(reports))
	}
	return s.Run(ctx, Task{
		Name:      TaskCompare,
		Prompt:    prompt.ComparisonPrompt(reports),
		MaxTokens: compareTokens,
	})
}
