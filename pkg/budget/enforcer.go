// Package budget caps the tokens spent on remote analysis calls.
package budget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/storepilot/storepilot/pkg/models"
	"github.com/storepilot/storepilot/pkg/tracker"
)

// ErrBudgetExceeded is returned when a task has used up a budget.
var ErrBudgetExceeded = errors.New("token budget exceeded")

// Enforcer checks tracked token usage against budgets.
type Enforcer struct {
	budgets []models.TokenBudget
	tracker tracker.Tracker
	now     func() time.Time
}

// New creates an Enforcer with the given budgets and tracker.
func New(budgets []models.TokenBudget, t tracker.Tracker) *Enforcer {
	return &Enforcer{budgets: budgets, tracker: t, now: time.Now}
}

// Check returns ErrBudgetExceeded if task has exhausted any applicable budget.
func (e *Enforcer) Check(ctx context.Context, task string) error {
	statuses, err := e.Status(ctx, task)
	if err != nil {
		return err
	}
	for _, s := range statuses {
		if s.Remaining <= 0 {
			return fmt.Errorf("%w: %s %s budget of %d tokens", ErrBudgetExceeded, task, s.Budget.Period, s.Budget.MaxTokens)
		}
	}
	return nil
}

// Status returns usage against every budget applying to task.
// An empty task reports only the budgets that apply to all tasks.
func (e *Enforcer) Status(ctx context.Context, task string) ([]models.BudgetStatus, error) {
	var statuses []models.BudgetStatus
	for _, b := range e.budgets {
		scope, ok := e.scope(b, task)
		if !ok {
			continue
		}
		used, err := e.tracker.TotalTokens(ctx, scope, e.periodStart(b.Period))
		if err != nil {
			return nil, fmt.Errorf("budget status: %w", err)
		}
		remaining := b.MaxTokens - used
		if remaining < 0 {
			remaining = 0
		}
		statuses = append(statuses, models.BudgetStatus{Budget: b, Used: used, Remaining: remaining})
	}
	return statuses, nil
}

// scope returns the task filter to count usage with, and whether b applies.
func (e *Enforcer) scope(b models.TokenBudget, task string) (string, bool) {
	switch {
	case b.Task == "" || b.Task == "*":
		return "", true
	case b.Task == task:
		return task, true
	default:
		return "", false
	}
}

// periodStart is midnight (daily) or the first of the month (monthly) in local time.
func (e *Enforcer) periodStart(period models.BudgetPeriod) time.Time {
	now := e.now()
	switch period {
	case models.BudgetMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	default: // daily
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	}
}
