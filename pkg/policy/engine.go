package policy

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/storepilot/storepilot/pkg/metrics"
	"github.com/storepilot/storepilot/pkg/models"
)

// TimestampLayout is the format of PolicyDecision.Timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

// Engine evaluates the decision table and records each decision.
type Engine struct {
	mu    sync.RWMutex
	table Table

	log    *DecisionLog
	now    func() time.Time
	logger *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the engine's logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an Engine. A nil log disables recording.
func NewEngine(table Table, log *DecisionLog, opts ...Option) (*Engine, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		table:  table.clone(),
		log:    log,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Decide evaluates the current time and records the decision.
func (e *Engine) Decide(baseBid, baseBudget float64) (models.PolicyDecision, error) {
	return e.DecideAt(e.now(), baseBid, baseBudget)
}

// DecideAt evaluates t and records the decision.
func (e *Engine) DecideAt(t time.Time, baseBid, baseBudget float64) (models.PolicyDecision, error) {
	d := e.Evaluate(t, baseBid, baseBudget)
	if e.log != nil {
		if err := e.log.Append(d); err != nil {
			return d, fmt.Errorf("record decision: %w", err)
		}
	}
	e.logger.Info("promotion decision",
		zap.String("segment", string(d.Segment)),
		zap.String("action", d.Action),
		zap.Float64("bid", d.Bid),
		zap.Float64("budget", d.Budget),
	)
	return d, nil
}

// Evaluate computes the decision for t without recording it.
func (e *Engine) Evaluate(t time.Time, baseBid, baseBudget float64) models.PolicyDecision {
	seg := SegmentFor(t)
	e.mu.RLock()
	rule := e.table[seg]
	e.mu.RUnlock()

	d := models.PolicyDecision{
		Timestamp: t.Format(TimestampLayout),
		Segment:   seg,
		Action:    rule.Action,
		Rationale: rule.Rationale,
	}
	// Either multiplier at zero stops the promotion; bid and budget both go to 0.
	if rule.BidMultiplier == 0 || rule.BudgetMultiplier == 0 {
		d.Action = ActionPaused
		return d
	}
	d.Bid = metrics.Round(baseBid*rule.BidMultiplier, 2)
	d.Budget = metrics.Round(baseBudget*rule.BudgetMultiplier, 2)
	return d
}

// SetTable replaces the decision table after validating it.
func (e *Engine) SetTable(t Table) error {
	if err := t.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	e.table = t.clone()
	e.mu.Unlock()
	return nil
}

// Table returns a copy of the current decision table.
func (e *Engine) Table() Table {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.table.clone()
}

// BaseBudget derives a daily budget from an order target: 10% of the
// expected turnover, rounded to cents.
func BaseBudget(targetOrders int, avgOrderValue float64) float64 {
	return metrics.Round(float64(targetOrders)*avgOrderValue*0.1, 2)
}
