package policy

import (
	"errors"
	"fmt"

	"github.com/storepilot/storepilot/pkg/models"
)

// ErrIncompleteTable is returned when a decision table misses a segment.
var ErrIncompleteTable = errors.New("incomplete decision table")

// ActionPaused is the action of every rule with a zero multiplier.
const ActionPaused = "paused"

// Table maps every segment to its rule.
type Table map[models.Segment]models.SegmentRule

// DefaultTable returns the built-in decision table.
func DefaultTable() Table {
	return Table{
		models.SegmentMorning:   {Segment: models.SegmentMorning, BidMultiplier: 1.2, BudgetMultiplier: 1.2, Action: "start promotion", Rationale: "breakfast peak, raise bid 20%"},
		models.SegmentLunch:     {Segment: models.SegmentLunch, BidMultiplier: 1.5, BudgetMultiplier: 1.5, Action: "peak mode", Rationale: "lunch peak, raise bid 50%"},
		models.SegmentAfternoon: {Segment: models.SegmentAfternoon, BidMultiplier: 0.7, BudgetMultiplier: 0.7, Action: "lower bid", Rationale: "off-peak afternoon, lower bid 30%"},
		models.SegmentDinner:    {Segment: models.SegmentDinner, BidMultiplier: 1.5, BudgetMultiplier: 1.5, Action: "peak mode", Rationale: "dinner peak, raise bid 50%"},
		models.SegmentNight:     {Segment: models.SegmentNight, BidMultiplier: 1.0, BudgetMultiplier: 1.0, Action: "normal", Rationale: "late-night orders, keep normal bid"},
		models.SegmentOffPeak:   {Segment: models.SegmentOffPeak, BidMultiplier: 0, BudgetMultiplier: 0, Action: ActionPaused, Rationale: "overnight, pause to save budget"},
	}
}

// FromRules builds a table from configured rules. No rules means the default table.
func FromRules(rules []models.SegmentRule) (Table, error) {
	if len(rules) == 0 {
		return DefaultTable(), nil
	}
	t := make(Table, len(rules))
	for _, r := range rules {
		if _, dup := t[r.Segment]; dup {
			return nil, fmt.Errorf("duplicate rule for segment %q", r.Segment)
		}
		t[r.Segment] = r
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks that every segment has a rule with non-negative multipliers
// and that no unknown segment is present.
func (t Table) Validate() error {
	for _, s := range models.Segments {
		r, ok := t[s]
		if !ok {
			return fmt.Errorf("%w: no rule for %q", ErrIncompleteTable, s)
		}
		if r.BidMultiplier < 0 || r.BudgetMultiplier < 0 {
			return fmt.Errorf("rule %q: negative multiplier", s)
		}
	}
	if len(t) != len(models.Segments) {
		for s := range t {
			if !known(s) {
				return fmt.Errorf("unknown segment %q", s)
			}
		}
	}
	return nil
}

func (t Table) clone() Table {
	c := make(Table, len(t))
	for k, v := range t {
		c[k] = v
	}
	return c
}

func known(s models.Segment) bool {
	for _, k := range models.Segments {
		if k == s {
			return true
		}
	}
	return false
}
