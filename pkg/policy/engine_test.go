package policy

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storepilot/storepilot/pkg/models"
)

func at(hh, mm int) time.Time {
	return time.Date(2026, 3, 4, hh, mm, 0, 0, time.Local)
}

func newTestEngine(t *testing.T) (*Engine, *DecisionLog) {
	t.Helper()
	log := NewDecisionLog(filepath.Join(t.TempDir(), "logs", "decisions.jsonl"))
	e, err := NewEngine(DefaultTable(), log)
	require.NoError(t, err)
	return e, log
}

func TestSegmentFor(t *testing.T) {
	tests := []struct {
		hh, mm int
		want   models.Segment
	}{
		{6, 59, models.SegmentOffPeak},
		{7, 0, models.SegmentMorning},
		{8, 59, models.SegmentMorning},
		{9, 0, models.SegmentOffPeak},
		{12, 0, models.SegmentLunch},
		{13, 0, models.SegmentOffPeak},
		{14, 30, models.SegmentAfternoon},
		{16, 0, models.SegmentOffPeak},
		{18, 15, models.SegmentDinner},
		{21, 0, models.SegmentNight},
		{22, 59, models.SegmentNight},
		{23, 0, models.SegmentOffPeak},
		{3, 0, models.SegmentOffPeak},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SegmentFor(at(tt.hh, tt.mm)), "%02d:%02d", tt.hh, tt.mm)
	}
}

func TestEveryMinuteHasOneRule(t *testing.T) {
	table := DefaultTable()
	start := at(0, 0)
	for m := 0; m < 24*60; m++ {
		seg := SegmentFor(start.Add(time.Duration(m) * time.Minute))
		_, ok := table[seg]
		require.True(t, ok, "minute %d maps to %q without a rule", m, seg)
	}
}

func TestDecideLunchPeak(t *testing.T) {
	e, _ := newTestEngine(t)

	d, err := e.DecideAt(at(12, 0), 1.0, 75.0)
	require.NoError(t, err)
	assert.Equal(t, models.SegmentLunch, d.Segment)
	assert.Equal(t, 1.5, d.Bid)
	assert.Equal(t, 112.5, d.Budget)
	assert.Equal(t, "peak mode", d.Action)
	assert.Equal(t, "2026-03-04 12:00:00", d.Timestamp)
}

func TestDecideOffPeakPauses(t *testing.T) {
	e, _ := newTestEngine(t)

	d, err := e.DecideAt(at(3, 0), 1.0, 75.0)
	require.NoError(t, err)
	assert.Equal(t, models.SegmentOffPeak, d.Segment)
	assert.Zero(t, d.Bid)
	assert.Zero(t, d.Budget)
	assert.Equal(t, ActionPaused, d.Action)
	assert.True(t, d.Paused())
}

func TestZeroMultiplierOnEitherSidePauses(t *testing.T) {
	e, _ := newTestEngine(t)

	for name, edit := range map[string]func(*models.SegmentRule){
		"budget": func(r *models.SegmentRule) { r.BudgetMultiplier = 0 },
		"bid":    func(r *models.SegmentRule) { r.BidMultiplier = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			table := DefaultTable()
			r := table[models.SegmentAfternoon]
			edit(&r)
			table[models.SegmentAfternoon] = r
			require.NoError(t, e.SetTable(table))

			d := e.Evaluate(at(15, 0), 1.0, 75.0)
			assert.Equal(t, models.SegmentAfternoon, d.Segment)
			assert.Equal(t, ActionPaused, d.Action)
			assert.Zero(t, d.Bid)
			assert.Zero(t, d.Budget)
			assert.True(t, d.Paused())
		})
	}
}

func TestDecideRoundsToCents(t *testing.T) {
	e, _ := newTestEngine(t)

	d := e.Evaluate(at(14, 0), 1.23, 33.33)
	assert.Equal(t, 0.86, d.Bid)
	assert.Equal(t, 23.33, d.Budget)
}

func TestDecideUsesClock(t *testing.T) {
	log := NewDecisionLog(filepath.Join(t.TempDir(), "d.jsonl"))
	e, err := NewEngine(DefaultTable(), log, WithClock(func() time.Time { return at(18, 30) }))
	require.NoError(t, err)

	d, err := e.Decide(2, 100)
	require.NoError(t, err)
	assert.Equal(t, models.SegmentDinner, d.Segment)
	assert.Equal(t, 3.0, d.Bid)
}

func TestDecideAppendsToLog(t *testing.T) {
	e, log := newTestEngine(t)

	for _, hh := range []int{7, 12, 3} {
		_, err := e.DecideAt(at(hh, 0), 1, 75)
		require.NoError(t, err)
	}

	all, err := log.All()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "start promotion", all[0].Action)
	assert.Equal(t, ActionPaused, all[2].Action)
}

func TestTableValidate(t *testing.T) {
	table := DefaultTable()
	delete(table, models.SegmentNight)
	err := table.Validate()
	assert.True(t, errors.Is(err, ErrIncompleteTable))

	_, err = NewEngine(table, nil)
	assert.ErrorIs(t, err, ErrIncompleteTable)

	table = DefaultTable()
	table["brunch"] = models.SegmentRule{Segment: "brunch"}
	assert.Error(t, table.Validate())

	table = DefaultTable()
	r := table[models.SegmentLunch]
	r.BidMultiplier = -1
	table[models.SegmentLunch] = r
	assert.Error(t, table.Validate())
}

func TestFromRules(t *testing.T) {
	table, err := FromRules(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTable(), table)

	var rules []models.SegmentRule
	for _, s := range models.Segments {
		rules = append(rules, models.SegmentRule{Segment: s, BidMultiplier: 2, BudgetMultiplier: 2, Action: "boost"})
	}
	table, err = FromRules(rules)
	require.NoError(t, err)
	assert.Equal(t, 2.0, table[models.SegmentOffPeak].BidMultiplier)

	_, err = FromRules(rules[:2])
	assert.ErrorIs(t, err, ErrIncompleteTable)

	_, err = FromRules(append(rules, rules[0]))
	assert.Error(t, err)
}

func TestSetTable(t *testing.T) {
	e, _ := newTestEngine(t)

	table := DefaultTable()
	r := table[models.SegmentLunch]
	r.BidMultiplier = 2
	table[models.SegmentLunch] = r
	require.NoError(t, e.SetTable(table))
	assert.Equal(t, 2.0, e.Evaluate(at(12, 0), 1, 75).Bid)

	// Mutating the caller's table afterwards has no effect.
	r.BidMultiplier = 9
	table[models.SegmentLunch] = r
	assert.Equal(t, 2.0, e.Evaluate(at(12, 0), 1, 75).Bid)

	delete(table, models.SegmentLunch)
	assert.ErrorIs(t, e.SetTable(table), ErrIncompleteTable)
	assert.Equal(t, 2.0, e.Evaluate(at(12, 0), 1, 75).Bid)
}

func TestBaseBudget(t *testing.T) {
	assert.Equal(t, 75.0, BaseBudget(30, 25))
	assert.Equal(t, 90.0, BaseBudget(40, 22.5))
}

func TestSegmentWindow(t *testing.T) {
	assert.Equal(t, "11:00-13:00", SegmentWindow(models.SegmentLunch))
	assert.Equal(t, "", SegmentWindow(models.SegmentOffPeak))
}
