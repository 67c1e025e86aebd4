package models

// Segment is a named operating window of the day.
type Segment string

const (
	SegmentMorning   Segment = "morning"
	SegmentLunch     Segment = "lunch"
	SegmentAfternoon Segment = "afternoon"
	SegmentDinner    Segment = "dinner"
	SegmentNight     Segment = "night"
	SegmentOffPeak   Segment = "off_peak"
)

// Segments lists every segment in day order, OffPeak last.
var Segments = []Segment{
	SegmentMorning, SegmentLunch, SegmentAfternoon, SegmentDinner, SegmentNight, SegmentOffPeak,
}

// SegmentRule maps a segment to its multipliers and labels.
type SegmentRule struct {
	Segment          Segment `json:"segment" yaml:"segment"`
	BidMultiplier    float64 `json:"bid_multiplier" yaml:"bid_multiplier"`
	BudgetMultiplier float64 `json:"budget_multiplier" yaml:"budget_multiplier"`
	Action           string  `json:"action" yaml:"action"`
	Rationale        string  `json:"rationale" yaml:"rationale"`
}

// PolicyDecision is one evaluation of the policy engine; also the decision log line.
type PolicyDecision struct {
	Timestamp string  `json:"timestamp"`
	Segment   Segment `json:"segment"`
	Action    string  `json:"action"`
	Bid       float64 `json:"bid"`
	Budget    float64 `json:"budget"`
	Rationale string  `json:"rationale"`
}

// Paused reports whether the decision stops promotion entirely.
func (d PolicyDecision) Paused() bool {
	return d.Bid == 0 && d.Budget == 0
}

// DailySummary reports the decisions logged on one calendar day.
type DailySummary struct {
	Date       string           `json:"date"`
	Total      int              `json:"total_adjustments"`
	LastAction string           `json:"last_action,omitempty"`
	CurrentBid float64          `json:"current_bid"`
	History    []PolicyDecision `json:"history"`
}
