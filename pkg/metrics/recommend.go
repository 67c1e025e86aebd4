package metrics

import (
	"fmt"

	"github.com/storepilot/storepilot/pkg/models"
)

// Thresholds below which Recommend raises a warning.
const (
	MinRating          = 4.5
	MaxDeliveryMinutes = 35
)

// Recommend derives rule-based advice from a snapshot and its area breakdown.
func Recommend(snap models.MetricsSnapshot, areas []models.GroupStat) []string {
	var recs []string
	if snap.AvgRating < MinRating {
		recs = append(recs, fmt.Sprintf("average rating %.2f is below %.1f: review dish quality and packaging", snap.AvgRating, MinRating))
	}
	if snap.AvgDelivery > MaxDeliveryMinutes {
		recs = append(recs, fmt.Sprintf("average delivery %.1f min exceeds %d min: streamline food preparation", snap.AvgDelivery, MaxDeliveryMinutes))
	}
	if len(snap.Hourly) > 0 {
		recs = append(recs, fmt.Sprintf("peak hour %02d:00 (%s): prepare stock ahead of it", snap.PeakHour, PeriodName(snap.PeakHour)))
	}
	if len(areas) > 0 {
		recs = append(recs, fmt.Sprintf("busiest area %s (%d orders): target promotion there", areas[0].Name, areas[0].Count))
	}
	return recs
}
