// Package policy maps the time of day to a promotion decision.
package policy

import (
	"time"

	"github.com/storepilot/storepilot/pkg/models"
)

// window is a half-open [start, end) range in minutes since midnight.
type window struct {
	segment    models.Segment
	start, end int
}

// windows is checked in order; anything outside them is off-peak.
var windows = []window{
	{models.SegmentMorning, 7 * 60, 9 * 60},
	{models.SegmentLunch, 11 * 60, 13 * 60},
	{models.SegmentAfternoon, 14 * 60, 16 * 60},
	{models.SegmentDinner, 17 * 60, 19 * 60},
	{models.SegmentNight, 21 * 60, 23 * 60},
}

// SegmentFor returns the segment containing t's wall-clock time.
func SegmentFor(t time.Time) models.Segment {
	m := t.Hour()*60 + t.Minute()
	for _, w := range windows {
		if m >= w.start && m < w.end {
			return w.segment
		}
	}
	return models.SegmentOffPeak
}

// SegmentWindow returns the "HH:MM-HH:MM" range of a segment, or "" for off-peak.
func SegmentWindow(s models.Segment) string {
	for _, w := range windows {
		if w.segment == s {
			return clock(w.start) + "-" + clock(w.end)
		}
	}
	return ""
}

func clock(m int) string {
	return time.Date(0, 1, 1, m/60, m%60, 0, 0, time.UTC).Format("15:04")
}
