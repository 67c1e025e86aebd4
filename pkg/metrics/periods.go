package metrics

import (
	"sort"

	"github.com/storepilot/storepilot/pkg/models"
)

// Period labels used for reporting order distribution.
const (
	PeriodBreakfast = "Breakfast"
	PeriodLunch     = "Lunch"
	PeriodDinner    = "Dinner"
	PeriodLateNight = "LateNight"
	PeriodOther     = "Other"
)

// periods are half-open [from, to) hour ranges; uncovered hours are Other.
var periods = []struct {
	from, to int
	name     string
}{
	{7, 9, PeriodBreakfast},
	{11, 13, PeriodLunch},
	{17, 19, PeriodDinner},
	{21, 23, PeriodLateNight},
}

// PeriodName labels an hour of the day.
func PeriodName(hour int) string {
	for _, p := range periods {
		if hour >= p.from && hour < p.to {
			return p.name
		}
	}
	return PeriodOther
}

// ByPeriod groups completed orders by period, in day order with Other last.
// Periods without orders are omitted.
func ByPeriod(orders []models.OrderRecord) []models.GroupStat {
	stats := group(orders, func(o models.OrderRecord) string { return PeriodName(o.OrderTime.Hour()) })
	rank := map[string]int{PeriodOther: len(periods)}
	for i, p := range periods {
		rank[p.name] = i
	}
	sort.Slice(stats, func(i, j int) bool { return rank[stats[i].Name] < rank[stats[j].Name] })
	return stats
}

// ByArea groups completed orders by delivery area, busiest first.
func ByArea(orders []models.OrderRecord) []models.GroupStat {
	stats := group(orders, func(o models.OrderRecord) string {
		if o.Area == "" {
			return "unknown"
		}
		return o.Area
	})
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Name < stats[j].Name
	})
	return stats
}

func group(orders []models.OrderRecord, key func(models.OrderRecord) string) []models.GroupStat {
	idx := make(map[string]int)
	var stats []models.GroupStat
	for _, o := range orders {
		if o.Status != models.OrderCompleted {
			continue
		}
		k := key(o)
		i, ok := idx[k]
		if !ok {
			i = len(stats)
			idx[k] = i
			stats = append(stats, models.GroupStat{Name: k})
		}
		stats[i].Count++
		stats[i].Amount = Round(stats[i].Amount+o.TotalAmount, 2)
	}
	return stats
}
