// Package metrics reduces order records into summary statistics.
package metrics

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/storepilot/storepilot/pkg/models"
)

// ErrEmptyInput is returned when there are no orders, or no completed ones.
// Averages are undefined in that case and the snapshot must not be read.
var ErrEmptyInput = errors.New("no completed orders")

// Aggregate computes a MetricsSnapshot. Revenue, rating and delivery
// averages use completed orders only; the cancellation rate uses all orders.
func Aggregate(orders []models.OrderRecord) (models.MetricsSnapshot, error) {
	if len(orders) == 0 {
		return models.MetricsSnapshot{}, fmt.Errorf("aggregate: %w", ErrEmptyInput)
	}

	var (
		completed       int
		revenue, rating float64
		delivery        float64
		counts          [24]int
		amounts         [24]float64
	)
	for _, o := range orders {
		if o.Status != models.OrderCompleted {
			continue
		}
		completed++
		revenue += o.TotalAmount
		rating += o.Rating
		delivery += o.DeliveryMinutes

		h := o.OrderTime.Hour()
		counts[h]++
		amounts[h] += o.TotalAmount
	}
	if completed == 0 {
		return models.MetricsSnapshot{TotalOrders: len(orders)}, fmt.Errorf("aggregate: %w", ErrEmptyInput)
	}

	snap := models.MetricsSnapshot{
		TotalOrders:      len(orders),
		CompletedOrders:  completed,
		CancellationRate: Round(float64(len(orders)-completed)/float64(len(orders))*100, 1),
		TotalRevenue:     Round(revenue, 2),
		AvgOrderValue:    Round(revenue/float64(completed), 2),
		AvgRating:        Round(rating/float64(completed), 2),
		AvgDelivery:      Round(delivery/float64(completed), 1),
	}

	best := -1
	for h := range 24 {
		if counts[h] == 0 {
			continue
		}
		snap.Hourly = append(snap.Hourly, models.HourBucket{Hour: h, Count: counts[h], Amount: Round(amounts[h], 2)})
		// Strictly greater: ties keep the earliest hour.
		if best == -1 || counts[h] > counts[best] {
			best = h
		}
	}
	snap.PeakHour = best
	return snap, nil
}

// Round rounds v to the given number of decimal places, halves away from zero.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// TopHours returns up to n buckets with the highest counts, ties broken by
// earlier hour, re-sorted by hour.
func TopHours(buckets []models.HourBucket, n int) []models.HourBucket {
	if n <= 0 || n >= len(buckets) {
		return buckets
	}
	ranked := append([]models.HourBucket(nil), buckets...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Hour < ranked[j].Hour
	})
	top := ranked[:n]
	sort.Slice(top, func(i, j int) bool { return top[i].Hour < top[j].Hour })
	return top
}
