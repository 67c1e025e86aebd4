package metrics

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storepilot/storepilot/pkg/models"
)

func order(id string, hour int, status models.OrderStatus, amount float64) models.OrderRecord {
	return models.OrderRecord{
		ID:              id,
		OrderTime:       models.Timestamp{Time: time.Date(2026, 3, 1, hour, 15, 0, 0, time.UTC)},
		Status:          status,
		TotalAmount:     amount,
		Rating:          5,
		DeliveryMinutes: 30,
		Area:            "Pudong",
	}
}

func TestAggregateExample(t *testing.T) {
	var orders []models.OrderRecord
	for i := range 7 {
		orders = append(orders, order("c"+string(rune('0'+i)), 12, models.OrderCompleted, 20))
	}
	for i := range 3 {
		orders = append(orders, order("x"+string(rune('0'+i)), 12, models.OrderCancelled, 20))
	}

	snap, err := Aggregate(orders)
	require.NoError(t, err)

	assert.Equal(t, 10, snap.TotalOrders)
	assert.Equal(t, 7, snap.CompletedOrders)
	assert.Equal(t, 30.0, snap.CancellationRate)
	assert.Equal(t, 140.0, snap.TotalRevenue)
	assert.Equal(t, 20.0, snap.AvgOrderValue)
	assert.Equal(t, 5.0, snap.AvgRating)
	assert.Equal(t, 30.0, snap.AvgDelivery)
	assert.Equal(t, 12, snap.PeakHour)
}

func TestAggregateHourlyBuckets(t *testing.T) {
	orders := []models.OrderRecord{
		order("1", 18, models.OrderCompleted, 30),
		order("2", 8, models.OrderCompleted, 12.5),
		order("3", 18, models.OrderCompleted, 25),
		order("4", 18, models.OrderCancelled, 99),
		order("5", 8, models.OrderOther, 10),
	}

	snap, err := Aggregate(orders)
	require.NoError(t, err)

	want := []models.HourBucket{
		{Hour: 8, Count: 1, Amount: 12.5},
		{Hour: 18, Count: 2, Amount: 55},
	}
	if diff := cmp.Diff(want, snap.Hourly); diff != "" {
		t.Errorf("hourly mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 18, snap.PeakHour)
	assert.Equal(t, 40.0, snap.CancellationRate)
}

func TestPeakTieBreak(t *testing.T) {
	var orders []models.OrderRecord
	for range 3 {
		orders = append(orders, order("b", 13, models.OrderCompleted, 10))
		orders = append(orders, order("a", 11, models.OrderCompleted, 10))
	}

	snap, err := Aggregate(orders)
	require.NoError(t, err)
	assert.Equal(t, 11, snap.PeakHour)
}

func TestAggregateEmpty(t *testing.T) {
	_, err := Aggregate(nil)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = Aggregate([]models.OrderRecord{order("1", 12, models.OrderCancelled, 10)})
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestPeriodName(t *testing.T) {
	cases := map[int]string{
		6: PeriodOther, 7: PeriodBreakfast, 8: PeriodBreakfast, 9: PeriodOther,
		11: PeriodLunch, 12: PeriodLunch, 13: PeriodOther,
		17: PeriodDinner, 19: PeriodOther,
		21: PeriodLateNight, 22: PeriodLateNight, 23: PeriodOther, 0: PeriodOther,
	}
	for hour, want := range cases {
		assert.Equal(t, want, PeriodName(hour), "hour %d", hour)
	}
}

func TestByPeriodAndArea(t *testing.T) {
	orders := []models.OrderRecord{
		order("1", 22, models.OrderCompleted, 10),
		order("2", 12, models.OrderCompleted, 20),
		order("3", 15, models.OrderCompleted, 5),
		order("4", 12, models.OrderCancelled, 50),
	}
	orders[1].Area = "Xuhui"

	periods := ByPeriod(orders)
	want := []models.GroupStat{
		{Name: PeriodLunch, Count: 1, Amount: 20},
		{Name: PeriodLateNight, Count: 1, Amount: 10},
		{Name: PeriodOther, Count: 1, Amount: 5},
	}
	if diff := cmp.Diff(want, periods); diff != "" {
		t.Errorf("periods mismatch (-want +got):\n%s", diff)
	}

	areas := ByArea(orders)
	require.Len(t, areas, 2)
	assert.Equal(t, "Pudong", areas[0].Name)
	assert.Equal(t, 2, areas[0].Count)
}

func TestTopHours(t *testing.T) {
	buckets := []models.HourBucket{
		{Hour: 8, Count: 1}, {Hour: 11, Count: 5}, {Hour: 12, Count: 5}, {Hour: 18, Count: 4}, {Hour: 21, Count: 5},
	}
	top := TopHours(buckets, 2)
	if diff := cmp.Diff([]models.HourBucket{{Hour: 11, Count: 5}, {Hour: 12, Count: 5}}, top); diff != "" {
		t.Errorf("top hours mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, TopHours(buckets, 0), 5)
	assert.Equal(t, 8, buckets[0].Hour, "input must not be reordered")
}

func TestRecommend(t *testing.T) {
	snap := models.MetricsSnapshot{
		AvgRating:   4.2,
		AvgDelivery: 40,
		PeakHour:    12,
		Hourly:      []models.HourBucket{{Hour: 12, Count: 3}},
	}
	recs := Recommend(snap, []models.GroupStat{{Name: "Jingan", Count: 3}})
	require.Len(t, recs, 4)
	assert.Contains(t, recs[0], "rating")
	assert.Contains(t, recs[1], "delivery")
	assert.Contains(t, recs[2], "12:00 (Lunch)")
	assert.Contains(t, recs[3], "Jingan")

	good := models.MetricsSnapshot{AvgRating: 4.9, AvgDelivery: 20}
	assert.Empty(t, Recommend(good, nil))
}
