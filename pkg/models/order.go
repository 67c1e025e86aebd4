package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
	OrderOther     OrderStatus = "other"
)

// UnmarshalJSON accepts both the canonical names and the labels used by
// the merchant backend exports.
func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("order status: %w", err)
	}
	*s = ParseOrderStatus(raw)
	return nil
}

// ParseOrderStatus maps a raw status label to an OrderStatus.
func ParseOrderStatus(raw string) OrderStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "completed", "已完成":
		return OrderCompleted
	case "cancelled", "canceled", "已取消":
		return OrderCancelled
	default:
		return OrderOther
	}
}

// naiveLayout is the zone-less ISO layout written by the order exports.
const naiveLayout = "2006-01-02T15:04:05"

// Timestamp is an order time that tolerates zone-less ISO strings.
// Zone-less values are interpreted in time.Local.
type Timestamp struct {
	time.Time
}

// MarshalJSON writes the zone-less layout so exports stay stable across hosts.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(naiveLayout))
}

// UnmarshalJSON parses RFC 3339 or the zone-less layout.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("order time: %w", err)
	}
	parsed, err := ParseTimestamp(raw)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// ParseTimestamp parses an order time string.
func ParseTimestamp(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts, nil
	}
	ts, err := time.ParseInLocation(naiveLayout, raw, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse order time %q: %w", raw, err)
	}
	return ts, nil
}

// OrderRecord is a single order as supplied by the order source. Immutable once loaded.
type OrderRecord struct {
	ID              string      `json:"order_id"`
	OrderTime       Timestamp   `json:"order_time"`
	Status          OrderStatus `json:"status"`
	TotalAmount     float64     `json:"total_amount"`
	DeliveryFee     float64     `json:"delivery_fee"`
	Discount        float64     `json:"discount"`
	Rating          float64     `json:"customer_rating"`
	DeliveryMinutes float64     `json:"delivery_time_minutes"`
	Area            string      `json:"address_area"`
}

// OrderExport is the JSON document written next to each CSV export.
type OrderExport struct {
	ExportTime  string        `json:"export_time"`
	TotalOrders int           `json:"total_orders"`
	Orders      []OrderRecord `json:"orders"`
}

// HourBucket aggregates completed orders placed within one hour of the day.
type HourBucket struct {
	Hour   int     `json:"hour"`
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
}

// GroupStat is a count/amount pair for a named group (period or area).
type GroupStat struct {
	Name   string  `json:"name"`
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
}

// MetricsSnapshot is a read-only aggregate over a sequence of orders.
type MetricsSnapshot struct {
	TotalOrders      int          `json:"total_orders"`
	CompletedOrders  int          `json:"completed_orders"`
	CancellationRate float64      `json:"cancellation_rate"`
	TotalRevenue     float64      `json:"total_revenue"`
	AvgOrderValue    float64      `json:"avg_order_value"`
	AvgRating        float64      `json:"avg_rating"`
	AvgDelivery      float64      `json:"avg_delivery_time"`
	PeakHour         int          `json:"peak_hour"`
	Hourly           []HourBucket `json:"hourly_distribution"`
}
