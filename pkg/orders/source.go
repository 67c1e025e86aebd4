// Package orders loads and exports order records.
package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/storepilot/storepilot/pkg/models"
)

// ErrNoExport is returned when a directory holds no order export.
var ErrNoExport = errors.New("no order export found")

// Source produces order records, oldest first.
type Source interface {
	Load(ctx context.Context) ([]models.OrderRecord, error)
}

// DirSource reads the newest orders_*.json export in Dir.
type DirSource struct {
	Dir string
}

// Latest returns the path of the newest export. Export names embed a
// sortable timestamp, so the lexically last one is the newest.
func (s DirSource) Latest() (string, error) {
	matches, err := filepath.Glob(filepath.Join(s.Dir, "orders_*.json"))
	if err != nil {
		return "", fmt.Errorf("list exports: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoExport, s.Dir)
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// Load reads the newest export.
func (s DirSource) Load(ctx context.Context) ([]models.OrderRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.Latest()
	if err != nil {
		return nil, err
	}
	return ReadExport(path)
}

// ReadExport parses one JSON export file.
func ReadExport(path string) ([]models.OrderRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	var exp models.OrderExport
	if err := json.Unmarshal(data, &exp); err != nil {
		return nil, fmt.Errorf("parse export %s: %w", filepath.Base(path), err)
	}
	return exp.Orders, nil
}

// MockSource generates the simulated orders used until a real merchant API
// is connected: Days days ending at End, 20 orders on the first day and 5
// more on each following day.
type MockSource struct {
	End  time.Time
	Days int
}

var mockAreas = []string{"Pudong", "Xuhui", "Jing'an", "Changning"}

// Load generates the orders. The output depends only on End and Days.
func (s MockSource) Load(ctx context.Context) ([]models.OrderRecord, error) {
	if s.Days <= 0 {
		return nil, fmt.Errorf("mock source: days must be positive, got %d", s.Days)
	}
	start := s.End.AddDate(0, 0, -s.Days)
	var out []models.OrderRecord
	for d := 0; d < s.Days; d++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, mockDay(start.AddDate(0, 0, d), 20+d*5)...)
	}
	return out, nil
}

func mockDay(date time.Time, count int) []models.OrderRecord {
	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	orders := make([]models.OrderRecord, 0, count)
	for i := 0; i < count; i++ {
		status := models.OrderCompleted
		if i%4 == 3 {
			status = models.OrderCancelled
		}
		rating := 5.0
		if i%5 == 3 {
			rating = 4
		}
		orders = append(orders, models.OrderRecord{
			ID:              fmt.Sprintf("EM%s%04d", date.Format("20060102"), i+1),
			OrderTime:       models.Timestamp{Time: midnight.Add(time.Duration(11+i%12)*time.Hour + time.Duration(i*3%60)*time.Minute)},
			Status:          status,
			TotalAmount:     float64(21 + i%10),
			DeliveryFee:     float64(3 + i%3),
			Discount:        float64(i % 5),
			Rating:          rating,
			DeliveryMinutes: float64(25 + i%20),
			Area:            mockAreas[i%4],
		})
	}
	return orders
}
