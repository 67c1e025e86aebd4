package orders

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/storepilot/storepilot/pkg/models"
)

// StampLayout is the timestamp embedded in export file names.
const StampLayout = "20060102_150405"

// csvHeader matches the JSON field names of models.OrderRecord.
var csvHeader = []string{
	"order_id", "order_time", "status", "total_amount", "delivery_fee",
	"discount", "customer_rating", "delivery_time_minutes", "address_area",
}

// Export writes orders to dir as orders_<stamp>.json and orders_<stamp>.csv,
// both stamped with now. It returns the two paths. The CSV is written first:
// DirSource only reads the JSON, so a JSON file always has its CSV sibling.
func Export(dir string, orders []models.OrderRecord, now time.Time) (jsonPath, csvPath string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create export dir: %w", err)
	}
	stamp := now.Format(StampLayout)
	jsonPath = filepath.Join(dir, "orders_"+stamp+".json")
	csvPath = filepath.Join(dir, "orders_"+stamp+".csv")

	if orders == nil {
		orders = []models.OrderRecord{}
	}
	doc, err := json.MarshalIndent(models.OrderExport{
		ExportTime:  now.Format("2006-01-02T15:04:05"),
		TotalOrders: len(orders),
		Orders:      orders,
	}, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("encode export: %w", err)
	}
	if err := writeCSV(csvPath, orders); err != nil {
		return "", "", err
	}
	if err := os.WriteFile(jsonPath, append(doc, '\n'), 0o644); err != nil {
		_ = os.Remove(jsonPath)
		_ = os.Remove(csvPath)
		return "", "", fmt.Errorf("write export: %w", err)
	}
	return jsonPath, csvPath, nil
}

func writeCSV(path string, orders []models.OrderRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	w := csv.NewWriter(f)
	_ = w.Write(csvHeader)
	for _, o := range orders {
		_ = w.Write([]string{
			o.ID,
			o.OrderTime.Format("2006-01-02T15:04:05"),
			string(o.Status),
			num(o.TotalAmount),
			num(o.DeliveryFee),
			num(o.Discount),
			num(o.Rating),
			num(o.DeliveryMinutes),
			o.Area,
		})
	}
	w.Flush()
	err = w.Error()
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
