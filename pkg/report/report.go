// Package report persists analysis reports as timestamped JSON files.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/storepilot/storepilot/pkg/models"
)

// StampLayout is the timestamp embedded in report file names.
const StampLayout = "20060102_150405"

// Report is a saved analysis.
type Report struct {
	Time     string                  `json:"analysis_time"`
	Task     string                  `json:"task"`
	Cached   bool                    `json:"cached"`
	Metrics  *models.MetricsSnapshot `json:"metrics,omitempty"`
	Analysis models.AnalysisResult   `json:"analysis"`
}

// Save writes v to dir/<prefix>_<stamp>.json and returns the path.
func Save(dir, prefix string, now time.Time, v any) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	path := filepath.Join(dir, prefix+"_"+now.Format(StampLayout)+".json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// Latest loads up to n of the newest reports with prefix, oldest first.
func Latest(dir, prefix string, n int) ([]Report, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"_*.json"))
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	sort.Strings(matches)
	if n > 0 && len(matches) > n {
		matches = matches[len(matches)-n:]
	}

	reports := make([]Report, 0, len(matches))
	for _, m := range matches {
		data, err := os.ReadFile(m)
		if err != nil {
			return nil, fmt.Errorf("read report: %w", err)
		}
		var r Report
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("parse report %s: %w", filepath.Base(m), err)
		}
		reports = append(reports, r)
	}
	return reports, nil
}
