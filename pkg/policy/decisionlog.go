package policy

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/storepilot/storepilot/pkg/models"
)

// DecisionLog is an append-only JSONL file of policy decisions.
type DecisionLog struct {
	mu   sync.Mutex
	path string
}

// NewDecisionLog returns a log writing to path. The file is created on first append.
func NewDecisionLog(path string) *DecisionLog {
	return &DecisionLog{path: path}
}

// Path returns the log file path.
func (l *DecisionLog) Path() string { return l.path }

// Append writes d as one line.
func (l *DecisionLog) Append(d models.PolicyDecision) error {
	line, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode decision: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open decision log: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("append decision: %w", err)
	}
	return f.Close()
}

// All reads every logged decision in order. A missing file yields none.
func (l *DecisionLog) All() ([]models.PolicyDecision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open decision log: %w", err)
	}
	defer f.Close()

	var out []models.PolicyDecision
	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan(); n++ {
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var d models.PolicyDecision
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			return nil, fmt.Errorf("decision log line %d: %w", n, err)
		}
		out = append(out, d)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read decision log: %w", err)
	}
	return out, nil
}

// Today summarizes the decisions logged on now's calendar day, keeping the
// last n in History (n <= 0 keeps all).
func (l *DecisionLog) Today(now time.Time, n int) (models.DailySummary, error) {
	day := now.Format("2006-01-02")
	sum := models.DailySummary{Date: day, History: []models.PolicyDecision{}}

	all, err := l.All()
	if err != nil {
		return sum, err
	}
	for _, d := range all {
		if strings.HasPrefix(d.Timestamp, day) {
			sum.History = append(sum.History, d)
		}
	}
	sum.Total = len(sum.History)
	if sum.Total == 0 {
		return sum, nil
	}
	last := sum.History[sum.Total-1]
	sum.LastAction = last.Action
	sum.CurrentBid = last.Bid
	if n > 0 && sum.Total > n {
		sum.History = sum.History[sum.Total-n:]
	}
	return sum, nil
}
