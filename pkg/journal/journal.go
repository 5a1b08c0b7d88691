// Package journal persists one audit record per execution cycle: what was
// eligible, what was skipped and why, and what was actually sent to the
// broker. Skips are healthy policy outcomes; failures may need an operator.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CandidateRecord is the disposition of one candidate within a cycle.
type CandidateRecord struct {
	SignalID      string  `json:"signal_id"`
	Symbol        string  `json:"symbol"`
	Score         float64 `json:"score,omitempty"`
	Grade         string  `json:"grade,omitempty"`
	Disposition   string  `json:"disposition"` // dispatched | skipped | failed
	Reason        string  `json:"reason,omitempty"`
	BrokerOrderID string  `json:"broker_order_id,omitempty"`
}

// CycleRecord captures an end-to-end execution cycle for audit and analysis.
type CycleRecord struct {
	Timestamp     time.Time         `json:"timestamp"`
	CycleNumber   int               `json:"cycle_number"`
	SnapshotSize  int               `json:"snapshot_size"`
	EligibleCount int               `json:"eligible_count"`
	Dispatched    int               `json:"dispatched"`
	Candidates    []CandidateRecord `json:"candidates,omitempty"`
	DailyPnLPct   float64           `json:"daily_pnl_pct"`
	OpenPositions int               `json:"open_positions"`
	Success       bool              `json:"success"`
	ErrorMessage  string            `json:"error_message,omitempty"`
}

// Writer persists cycle records to a directory as JSON files.
type Writer struct {
	dir   string
	seq   int
	nowFn func() time.Time
}

// NewWriter constructs a journal writer.
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = "journal"
	}
	_ = os.MkdirAll(dir, 0o755)
	return &Writer{dir: dir, nowFn: time.Now}
}

// WriteCycle writes a cycle record to a timestamped JSON file.
func (w *Writer) WriteCycle(rec *CycleRecord) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("journal: nil record")
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = w.nowFn()
	}
	w.seq++
	rec.CycleNumber = w.seq
	name := fmt.Sprintf("cycle_%s_%05d.json", rec.Timestamp.UTC().Format("20060102_150405"), w.seq)
	path := filepath.Join(w.dir, name)
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
