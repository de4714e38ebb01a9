// Package etl turns the raw orders export into the metrics document served
// by GET /metrics.
package etl

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	colOrderID   = "order_id"
	colStatus    = "order_status"
	colPurchased = "order_purchase_timestamp"

	timestampLayout = "2006-01-02 15:04:05"
)

var ErrMissingColumn = errors.New("missing column")

// Metrics is the document GET /metrics serves. Readers decode it loosely
// (pkg/types.MetricsSnapshot); this side writes exact counts.
type Metrics struct {
	DatasetSource     string           `json:"dataset_source"`
	LastUpdate        string           `json:"last_update"`
	TotalTickets      int64            `json:"kpi_total_tickets"`
	BreakdownByStatus map[string]int64 `json:"breakdown_by_status"`
	BreakdownByYear   map[string]int64 `json:"breakdown_by_year"`
}

type Options struct {
	DatasetSource string
	Now           func() time.Time
	Logger        *zap.Logger
}

// Build reads orders CSV from r and aggregates it. Rows whose purchase
// timestamp does not parse count toward the total and status breakdown
// but not the year breakdown.
func Build(r io.Reader, opts Options) (Metrics, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	header, err := cr.Read()
	if err != nil {
		return Metrics{}, fmt.Errorf("read header: %w", err)
	}
	idx, err := columns(header, colOrderID, colStatus, colPurchased)
	if err != nil {
		return Metrics{}, err
	}
	// other columns may have ragged rows in hand-edited exports
	cr.FieldsPerRecord = -1

	snap := Metrics{
		DatasetSource:     opts.DatasetSource,
		LastUpdate:        opts.Now().Format(timestampLayout),
		BreakdownByStatus: map[string]int64{},
		BreakdownByYear:   map[string]int64{},
	}
	var badTimestamps int
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Metrics{}, fmt.Errorf("read line %d: %w", line, err)
		}
		if len(rec) <= max(idx[0], idx[1], idx[2]) {
			return Metrics{}, fmt.Errorf("line %d: expected at least %d fields", line, max(idx[0], idx[1], idx[2])+1)
		}

		snap.TotalTickets++
		if status := rec[idx[1]]; status != "" {
			snap.BreakdownByStatus[status]++
		}
		ts, err := time.Parse(timestampLayout, rec[idx[2]])
		if err != nil {
			badTimestamps++
			continue
		}
		snap.BreakdownByYear[strconv.Itoa(ts.Year())]++
	}

	if badTimestamps > 0 {
		opts.Logger.Warn("rows without a usable purchase timestamp", zap.Int("rows", badTimestamps))
	}
	return snap, nil
}

// Run builds the metrics from input and writes them to output, creating
// the output directory if needed.
func Run(input, output string, opts Options) (snap Metrics, err error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	f, err := os.Open(input)
	if err != nil {
		return Metrics{}, fmt.Errorf("open input: %w", err)
	}
	defer func() { err = multierr.Append(err, f.Close()) }()

	logger.Info("processing orders", zap.String("input", input))
	snap, err = Build(f, opts)
	if err != nil {
		return Metrics{}, err
	}
	if err := Write(output, snap); err != nil {
		return Metrics{}, err
	}
	logger.Info("metrics written",
		zap.String("output", output),
		zap.Int64("total", snap.TotalTickets),
		zap.Int("statuses", len(snap.BreakdownByStatus)),
		zap.Int("years", len(snap.BreakdownByYear)),
	)
	return snap, nil
}

// Write stores snap as indented JSON. The file is replaced atomically so a
// reader never sees a partial document.
func Write(path string, snap Metrics) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	data, err := json.MarshalIndent(snap, "", "    ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".metrics-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		return multierr.Append(fmt.Errorf("write metrics: %w", err), tmp.Close())
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func columns(header []string, names ...string) ([]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[h] = i
	}
	out := make([]int, len(names))
	var err error
	for i, n := range names {
		p, ok := pos[n]
		if !ok {
			err = multierr.Append(err, fmt.Errorf("%w: %s", ErrMissingColumn, n))
			continue
		}
		out[i] = p
	}
	return out, err
}
