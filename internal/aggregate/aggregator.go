// Package aggregate rolls the swap log up into per-pool time windows.
package aggregate

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"go.uber.org/zap"

	"ammEngine/internal/model"
)

// WindowStats is the aggregate of one pool over one window.
type WindowStats struct {
	PoolID         string    `json:"pool_id" yaml:"pool_id"`
	WindowSizeSecs int64     `json:"window_size_seconds" yaml:"window_size_seconds"`
	WindowStart    time.Time `json:"window_start" yaml:"window_start"`
	WindowEnd      time.Time `json:"window_end" yaml:"window_end"`
	SwapCount      uint64    `json:"swap_count" yaml:"swap_count"`
	FailedCount    uint64    `json:"failed_count" yaml:"failed_count"`
	VolumeX        string    `json:"volume_x" yaml:"volume_x"`
	VolumeY        string    `json:"volume_y" yaml:"volume_y"`
	FeeX           string    `json:"fee_x" yaml:"fee_x"`
	FeeY           string    `json:"fee_y" yaml:"fee_y"`
	ReserveX       uint64    `json:"reserve_x" yaml:"reserve_x"`
	ReserveY       uint64    `json:"reserve_y" yaml:"reserve_y"`
	FeeRateX       *string   `json:"fee_rate_x,omitempty" yaml:"fee_rate_x,omitempty"`
	FeeRateY       *string   `json:"fee_rate_y,omitempty" yaml:"fee_rate_y,omitempty"`
	APR            *string   `json:"apr,omitempty" yaml:"apr,omitempty"`
}

// Aggregator aggregates swap records into pool window stats.
type Aggregator struct {
	windowSeconds uint64
	logger        *zap.Logger
	accumulators  map[accKey]*Accumulator
}

type accKey struct {
	poolID string
	start  uint64
}

func NewAggregator(window time.Duration, logger *zap.Logger) (*Aggregator, error) {
	if window < time.Second {
		return nil, fmt.Errorf("window must be at least 1s")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		windowSeconds: uint64(window / time.Second),
		logger:        logger,
		accumulators:  make(map[accKey]*Accumulator),
	}, nil
}

// Run reads a swap log and returns stats sorted by pool and window start.
// Malformed lines are logged and skipped.
func (a *Aggregator) Run(r io.Reader) ([]WindowStats, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var total, failed int
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var record model.SwapRecord
		if err := json.Unmarshal(line, &record); err != nil {
			failed++
			a.logger.Warn("decode swap record", zap.Error(err))
			continue
		}
		if err := a.Add(record); err != nil {
			failed++
			a.logger.Warn("aggregate swap", zap.Error(err), zap.String("pool", record.PoolID))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}

	stats := a.Flush()
	a.logger.Info("aggregate complete",
		zap.Int("total", total),
		zap.Int("failed", failed),
		zap.Int("windows", len(stats)),
	)
	return stats, nil
}

// Add folds one record into its window.
func (a *Aggregator) Add(record model.SwapRecord) error {
	executedAt, err := time.Parse(time.RFC3339Nano, record.ExecutedAt)
	if err != nil {
		return fmt.Errorf("swap %s executed_at: %w", record.ID, err)
	}
	ts := uint64(executedAt.Unix())
	start := windowStart(ts, a.windowSeconds)

	key := accKey{poolID: record.PoolID, start: start}
	acc := a.accumulators[key]
	if acc == nil {
		acc = NewAccumulator(record.PoolID, start, start+a.windowSeconds)
		a.accumulators[key] = acc
	}
	return acc.AddSwap(record, ts)
}

// Flush returns the stats of every open window and resets the aggregator.
func (a *Aggregator) Flush() []WindowStats {
	out := make([]WindowStats, 0, len(a.accumulators))
	for _, acc := range a.accumulators {
		out = append(out, a.stats(acc))
	}
	a.accumulators = make(map[accKey]*Accumulator)

	sort.Slice(out, func(i, j int) bool {
		if out[i].PoolID != out[j].PoolID {
			return out[i].PoolID < out[j].PoolID
		}
		return out[i].WindowStart.Before(out[j].WindowStart)
	})
	return out
}

func (a *Aggregator) stats(acc *Accumulator) WindowStats {
	feeRateX, feeRateY := computeFeeRates(acc.FeeX, acc.FeeY, acc.ReserveX, acc.ReserveY)
	return WindowStats{
		PoolID:         acc.PoolID,
		WindowSizeSecs: int64(a.windowSeconds),
		WindowStart:    time.Unix(int64(acc.WindowStart), 0).UTC(),
		WindowEnd:      time.Unix(int64(acc.WindowEnd), 0).UTC(),
		SwapCount:      acc.SwapCount,
		FailedCount:    acc.FailedCount,
		VolumeX:        acc.VolumeX.String(),
		VolumeY:        acc.VolumeY.String(),
		FeeX:           acc.FeeX.String(),
		FeeY:           acc.FeeY.String(),
		ReserveX:       acc.ReserveX,
		ReserveY:       acc.ReserveY,
		FeeRateX:       feeRateX,
		FeeRateY:       feeRateY,
		APR:            computeAPR(feeRateX, feeRateY, a.windowSeconds),
	}
}

func windowStart(ts uint64, windowSec uint64) uint64 {
	return ts - (ts % windowSec)
}
