package aggregate

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"ammEngine/internal/model"
)

func swapLine(t *testing.T, r model.SwapRecord) string {
	t.Helper()
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func TestAggregatorWindows(t *testing.T) {
	lines := []string{
		swapLine(t, model.SwapRecord{ID: "1", PoolID: "p", Direction: "x-to-y", AmountIn: 1000, TradeFee: 3, OwnerFee: 1, ReserveX: 10_000, ReserveY: 9_000, ExecutedAt: "2024-01-01T00:00:10Z"}),
		swapLine(t, model.SwapRecord{ID: "2", PoolID: "p", Direction: "y-to-x", AmountIn: 500, TradeFee: 1, ReserveX: 9_600, ReserveY: 9_500, ExecutedAt: "2024-01-01T00:00:50Z"}),
		swapLine(t, model.SwapRecord{ID: "3", PoolID: "p", Direction: "x-to-y", AmountIn: 7, Error: "insufficient liquidity", ExecutedAt: "2024-01-01T00:00:55Z"}),
		swapLine(t, model.SwapRecord{ID: "4", PoolID: "p", Direction: "x-to-y", AmountIn: 200, ReserveX: 9_800, ReserveY: 9_300, ExecutedAt: "2024-01-01T00:01:05Z"}),
		"not json",
	}

	agg, err := NewAggregator(time.Minute, nil)
	if err != nil {
		t.Fatalf("new aggregator: %v", err)
	}
	stats, err := agg.Run(strings.NewReader(strings.Join(lines, "\n")))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(stats))
	}

	first := stats[0]
	if first.SwapCount != 2 || first.FailedCount != 1 {
		t.Fatalf("counts mismatch: %+v", first)
	}
	if first.VolumeX != "1000" || first.VolumeY != "500" || first.FeeX != "4" || first.FeeY != "1" {
		t.Fatalf("volume/fees mismatch: %+v", first)
	}
	if first.ReserveX != 9_600 || first.ReserveY != 9_500 {
		t.Fatalf("reserves should come from the last swap: %+v", first)
	}
	if first.WindowEnd.Sub(first.WindowStart) != time.Minute {
		t.Fatalf("window size mismatch")
	}
	if first.FeeRateX == nil || first.APR == nil {
		t.Fatalf("expected fee rate and apr")
	}

	second := stats[1]
	if second.SwapCount != 1 || second.FeeRateX != nil || second.APR != nil {
		t.Fatalf("second window mismatch: %+v", second)
	}
}

func TestComputeRates(t *testing.T) {
	if got := computeRateFromInt(nil, nil); got != "" {
		t.Fatalf("expected empty rate, got %s", got)
	}
	rate := "0.001000000000000000"
	apr := computeAPR(&rate, nil, 3600)
	if apr == nil || !strings.HasPrefix(*apr, "8.76") {
		t.Fatalf("apr mismatch: %v", apr)
	}
}

func TestNewAggregatorRejectsSmallWindow(t *testing.T) {
	if _, err := NewAggregator(time.Millisecond, nil); err == nil {
		t.Fatalf("expected error for sub-second window")
	}
}
