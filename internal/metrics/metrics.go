// Package metrics exposes Prometheus instrumentation for the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "amm"

// Metrics holds the engine collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	SwapsTotal     *prometheus.CounterVec
	SwapVolume     *prometheus.CounterVec
	SwapLatency    prometheus.Histogram
	FeesCollected  *prometheus.CounterVec
	LiquidityOps   *prometheus.CounterVec
	PoolReserves   *prometheus.GaugeVec
	LPTokenSupply  *prometheus.GaugeVec
	PoolsTotal     prometheus.Gauge
	TransferFailed prometheus.Counter
}

// New registers the collectors with reg. Pass prometheus.NewRegistry() in
// tests to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SwapsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "swaps_total",
				Help:      "Swaps by pool, direction and outcome",
			},
			[]string{"pool_id", "direction", "status"},
		),
		SwapVolume: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "swap_volume_total",
				Help:      "Swap input volume in base units",
			},
			[]string{"pool_id", "mint"},
		),
		SwapLatency: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "swap_latency_seconds",
				Help:      "Swap execution latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		FeesCollected: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "fees_collected_total",
				Help:      "Fees collected by kind",
			},
			[]string{"pool_id", "kind"},
		),
		LiquidityOps: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "liquidity_ops_total",
				Help:      "Deposits and withdrawals",
			},
			[]string{"pool_id", "op"},
		),
		PoolReserves: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "reserves",
				Help:      "Current pool reserves",
			},
			[]string{"pool_id", "side"},
		),
		LPTokenSupply: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "lp_supply",
				Help:      "Outstanding pool tokens",
			},
			[]string{"pool_id"},
		),
		PoolsTotal: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "pools_total",
				Help:      "Registered pools",
			},
		),
		TransferFailed: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "transfer_failures_total",
				Help:      "Operations rolled back after a token transfer failed",
			},
		),
	}
}

// ObserveSwap records a completed swap.
func (m *Metrics) ObserveSwap(poolID, direction, mintIn string, amountIn, tradeFee, ownerFee, hostFee uint64, seconds float64) {
	if m == nil {
		return
	}
	m.SwapsTotal.WithLabelValues(poolID, direction, "ok").Inc()
	m.SwapVolume.WithLabelValues(poolID, mintIn).Add(float64(amountIn))
	m.SwapLatency.Observe(seconds)
	m.FeesCollected.WithLabelValues(poolID, "trade").Add(float64(tradeFee))
	m.FeesCollected.WithLabelValues(poolID, "owner").Add(float64(ownerFee))
	m.FeesCollected.WithLabelValues(poolID, "host").Add(float64(hostFee))
}

// SwapFailed records a rejected swap.
func (m *Metrics) SwapFailed(poolID, direction string) {
	if m == nil {
		return
	}
	m.SwapsTotal.WithLabelValues(poolID, direction, "error").Inc()
}

// ObserveLiquidity records a deposit or withdrawal.
func (m *Metrics) ObserveLiquidity(poolID, op string, withdrawFee uint64) {
	if m == nil {
		return
	}
	m.LiquidityOps.WithLabelValues(poolID, op).Inc()
	if withdrawFee > 0 {
		m.FeesCollected.WithLabelValues(poolID, "owner_withdraw").Add(float64(withdrawFee))
	}
}

// SetPool publishes the current reserves and supply of a pool.
func (m *Metrics) SetPool(poolID string, reserveX, reserveY, lpSupply uint64) {
	if m == nil {
		return
	}
	m.PoolReserves.WithLabelValues(poolID, "x").Set(float64(reserveX))
	m.PoolReserves.WithLabelValues(poolID, "y").Set(float64(reserveY))
	m.LPTokenSupply.WithLabelValues(poolID).Set(float64(lpSupply))
}

// SetPools publishes the number of registered pools.
func (m *Metrics) SetPools(n int) {
	if m == nil {
		return
	}
	m.PoolsTotal.Set(float64(n))
}

// TransferRolledBack counts an operation undone after a transfer failure.
func (m *Metrics) TransferRolledBack() {
	if m == nil {
		return
	}
	m.TransferFailed.Inc()
}
