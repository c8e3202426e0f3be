package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ammEngine/internal/amm"
	"ammEngine/internal/config"
	"ammEngine/internal/engine"
	"ammEngine/internal/metrics"
	"ammEngine/internal/model"
	"ammEngine/internal/pool"
	"ammEngine/internal/storage"
)

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	out, _ := cmd.Flags().GetString("out")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, reg, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	s, err := openSession(ctx, cfg.Config, logger, m)
	if err != nil {
		return err
	}
	defer s.Close()

	inputFile, err := os.Open(cfg.In)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	inputs, err := storage.ReadSwapInputs(inputFile)
	inputFile.Close()
	if err != nil {
		return err
	}

	logger.Info("replay start",
		zap.String("in", cfg.In),
		zap.Int("swaps", len(inputs)),
		zap.Int("workers", cfg.Workers),
		zap.Bool("persist", cfg.Persist),
	)

	records, err := replaySwaps(ctx, s.engine, inputs, cfg.Workers)
	if err != nil {
		return err
	}

	if err := s.swapLog.PutSwapBatch(ctx, records); err != nil {
		return fmt.Errorf("write swap log: %w", err)
	}
	if out != "" {
		writer, err := newJSONLWriter(out, false)
		if err != nil {
			return err
		}
		for _, record := range records {
			if err := writer.Write(record); err != nil {
				writer.Close()
				return err
			}
		}
		if err := writer.Close(); err != nil {
			return err
		}
	}
	if cfg.Persist {
		if err := s.save(ctx); err != nil {
			return err
		}
	}

	failed := 0
	for _, record := range records {
		if record.Error != "" {
			failed++
		}
	}
	logger.Info("replay complete",
		zap.Int("total", len(records)),
		zap.Int("executed", len(records)-failed),
		zap.Int("failed", failed),
	)
	return nil
}

// replaySwaps executes inputs in file order within each replay group.
// Distinct groups run concurrently, at most workers at a time. Rejected swaps
// are recorded, not returned as errors.
func replaySwaps(ctx context.Context, eng *engine.Engine, inputs []model.SwapInput, workers int) ([]model.SwapRecord, error) {
	records := make([]model.SwapRecord, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, indexes := range replayGroups(inputs) {
		indexes := indexes
		g.Go(func() error {
			for _, i := range indexes {
				if err := gctx.Err(); err != nil {
					return err
				}
				params, err := swapParams(inputs[i])
				if err != nil {
					records[i] = swapRecord(params, pool.SwapResult{}, err)
					records[i].Direction = inputs[i].Direction
					continue
				}
				auth := amm.Authorization{Signer: engine.NormalizeAccount(params.Trader)}
				res, err := eng.ExecuteSwap(gctx, auth, params)
				records[i] = swapRecord(params, res, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	return records, nil
}

// replayGroups partitions input indexes so that no account and no pool is
// touched by two groups. Pools sharing a trader, recipient or host are merged,
// which keeps every balance evolving in file order. Indexes within a group
// stay in file order; groups are ordered by their first input.
func replayGroups(inputs []model.SwapInput) [][]int {
	parent := make(map[string]string)
	var find func(string) string
	find = func(p string) string {
		if parent[p] != p {
			parent[p] = find(parent[p])
		}
		return parent[p]
	}

	firstPool := make(map[string]string)
	for _, in := range inputs {
		if _, ok := parent[in.PoolID]; !ok {
			parent[in.PoolID] = in.PoolID
		}
		for _, account := range []string{in.Trader, in.Recipient, in.Host} {
			account = engine.NormalizeAccount(account)
			if account == "" {
				continue
			}
			other, ok := firstPool[account]
			if !ok {
				firstPool[account] = in.PoolID
				continue
			}
			if a, b := find(other), find(in.PoolID); a != b {
				parent[b] = a
			}
		}
	}

	byRoot := make(map[string]int)
	var groups [][]int
	for i, in := range inputs {
		root := find(in.PoolID)
		g, ok := byRoot[root]
		if !ok {
			g = len(groups)
			byRoot[root] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}

func swapParams(in model.SwapInput) (engine.SwapParams, error) {
	params := engine.SwapParams{
		PoolID:       in.PoolID,
		AmountIn:     in.AmountIn,
		MinAmountOut: in.MinAmountOut,
		Trader:       in.Trader,
		Recipient:    in.Recipient,
		Host:         in.Host,
	}
	dir, err := amm.ParseDirection(in.Direction)
	if err != nil {
		return params, err
	}
	params.Direction = dir
	return params, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("metrics server listening", zap.String("addr", addr))
	return srv
}
