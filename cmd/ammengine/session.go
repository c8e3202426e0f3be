package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ammEngine/internal/amm"
	"ammEngine/internal/config"
	"ammEngine/internal/engine"
	"ammEngine/internal/ledger"
	"ammEngine/internal/metrics"
	"ammEngine/internal/model"
	"ammEngine/internal/pool"
	"ammEngine/internal/storage"
	"ammEngine/internal/storage/postgres"
)

// session is an engine loaded from storage for one command.
type session struct {
	logger  *zap.Logger
	store   storage.Store
	swapLog storage.SwapLog
	ledger  *ledger.Ledger
	engine  *engine.Engine
	closers []func()
}

func openSession(ctx context.Context, cfg config.Config, logger *zap.Logger, m *metrics.Metrics) (*session, error) {
	s := &session{logger: logger}

	if cfg.PGDSN != "" {
		pg, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s.closers = append(s.closers, pg.Close)
		if err := pg.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, err
		}
		s.store = pg
		s.swapLog = pg
	} else {
		s.store = storage.NewFileStore(cfg.StateFile)
		s.swapLog = storage.NewJsonlStorage(cfg.SwapLog)
	}

	s.ledger = ledger.New(logger.Named("ledger"))
	s.engine = engine.New(s.ledger,
		engine.WithLogger(logger.Named("engine")),
		engine.WithMetrics(m),
	)

	snap, err := s.store.Load(ctx)
	switch {
	case errors.Is(err, storage.ErrNoSnapshot):
		logger.Debug("no saved state, starting empty")
	case err != nil:
		s.Close()
		return nil, fmt.Errorf("load state: %w", err)
	default:
		s.ledger.Restore(snap.Balances)
		if err := s.engine.Restore(snap.Pools); err != nil {
			s.Close()
			return nil, fmt.Errorf("restore pools: %w", err)
		}
	}
	return s, nil
}

func (s *session) save(ctx context.Context) error {
	snap := storage.Snapshot{
		Pools:    s.engine.Pools(),
		Balances: s.ledger.Snapshot(),
	}
	if err := s.store.Save(ctx, snap); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// startCommand loads the shared config and logger for a command.
func startCommand(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// signerFor returns the --signer flag, defaulting to owner.
func signerFor(cmd *cobra.Command, owner string) amm.Authorization {
	signer, _ := cmd.Flags().GetString("signer")
	if signer == "" {
		signer = owner
	}
	return amm.Authorization{Signer: engine.NormalizeAccount(signer)}
}

func swapRecord(params engine.SwapParams, res pool.SwapResult, err error) model.SwapRecord {
	trader := engine.NormalizeAccount(params.Trader)
	recipient := engine.NormalizeAccount(params.Recipient)
	if recipient == "" {
		recipient = trader
	}
	record := model.SwapRecord{
		ID:           uuid.NewString(),
		PoolID:       params.PoolID,
		Direction:    params.Direction.String(),
		Trader:       trader,
		Recipient:    recipient,
		Host:         engine.NormalizeAccount(params.Host),
		AmountIn:     params.AmountIn,
		MinAmountOut: params.MinAmountOut,
		ExecutedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err != nil {
		record.Error = err.Error()
		return record
	}
	record.AmountOut = res.AmountOut
	record.TradeFee = res.TradeFee
	record.OwnerFee = res.OwnerFee
	record.HostFee = res.HostFee
	record.ReserveX = res.ReserveX
	record.ReserveY = res.ReserveY
	return record
}
