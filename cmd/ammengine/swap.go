package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ammEngine/internal/amm"
	"ammEngine/internal/engine"
	"ammEngine/internal/model"
	"ammEngine/internal/pool"
)

func runSwap(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := startCommand(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	var params engine.SwapParams
	direction, _ := cmd.Flags().GetString("direction")
	if params.Direction, err = amm.ParseDirection(direction); err != nil {
		return err
	}
	params.PoolID, _ = cmd.Flags().GetString("pool")
	params.AmountIn, _ = cmd.Flags().GetUint64("amount-in")
	params.MinAmountOut, _ = cmd.Flags().GetUint64("min-amount-out")
	params.Trader, _ = cmd.Flags().GetString("trader")
	params.Recipient, _ = cmd.Flags().GetString("recipient")
	params.Host, _ = cmd.Flags().GetString("host")
	if params.PoolID == "" {
		return fmt.Errorf("pool is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.swap(ctx, signerFor(cmd, params.Trader), params)
	if err != nil {
		return err
	}
	return printOutput(cmd.OutOrStdout(), "json", res)
}

// swap executes and persists one swap, then logs it. A swap whose state
// cannot be saved is logged as failed with the save error.
func (s *session) swap(ctx context.Context, auth amm.Authorization, params engine.SwapParams) (pool.SwapResult, error) {
	res, err := s.engine.ExecuteSwap(ctx, auth, params)
	if err == nil {
		err = s.save(ctx)
	}
	if logErr := s.swapLog.PutSwapBatch(ctx, []model.SwapRecord{swapRecord(params, res, err)}); logErr != nil {
		s.logger.Warn("swap log write failed", zap.Error(logErr))
	}
	if err != nil {
		return pool.SwapResult{}, err
	}
	return res, nil
}

func runQuote(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := startCommand(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	poolID, _ := cmd.Flags().GetString("pool")
	amountIn, _ := cmd.Flags().GetUint64("amount-in")
	withHost, _ := cmd.Flags().GetBool("with-host")
	direction, _ := cmd.Flags().GetString("direction")
	dir, err := amm.ParseDirection(direction)
	if err != nil {
		return err
	}
	if poolID == "" {
		return fmt.Errorf("pool is required")
	}

	s, err := openSession(context.Background(), cfg, logger, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.engine.Quote(poolID, dir, amountIn, withHost)
	if err != nil {
		return err
	}
	return printOutput(cmd.OutOrStdout(), "json", res)
}
