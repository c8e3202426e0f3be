package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ammEngine/internal/chain"
	"ammEngine/internal/config"
	"ammEngine/internal/engine"
)

func runInitPool(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPool(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	params := engine.InitParams{Fees: cfg.Fees, Curve: cfg.Curve}
	params.MintX, _ = cmd.Flags().GetString("mint-x")
	params.MintY, _ = cmd.Flags().GetString("mint-y")
	params.Depositor, _ = cmd.Flags().GetString("depositor")
	params.FeeOwner, _ = cmd.Flags().GetString("fee-owner")
	params.ReserveX, _ = cmd.Flags().GetUint64("reserve-x")
	params.ReserveY, _ = cmd.Flags().GetUint64("reserve-y")
	fund, _ := cmd.Flags().GetBool("fund")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Pair != "" {
		if err := seedFromPair(ctx, cfg, &params, logger); err != nil {
			return err
		}
	}
	if params.MintX == "" || params.MintY == "" {
		return fmt.Errorf("mint-x and mint-y are required")
	}
	if params.Depositor == "" {
		return fmt.Errorf("depositor is required")
	}

	s, err := openSession(ctx, cfg.Config, logger, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	if fund {
		depositor := engine.NormalizeAccount(params.Depositor)
		if err := s.ledger.Mint(ctx, engine.NormalizeAccount(params.MintX), depositor, params.ReserveX); err != nil {
			return fmt.Errorf("fund depositor: %w", err)
		}
		if err := s.ledger.Mint(ctx, engine.NormalizeAccount(params.MintY), depositor, params.ReserveY); err != nil {
			return fmt.Errorf("fund depositor: %w", err)
		}
	}

	id, err := s.engine.InitializePool(ctx, signerFor(cmd, params.Depositor), params)
	if err != nil {
		return err
	}
	if err := s.save(ctx); err != nil {
		return err
	}

	st, err := s.engine.Pool(id)
	if err != nil {
		return err
	}
	return printOutput(cmd.OutOrStdout(), "json", st)
}

// seedFromPair copies mints and reserves from an on-chain pair. Reserves
// given on the command line take precedence.
func seedFromPair(ctx context.Context, cfg config.PoolConfig, params *engine.InitParams, logger *zap.Logger) error {
	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required with pair")
	}
	if !common.IsHexAddress(cfg.Pair) {
		return fmt.Errorf("invalid pair address %q", cfg.Pair)
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	// Pin latest so every call reads the same block.
	block := cfg.Block
	if block == 0 {
		if block, err = chainClient.LatestBlockNumber(ctx); err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
	}

	reader := chain.NewPairReader(chainClient, cfg.MaxRetries, cfg.RetryBackoff, logger)
	pair, err := reader.ReadPair(ctx, common.HexToAddress(cfg.Pair), block)
	if err != nil {
		return fmt.Errorf("read pair: %w", err)
	}

	params.MintX = pair.Token0.Hex()
	params.MintY = pair.Token1.Hex()
	if params.ReserveX == 0 {
		params.ReserveX = pair.Reserve0
	}
	if params.ReserveY == 0 {
		params.ReserveY = pair.Reserve1
	}
	logger.Info("seeded from pair",
		zap.String("chain_id", chainID.String()),
		zap.Uint64("block", block),
		zap.String("pair", pair.Address.Hex()),
		zap.String("token0", params.MintX),
		zap.String("token1", params.MintY),
		zap.Uint64("reserve_x", params.ReserveX),
		zap.Uint64("reserve_y", params.ReserveY),
	)
	return nil
}

func runDeposit(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := startCommand(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	var params engine.DepositParams
	params.PoolID, _ = cmd.Flags().GetString("pool")
	params.Owner, _ = cmd.Flags().GetString("owner")
	params.PoolTokens, _ = cmd.Flags().GetUint64("pool-tokens")
	params.MaxX, _ = cmd.Flags().GetUint64("max-x")
	params.MaxY, _ = cmd.Flags().GetUint64("max-y")
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

	res, err := s.engine.Deposit(ctx, signerFor(cmd, params.Owner), params)
	if err != nil {
		return err
	}
	if err := s.save(ctx); err != nil {
		return err
	}
	return printOutput(cmd.OutOrStdout(), "json", res)
}

func runWithdraw(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := startCommand(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	var params engine.WithdrawParams
	params.PoolID, _ = cmd.Flags().GetString("pool")
	params.Owner, _ = cmd.Flags().GetString("owner")
	params.PoolTokens, _ = cmd.Flags().GetUint64("pool-tokens")
	params.MinX, _ = cmd.Flags().GetUint64("min-x")
	params.MinY, _ = cmd.Flags().GetUint64("min-y")
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

	res, err := s.engine.Withdraw(ctx, signerFor(cmd, params.Owner), params)
	if err != nil {
		return err
	}
	if err := s.save(ctx); err != nil {
		return err
	}
	return printOutput(cmd.OutOrStdout(), "json", res)
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, logger, err := startCommand(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	output, _ := cmd.Flags().GetString("output")

	s, err := openSession(context.Background(), cfg, logger, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	if len(args) == 1 {
		st, err := s.engine.Pool(args[0])
		if err != nil {
			return err
		}
		return printOutput(cmd.OutOrStdout(), output, st)
	}
	return printOutput(cmd.OutOrStdout(), output, s.engine.Pools())
}
