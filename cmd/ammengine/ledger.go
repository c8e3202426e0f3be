package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ammEngine/internal/engine"
	"ammEngine/internal/model"
)

func runMint(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := startCommand(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	mint, _ := cmd.Flags().GetString("mint")
	to, _ := cmd.Flags().GetString("to")
	amount, _ := cmd.Flags().GetUint64("amount")
	mint = engine.NormalizeAccount(mint)
	to = engine.NormalizeAccount(to)
	if mint == "" || to == "" {
		return fmt.Errorf("mint and to are required")
	}
	if amount == 0 {
		return fmt.Errorf("amount must be greater than zero")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.ledger.Mint(ctx, mint, to, amount); err != nil {
		return err
	}
	if err := s.save(ctx); err != nil {
		return err
	}

	logger.Info("minted", zap.String("mint", mint), zap.String("to", to), zap.Uint64("amount", amount))
	return printOutput(cmd.OutOrStdout(), "json", model.Balance{Mint: mint, Owner: to, Amount: s.ledger.Balance(mint, to)})
}

func runBalance(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := startCommand(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	mint, _ := cmd.Flags().GetString("mint")
	owner, _ := cmd.Flags().GetString("owner")
	output, _ := cmd.Flags().GetString("output")
	mint = engine.NormalizeAccount(mint)
	owner = engine.NormalizeAccount(owner)

	ctx := context.Background()
	s, err := openSession(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	balances := make([]model.Balance, 0)
	for _, b := range s.ledger.Snapshot() {
		if mint != "" && b.Mint != mint {
			continue
		}
		if owner != "" && b.Owner != owner {
			continue
		}
		balances = append(balances, b)
	}
	return printOutput(cmd.OutOrStdout(), output, balances)
}
