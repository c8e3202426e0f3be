package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "ammengine",
		Short:        "Constant-product AMM pool engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	mintCmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint tokens into an account",
		RunE:  runMint,
	}
	mintCmd.Flags().String("mint", "", "token mint")
	mintCmd.Flags().String("to", "", "receiving owner")
	mintCmd.Flags().Uint64("amount", 0, "amount in base units")
	addStateFlags(mintCmd.Flags())
	root.AddCommand(mintCmd)

	balanceCmd := &cobra.Command{
		Use:   "balance",
		Short: "Show token balances",
		RunE:  runBalance,
	}
	balanceCmd.Flags().String("mint", "", "filter by mint")
	balanceCmd.Flags().String("owner", "", "filter by owner")
	balanceCmd.Flags().String("output", "json", "output format (json, yaml)")
	addStateFlags(balanceCmd.Flags())
	root.AddCommand(balanceCmd)

	initCmd := &cobra.Command{
		Use:   "init-pool",
		Short: "Create a pool and deposit its initial reserves",
		RunE:  runInitPool,
	}
	initCmd.Flags().String("mint-x", "", "mint of token X")
	initCmd.Flags().String("mint-y", "", "mint of token Y")
	initCmd.Flags().String("depositor", "", "owner funding the initial reserves")
	initCmd.Flags().String("fee-owner", "", "owner receiving owner fees (default depositor)")
	initCmd.Flags().Uint64("reserve-x", 0, "initial reserve of token X")
	initCmd.Flags().Uint64("reserve-y", 0, "initial reserve of token Y")
	initCmd.Flags().Bool("fund", false, "mint the initial reserves to the depositor first")
	initCmd.Flags().String("trade-fee", "", "trade fee rate (num/den)")
	initCmd.Flags().String("owner-trade-fee", "", "owner trade fee rate (num/den)")
	initCmd.Flags().String("owner-withdraw-fee", "", "owner withdraw fee rate (num/den)")
	initCmd.Flags().String("host-fee", "", "host share of the trade fee (num/den)")
	initCmd.Flags().String("curve", "constant-product", "curve type")
	initCmd.Flags().String("rpc", "", "RPC URL for seeding from an on-chain pair")
	initCmd.Flags().String("pair", "", "on-chain pair address to copy mints and reserves from")
	initCmd.Flags().Uint64("block", 0, "block to read the pair at, 0 means latest")
	initCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	initCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	addSignerFlag(initCmd.Flags())
	addStateFlags(initCmd.Flags())
	root.AddCommand(initCmd)

	swapCmd := &cobra.Command{
		Use:   "swap",
		Short: "Execute a swap",
		RunE:  runSwap,
	}
	swapCmd.Flags().String("pool", "", "pool id")
	swapCmd.Flags().String("direction", "x-to-y", "trade direction (x-to-y, y-to-x)")
	swapCmd.Flags().Uint64("amount-in", 0, "input amount")
	swapCmd.Flags().Uint64("min-amount-out", 0, "minimum acceptable output")
	swapCmd.Flags().String("trader", "", "owner paying the input token")
	swapCmd.Flags().String("recipient", "", "owner receiving the output token (default trader)")
	swapCmd.Flags().String("host", "", "owner receiving the host fee")
	addSignerFlag(swapCmd.Flags())
	addStateFlags(swapCmd.Flags())
	swapCmd.Flags().String("swap-log", "./data/swaps.jsonl", "swap log JSONL path")
	root.AddCommand(swapCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a swap without executing it",
		RunE:  runQuote,
	}
	quoteCmd.Flags().String("pool", "", "pool id")
	quoteCmd.Flags().String("direction", "x-to-y", "trade direction (x-to-y, y-to-x)")
	quoteCmd.Flags().Uint64("amount-in", 0, "input amount")
	quoteCmd.Flags().Bool("with-host", false, "route the host fee out of the pool")
	addStateFlags(quoteCmd.Flags())
	root.AddCommand(quoteCmd)

	depositCmd := &cobra.Command{
		Use:   "deposit",
		Short: "Deposit liquidity for pool tokens",
		RunE:  runDeposit,
	}
	depositCmd.Flags().String("pool", "", "pool id")
	depositCmd.Flags().String("owner", "", "liquidity provider")
	depositCmd.Flags().Uint64("pool-tokens", 0, "pool tokens to mint")
	depositCmd.Flags().Uint64("max-x", 0, "maximum token X to pay")
	depositCmd.Flags().Uint64("max-y", 0, "maximum token Y to pay")
	addSignerFlag(depositCmd.Flags())
	addStateFlags(depositCmd.Flags())
	root.AddCommand(depositCmd)

	withdrawCmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Redeem pool tokens for liquidity",
		RunE:  runWithdraw,
	}
	withdrawCmd.Flags().String("pool", "", "pool id")
	withdrawCmd.Flags().String("owner", "", "liquidity provider")
	withdrawCmd.Flags().Uint64("pool-tokens", 0, "pool tokens to redeem")
	withdrawCmd.Flags().Uint64("min-x", 0, "minimum token X to receive")
	withdrawCmd.Flags().Uint64("min-y", 0, "minimum token Y to receive")
	addSignerFlag(withdrawCmd.Flags())
	addStateFlags(withdrawCmd.Flags())
	root.AddCommand(withdrawCmd)

	showCmd := &cobra.Command{
		Use:   "show [pool-id]",
		Short: "Show pools",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runShow,
	}
	showCmd.Flags().String("output", "json", "output format (json, yaml)")
	addStateFlags(showCmd.Flags())
	root.AddCommand(showCmd)

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a JSONL file of swaps, pools in parallel",
		RunE:  runReplay,
	}
	replayCmd.Flags().String("in", "", "input swaps JSONL")
	replayCmd.Flags().String("out", "", "optional per-swap results JSONL")
	replayCmd.Flags().Int("workers", 4, "pools replayed concurrently")
	replayCmd.Flags().Bool("persist", true, "save the resulting state")
	replayCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address while replaying")
	addStateFlags(replayCmd.Flags())
	replayCmd.Flags().String("swap-log", "./data/swaps.jsonl", "swap log JSONL path")
	root.AddCommand(replayCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Aggregate the swap log into per-pool windows",
		RunE:  runStats,
	}
	statsCmd.Flags().String("in", "", "swap log JSONL (default the configured swap log)")
	statsCmd.Flags().Duration("window", time.Hour, "window size")
	statsCmd.Flags().String("output", "json", "output format (json, yaml)")
	statsCmd.Flags().String("swap-log", "./data/swaps.jsonl", "swap log JSONL path")
	statsCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(statsCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addStateFlags(flags *pflag.FlagSet) {
	flags.String("state-file", "./data/state.json", "engine state file")
	flags.String("pg-dsn", "", "Postgres DSN, replaces the state file and swap log")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

func addSignerFlag(flags *pflag.FlagSet) {
	flags.String("signer", "", "signing owner (default the owner whose tokens move)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
