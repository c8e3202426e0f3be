package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ammEngine/internal/amm"
	"ammEngine/internal/pool"
)

// SwapParams is a trade request. Trader pays the input token and, unless
// Recipient is set, receives the output token. Host, when set, receives the
// host share of the trade fee.
type SwapParams struct {
	PoolID       string
	Direction    amm.Direction
	AmountIn     uint64
	MinAmountOut uint64
	Trader       string
	Recipient    string
	Host         string
}

// Quote prices a swap without moving tokens or changing the pool.
func (e *Engine) Quote(poolID string, direction amm.Direction, amountIn uint64, withHost bool) (pool.SwapResult, error) {
	ent, err := e.lock(poolID)
	if err != nil {
		return pool.SwapResult{}, err
	}
	defer ent.mu.Unlock()
	return ent.state.QuoteSwap(pool.SwapRequest{Direction: direction, AmountIn: amountIn, WithHost: withHost})
}

// ExecuteSwap runs a swap. The pool is changed only if every transfer
// succeeds.
func (e *Engine) ExecuteSwap(ctx context.Context, auth amm.Authorization, params SwapParams) (pool.SwapResult, error) {
	start := time.Now()
	trader := NormalizeAccount(params.Trader)
	if err := e.auth.Authorize(ctx, auth, amm.OpSwap, trader); err != nil {
		return pool.SwapResult{}, err
	}
	res, mintIn, err := e.executeSwap(ctx, trader, params)
	if err != nil {
		e.metrics.SwapFailed(params.PoolID, params.Direction.String())
		e.logger.Debug("swap rejected",
			zap.String("pool", params.PoolID),
			zap.Stringer("direction", params.Direction),
			zap.Uint64("amount_in", params.AmountIn),
			zap.Error(err),
		)
		return pool.SwapResult{}, err
	}
	e.logger.Info("swap executed",
		zap.String("pool", params.PoolID),
		zap.Stringer("direction", res.Direction),
		zap.Uint64("amount_in", res.AmountIn),
		zap.Uint64("amount_out", res.AmountOut),
		zap.Uint64("trade_fee", res.TradeFee),
		zap.Uint64("owner_fee", res.OwnerFee),
		zap.Uint64("host_fee", res.HostFee),
	)
	e.metrics.ObserveSwap(params.PoolID, res.Direction.String(), mintIn, res.AmountIn, res.TradeFee, res.OwnerFee, res.HostFee, time.Since(start).Seconds())
	return res, nil
}

func (e *Engine) executeSwap(ctx context.Context, trader string, params SwapParams) (pool.SwapResult, string, error) {
	if trader == "" {
		return pool.SwapResult{}, "", fmt.Errorf("swap: trader is required")
	}
	recipient := NormalizeAccount(params.Recipient)
	if recipient == "" {
		recipient = trader
	}
	host := NormalizeAccount(params.Host)

	ent, err := e.lock(params.PoolID)
	if err != nil {
		return pool.SwapResult{}, "", err
	}
	defer ent.mu.Unlock()

	for _, party := range []struct{ role, account string }{
		{"trader", trader},
		{"recipient", recipient},
		{"host", host},
	} {
		if err := checkNotVault(ent.state, party.role, party.account); err != nil {
			return pool.SwapResult{}, "", err
		}
	}

	next := ent.state.Clone()
	res, err := next.ApplySwap(pool.SwapRequest{
		Direction: params.Direction,
		AmountIn:  params.AmountIn,
		WithHost:  host != "",
	})
	if err != nil {
		return pool.SwapResult{}, "", err
	}
	if res.AmountOut < params.MinAmountOut {
		return pool.SwapResult{}, "", amm.ErrSlippageExceeded.Wrap("amount out %d below minimum %d", res.AmountOut, params.MinAmountOut)
	}

	mintIn := next.MintIn(res.Direction)
	mintOut := next.MintOut(res.Direction)
	steps := []step{
		transfer(mintIn, trader, next.Authority, res.AmountIn-res.OwnerFee-res.HostFee),
		transfer(mintIn, trader, next.FeeOwner, res.OwnerFee),
		transfer(mintIn, trader, host, res.HostFee),
		transfer(mintOut, next.Authority, recipient, res.AmountOut),
	}
	if err := e.settle(ctx, steps); err != nil {
		return pool.SwapResult{}, "", fmt.Errorf("swap on pool %s: %w", next.ID, err)
	}

	ent.state = next
	e.metrics.SetPool(next.ID, next.ReserveX, next.ReserveY, next.LPSupply)
	return res, mintIn, nil
}
