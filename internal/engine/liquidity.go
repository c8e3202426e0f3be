package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ammEngine/internal/amm"
	"ammEngine/internal/pool"
)

// DepositParams mints PoolTokens to Owner for at most MaxX and MaxY.
type DepositParams struct {
	PoolID     string
	Owner      string
	PoolTokens uint64
	MaxX       uint64
	MaxY       uint64
}

// WithdrawParams redeems PoolTokens from Owner for at least MinX and MinY.
type WithdrawParams struct {
	PoolID     string
	Owner      string
	PoolTokens uint64
	MinX       uint64
	MinY       uint64
}

// Deposit adds liquidity in both tokens.
func (e *Engine) Deposit(ctx context.Context, auth amm.Authorization, params DepositParams) (pool.LiquidityResult, error) {
	owner := NormalizeAccount(params.Owner)
	if err := e.auth.Authorize(ctx, auth, amm.OpDeposit, owner); err != nil {
		return pool.LiquidityResult{}, err
	}
	if owner == "" {
		return pool.LiquidityResult{}, fmt.Errorf("deposit: owner is required")
	}

	ent, err := e.lock(params.PoolID)
	if err != nil {
		return pool.LiquidityResult{}, err
	}
	defer ent.mu.Unlock()
	if err := checkNotVault(ent.state, "owner", owner); err != nil {
		return pool.LiquidityResult{}, err
	}

	next := ent.state.Clone()
	res, err := next.Deposit(params.PoolTokens, params.MaxX, params.MaxY)
	if err != nil {
		return pool.LiquidityResult{}, err
	}
	steps := []step{
		transfer(next.MintX, owner, next.Authority, res.AmountX),
		transfer(next.MintY, owner, next.Authority, res.AmountY),
		mintTo(next.LPMint, owner, res.PoolTokens),
	}
	if err := e.settle(ctx, steps); err != nil {
		return pool.LiquidityResult{}, fmt.Errorf("deposit into pool %s: %w", next.ID, err)
	}
	ent.state = next

	e.metrics.ObserveLiquidity(next.ID, "deposit", 0)
	e.metrics.SetPool(next.ID, next.ReserveX, next.ReserveY, next.LPSupply)
	e.logger.Info("liquidity deposited",
		zap.String("pool", next.ID),
		zap.Uint64("pool_tokens", res.PoolTokens),
		zap.Uint64("amount_x", res.AmountX),
		zap.Uint64("amount_y", res.AmountY),
	)
	return res, nil
}

// Withdraw removes liquidity in both tokens. The owner withdraw fee is paid
// in pool tokens to the fee owner; the rest is burned.
func (e *Engine) Withdraw(ctx context.Context, auth amm.Authorization, params WithdrawParams) (pool.LiquidityResult, error) {
	owner := NormalizeAccount(params.Owner)
	if err := e.auth.Authorize(ctx, auth, amm.OpWithdraw, owner); err != nil {
		return pool.LiquidityResult{}, err
	}
	if owner == "" {
		return pool.LiquidityResult{}, fmt.Errorf("withdraw: owner is required")
	}

	ent, err := e.lock(params.PoolID)
	if err != nil {
		return pool.LiquidityResult{}, err
	}
	defer ent.mu.Unlock()
	if err := checkNotVault(ent.state, "owner", owner); err != nil {
		return pool.LiquidityResult{}, err
	}

	next := ent.state.Clone()
	res, err := next.Withdraw(params.PoolTokens, params.MinX, params.MinY)
	if err != nil {
		return pool.LiquidityResult{}, err
	}
	steps := []step{
		transfer(next.LPMint, owner, next.FeeOwner, res.WithdrawFee),
		burnFrom(next.LPMint, owner, res.PoolTokens-res.WithdrawFee),
		transfer(next.MintX, next.Authority, owner, res.AmountX),
		transfer(next.MintY, next.Authority, owner, res.AmountY),
	}
	if err := e.settle(ctx, steps); err != nil {
		return pool.LiquidityResult{}, fmt.Errorf("withdraw from pool %s: %w", next.ID, err)
	}
	ent.state = next

	e.metrics.ObserveLiquidity(next.ID, "withdraw", res.WithdrawFee)
	e.metrics.SetPool(next.ID, next.ReserveX, next.ReserveY, next.LPSupply)
	e.logger.Info("liquidity withdrawn",
		zap.String("pool", next.ID),
		zap.Uint64("pool_tokens", res.PoolTokens),
		zap.Uint64("withdraw_fee", res.WithdrawFee),
		zap.Uint64("amount_x", res.AmountX),
		zap.Uint64("amount_y", res.AmountY),
	)
	return res, nil
}
