package pool

import (
	"math"

	"ammEngine/internal/amm"
	"ammEngine/internal/curve"
)

// LiquidityResult is the outcome of a deposit or withdrawal.
type LiquidityResult struct {
	// PoolTokens is what the caller asked to mint or redeem.
	PoolTokens uint64 `json:"pool_tokens"`
	// WithdrawFee is the part of PoolTokens paid to the fee owner.
	WithdrawFee uint64 `json:"withdraw_fee,omitempty"`
	AmountX     uint64 `json:"amount_x"`
	AmountY     uint64 `json:"amount_y"`
	ReserveX    uint64 `json:"reserve_x"`
	ReserveY    uint64 `json:"reserve_y"`
	LPSupply    uint64 `json:"lp_supply"`
}

// QuoteDeposit prices minting poolTokens against both reserves. Amounts are
// rounded up so depositors never dilute existing holders.
func (s *State) QuoteDeposit(poolTokens, maxX, maxY uint64) (LiquidityResult, error) {
	calc, err := s.calculator()
	if err != nil {
		return LiquidityResult{}, err
	}
	if poolTokens == 0 {
		return LiquidityResult{}, amm.ErrZeroAmount.Wrap("pool token amount is zero")
	}
	if poolTokens > math.MaxUint64-s.LPSupply {
		return LiquidityResult{}, amm.ErrArithmeticOverflow.Wrap("lp supply %d + %d exceeds u64", s.LPSupply, poolTokens)
	}

	x, y, err := s.shareOf(calc, poolTokens, curve.Ceiling)
	if err != nil {
		return LiquidityResult{}, err
	}
	if x == 0 || y == 0 {
		return LiquidityResult{}, amm.ErrZeroAmount.Wrap("deposit of %d pool tokens is worth zero of a reserve token", poolTokens)
	}
	if x > maxX || y > maxY {
		return LiquidityResult{}, amm.ErrSlippageExceeded.Wrap("deposit needs %d/%d, max %d/%d", x, y, maxX, maxY)
	}
	if x > math.MaxUint64-s.ReserveX || y > math.MaxUint64-s.ReserveY {
		return LiquidityResult{}, amm.ErrArithmeticOverflow.Wrap("deposit %d/%d overflows reserves", x, y)
	}

	return LiquidityResult{
		PoolTokens: poolTokens,
		AmountX:    x,
		AmountY:    y,
		ReserveX:   s.ReserveX + x,
		ReserveY:   s.ReserveY + y,
		LPSupply:   s.LPSupply + poolTokens,
	}, nil
}

// Deposit commits QuoteDeposit.
func (s *State) Deposit(poolTokens, maxX, maxY uint64) (LiquidityResult, error) {
	res, err := s.QuoteDeposit(poolTokens, maxX, maxY)
	if err != nil {
		return LiquidityResult{}, err
	}
	s.commitLiquidity(res)
	return res, nil
}

// QuoteWithdraw prices redeeming poolTokens. The owner withdraw fee is taken
// from poolTokens first; the remainder is burned for reserve tokens rounded
// down. Reserves may shrink but never to zero.
func (s *State) QuoteWithdraw(poolTokens, minX, minY uint64) (LiquidityResult, error) {
	calc, err := s.calculator()
	if err != nil {
		return LiquidityResult{}, err
	}
	if poolTokens == 0 {
		return LiquidityResult{}, amm.ErrZeroAmount.Wrap("pool token amount is zero")
	}

	fee, err := s.Fees.OwnerWithdrawFee(poolTokens)
	if err != nil {
		return LiquidityResult{}, err
	}
	burn := poolTokens - fee

	x, y, err := s.shareOf(calc, burn, curve.Floor)
	if err != nil {
		return LiquidityResult{}, err
	}
	if x == 0 && y == 0 {
		return LiquidityResult{}, amm.ErrZeroAmount.Wrap("withdrawal of %d pool tokens is worth zero", poolTokens)
	}
	if x < minX || y < minY {
		return LiquidityResult{}, amm.ErrSlippageExceeded.Wrap("withdraw yields %d/%d, min %d/%d", x, y, minX, minY)
	}
	if x >= s.ReserveX || y >= s.ReserveY || burn >= s.LPSupply {
		return LiquidityResult{}, amm.ErrInsufficientLiquidity.Wrap("withdrawal would empty the pool")
	}

	return LiquidityResult{
		PoolTokens:  poolTokens,
		WithdrawFee: fee,
		AmountX:     x,
		AmountY:     y,
		ReserveX:    s.ReserveX - x,
		ReserveY:    s.ReserveY - y,
		LPSupply:    s.LPSupply - burn,
	}, nil
}

// Withdraw commits QuoteWithdraw.
func (s *State) Withdraw(poolTokens, minX, minY uint64) (LiquidityResult, error) {
	res, err := s.QuoteWithdraw(poolTokens, minX, minY)
	if err != nil {
		return LiquidityResult{}, err
	}
	s.commitLiquidity(res)
	return res, nil
}

func (s *State) shareOf(calc curve.Calculator, poolTokens uint64, round curve.RoundDirection) (uint64, uint64, error) {
	return calc.PoolTokensToTradingTokens(poolTokens, s.LPSupply, s.ReserveX, s.ReserveY, round)
}

func (s *State) commitLiquidity(res LiquidityResult) {
	s.ReserveX = res.ReserveX
	s.ReserveY = res.ReserveY
	s.LPSupply = res.LPSupply
}
