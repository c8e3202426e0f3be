package curve

import (
	"math"

	"github.com/holiman/uint256"

	"ammEngine/internal/amm"
)

// ConstantProductCurve prices trades so that reserveX * reserveY never
// decreases. All products are taken in 256-bit space and results are floored,
// so rounding always favors the pool.
type ConstantProductCurve struct{}

// Swap returns floor(reserveOut * amountIn / (reserveIn + amountIn)).
func (ConstantProductCurve) Swap(amountIn, reserveIn, reserveOut uint64) (uint64, error) {
	if reserveIn == 0 || reserveOut == 0 {
		return 0, amm.ErrInsufficientLiquidity.Wrap("pool reserves must be positive")
	}
	if amountIn == 0 {
		return 0, amm.ErrZeroAmount.Wrap("swap input is zero after fees")
	}

	in := uint256.NewInt(amountIn)
	denominator := new(uint256.Int).Add(uint256.NewInt(reserveIn), in)
	if !denominator.IsUint64() {
		return 0, amm.ErrArithmeticOverflow.Wrap("reserve %d + input %d exceeds u64", reserveIn, amountIn)
	}
	out := new(uint256.Int).Mul(uint256.NewInt(reserveOut), in)
	out.Div(out, denominator)

	amountOut := out.Uint64()
	if amountOut >= reserveOut {
		return 0, amm.ErrInsufficientLiquidity.Wrap("output %d would drain reserve %d", amountOut, reserveOut)
	}
	if amountOut == 0 {
		return 0, amm.ErrInsufficientLiquidity.Wrap("output for input %d rounds to zero", amountIn)
	}
	return amountOut, nil
}

// PoolTokensToTradingTokens returns the share of both reserves owned by
// poolTokens. Ceiling only rounds up amounts that are already non-zero, so a
// dust deposit is rejected later instead of being charged a whole token.
func (ConstantProductCurve) PoolTokensToTradingTokens(poolTokens, supply, reserveX, reserveY uint64, round RoundDirection) (uint64, uint64, error) {
	if supply == 0 {
		return 0, 0, amm.ErrPoolUninitialized.Wrap("pool token supply is zero")
	}
	x, err := share(poolTokens, supply, reserveX, round)
	if err != nil {
		return 0, 0, err
	}
	y, err := share(poolTokens, supply, reserveY, round)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func share(poolTokens, supply, reserve uint64, round RoundDirection) (uint64, error) {
	product := new(uint256.Int).Mul(uint256.NewInt(poolTokens), uint256.NewInt(reserve))
	quo, rem := new(uint256.Int).DivMod(product, uint256.NewInt(supply), new(uint256.Int))
	if !quo.IsUint64() || (round == Ceiling && !rem.IsZero() && quo.Uint64() == math.MaxUint64) {
		return 0, amm.ErrArithmeticOverflow.Wrap("%d pool tokens of reserve %d exceed u64", poolTokens, reserve)
	}
	amount := quo.Uint64()
	if round == Ceiling && !rem.IsZero() && amount > 0 {
		amount++
	}
	return amount, nil
}

// NewPoolSupply returns InitialPoolSupply.
func (ConstantProductCurve) NewPoolSupply() uint64 {
	return InitialPoolSupply
}

// ValidateReserves requires both reserves to be positive.
func (ConstantProductCurve) ValidateReserves(reserveX, reserveY uint64) error {
	if reserveX == 0 || reserveY == 0 {
		return amm.ErrInsufficientLiquidity.Wrap("reserves %d/%d must both be positive", reserveX, reserveY)
	}
	return nil
}
