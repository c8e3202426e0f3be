package pool

import (
	"fmt"
	"math"

	"ammEngine/internal/amm"
	"ammEngine/internal/curve"
)

// SwapRequest is a trade against the pool.
type SwapRequest struct {
	Direction amm.Direction `json:"direction"`
	AmountIn  uint64        `json:"amount_in"`
	// WithHost routes the host share of the trade fee out of the pool. Without
	// a host the share stays in the pool as part of the trade fee.
	WithHost bool `json:"with_host,omitempty"`
}

// SwapResult is the outcome of a swap.
type SwapResult struct {
	Direction amm.Direction `json:"direction"`
	AmountIn  uint64        `json:"amount_in"`
	NetAmount uint64        `json:"net_amount"`
	AmountOut uint64        `json:"amount_out"`
	TradeFee  uint64        `json:"trade_fee"`
	OwnerFee  uint64        `json:"owner_fee"`
	HostFee   uint64        `json:"host_fee"`
	ReserveX  uint64        `json:"reserve_x"`
	ReserveY  uint64        `json:"reserve_y"`
}

// QuoteSwap computes a swap without changing the pool.
func (s *State) QuoteSwap(req SwapRequest) (SwapResult, error) {
	calc, err := s.calculator()
	if err != nil {
		return SwapResult{}, err
	}
	if req.AmountIn == 0 {
		return SwapResult{}, amm.ErrZeroAmount.Wrap("swap amount is zero")
	}
	if req.Direction != amm.XToY && req.Direction != amm.YToX {
		return SwapResult{}, fmt.Errorf("invalid direction %d", uint8(req.Direction))
	}

	reserveIn, reserveOut := s.reserves(req.Direction)

	breakdown, err := s.Fees.Compute(req.AmountIn)
	if err != nil {
		return SwapResult{}, err
	}
	hostFee := uint64(0)
	if req.WithHost {
		hostFee = breakdown.HostFee
	}

	amountOut, err := calc.Swap(breakdown.Net, reserveIn, reserveOut)
	if err != nil {
		return SwapResult{}, err
	}

	// Only owner and host fees leave the pool; the rest of the input stays.
	retained := req.AmountIn - breakdown.OwnerFee - hostFee
	if retained > math.MaxUint64-reserveIn {
		return SwapResult{}, amm.ErrArithmeticOverflow.Wrap("reserve %d + %d exceeds u64", reserveIn, retained)
	}
	newIn := reserveIn + retained
	newOut := reserveOut - amountOut

	if curve.Invariant(newIn, newOut).Lt(curve.Invariant(reserveIn, reserveOut)) {
		return SwapResult{}, amm.ErrInvariantViolation.Wrap("%d*%d -> %d*%d", reserveIn, reserveOut, newIn, newOut)
	}

	res := SwapResult{
		Direction: req.Direction,
		AmountIn:  req.AmountIn,
		NetAmount: breakdown.Net,
		AmountOut: amountOut,
		TradeFee:  breakdown.TradeFee,
		OwnerFee:  breakdown.OwnerFee,
		HostFee:   hostFee,
	}
	if req.Direction == amm.XToY {
		res.ReserveX, res.ReserveY = newIn, newOut
	} else {
		res.ReserveX, res.ReserveY = newOut, newIn
	}
	return res, nil
}

// ApplySwap computes a swap and commits the new reserves. On error the pool is
// left untouched.
func (s *State) ApplySwap(req SwapRequest) (SwapResult, error) {
	res, err := s.QuoteSwap(req)
	if err != nil {
		return SwapResult{}, err
	}
	s.ReserveX, s.ReserveY = res.ReserveX, res.ReserveY
	return res, nil
}
