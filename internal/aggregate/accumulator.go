package aggregate

import (
	"fmt"
	"math/big"

	"ammEngine/internal/amm"
	"ammEngine/internal/model"
)

// Accumulator holds aggregate values for a pool window.
type Accumulator struct {
	PoolID      string
	WindowStart uint64
	WindowEnd   uint64
	SwapCount   uint64
	FailedCount uint64
	// Volume and fees are in the input token of each swap.
	VolumeX  *big.Int
	VolumeY  *big.Int
	FeeX     *big.Int
	FeeY     *big.Int
	ReserveX uint64
	ReserveY uint64
	LastTS   uint64
}

func NewAccumulator(poolID string, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		PoolID:      poolID,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		VolumeX:     big.NewInt(0),
		VolumeY:     big.NewInt(0),
		FeeX:        big.NewInt(0),
		FeeY:        big.NewInt(0),
	}
}

// AddSwap folds one swap record executed at ts into the window. Rejected
// swaps only count as failures.
func (a *Accumulator) AddSwap(record model.SwapRecord, ts uint64) error {
	if record.Error != "" {
		a.FailedCount++
		return nil
	}
	dir, err := amm.ParseDirection(record.Direction)
	if err != nil {
		return fmt.Errorf("swap %s: %w", record.ID, err)
	}

	fee := new(big.Int).SetUint64(record.TradeFee)
	fee.Add(fee, new(big.Int).SetUint64(record.OwnerFee))
	amount := new(big.Int).SetUint64(record.AmountIn)
	if dir == amm.XToY {
		a.VolumeX.Add(a.VolumeX, amount)
		a.FeeX.Add(a.FeeX, fee)
	} else {
		a.VolumeY.Add(a.VolumeY, amount)
		a.FeeY.Add(a.FeeY, fee)
	}

	if ts >= a.LastTS {
		a.LastTS = ts
		a.ReserveX = record.ReserveX
		a.ReserveY = record.ReserveY
	}
	a.SwapCount++
	return nil
}
