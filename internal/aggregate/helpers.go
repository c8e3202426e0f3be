package aggregate

import (
	"math/big"
	"time"
)

const ratioScale = 18

func computeFeeRates(feeX, feeY *big.Int, reserveX, reserveY uint64) (*string, *string) {
	var feeRateX *string
	var feeRateY *string

	if rate := computeRateFromInt(feeX, new(big.Int).SetUint64(reserveX)); rate != "" {
		feeRateX = &rate
	}
	if rate := computeRateFromInt(feeY, new(big.Int).SetUint64(reserveY)); rate != "" {
		feeRateY = &rate
	}
	return feeRateX, feeRateY
}

func computeRateFromInt(fee *big.Int, reserve *big.Int) string {
	if fee == nil || fee.Sign() == 0 || reserve == nil || reserve.Sign() == 0 {
		return ""
	}
	rat := new(big.Rat).SetFrac(fee, reserve)
	return rat.FloatString(ratioScale)
}

// computeAPR annualizes the fee rate of a window. Both sides' rates are
// added since fees on either side accrue to the same liquidity.
func computeAPR(feeRateX *string, feeRateY *string, windowSeconds uint64) *string {
	if windowSeconds == 0 || (feeRateX == nil && feeRateY == nil) {
		return nil
	}

	total := new(big.Rat)
	for _, rate := range []*string{feeRateX, feeRateY} {
		if rate == nil {
			continue
		}
		rat, ok := new(big.Rat).SetString(*rate)
		if !ok {
			return nil
		}
		total.Add(total, rat)
	}

	yearSeconds := big.NewRat(int64(365*24*time.Hour/time.Second), 1)
	window := big.NewRat(int64(windowSeconds), 1)
	apr := new(big.Rat).Mul(total, yearSeconds)
	apr.Quo(apr, window)
	val := apr.FloatString(ratioScale)
	return &val
}
