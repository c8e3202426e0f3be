// Package curve implements the pricing curves a pool can use.
package curve

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"ammEngine/internal/amm"
)

// Type is the persisted curve variant tag.
type Type uint8

const (
	ConstantProduct Type = 0
)

// InitialPoolSupply is the LP supply minted when a pool is created.
const InitialPoolSupply uint64 = 1_000_000_000

func (t Type) String() string {
	switch t {
	case ConstantProduct:
		return "constant-product"
	default:
		return fmt.Sprintf("curve(%d)", uint8(t))
	}
}

// ParseType accepts the names printed by String.
func ParseType(input string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", "constant-product", "constant_product", "cp":
		return ConstantProduct, nil
	default:
		return 0, amm.ErrUnsupportedCurve.Wrap("unknown curve %q", input)
	}
}

// RoundDirection selects how pool token conversions round.
type RoundDirection int

const (
	Floor RoundDirection = iota
	Ceiling
)

// Calculator is the contract every curve variant satisfies.
type Calculator interface {
	// Swap returns the output for amountIn already net of fees.
	Swap(amountIn, reserveIn, reserveOut uint64) (uint64, error)
	// PoolTokensToTradingTokens converts pool tokens into both reserve tokens.
	PoolTokensToTradingTokens(poolTokens, supply, reserveX, reserveY uint64, round RoundDirection) (uint64, uint64, error)
	// NewPoolSupply is the LP supply of a freshly initialized pool.
	NewPoolSupply() uint64
	// ValidateReserves rejects reserves the curve cannot price.
	ValidateReserves(reserveX, reserveY uint64) error
}

// New returns the calculator for a curve tag.
func New(t Type) (Calculator, error) {
	switch t {
	case ConstantProduct:
		return ConstantProductCurve{}, nil
	default:
		return nil, amm.ErrUnsupportedCurve.Wrap("curve tag %d", uint8(t))
	}
}

// Invariant returns reserveX * reserveY without overflow.
func Invariant(reserveX, reserveY uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(reserveX), uint256.NewInt(reserveY))
}
