// Package fees computes trade, owner and host fees from rational rates.
package fees

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/holiman/uint256"

	"ammEngine/internal/amm"
)

// Rate is a fraction numerator/denominator. The zero Rate is disabled.
type Rate struct {
	Numerator   uint32 `json:"numerator" yaml:"numerator"`
	Denominator uint32 `json:"denominator" yaml:"denominator"`
}

// Enabled reports whether the rate takes part in fee computation.
func (r Rate) Enabled() bool {
	return r.Denominator != 0
}

func (r Rate) String() string {
	return fmt.Sprintf("%d/%d", r.Numerator, r.Denominator)
}

// Validate checks numerator <= denominator, allowing only 0/0 as disabled.
func (r Rate) Validate() error {
	if reason := r.problem(); reason != "" {
		return amm.ErrInvalidFeeRate.Wrap("rate %s %s", r, reason)
	}
	return nil
}

func (r Rate) problem() string {
	if r.Denominator == 0 {
		if r.Numerator != 0 {
			return "has zero denominator"
		}
		return ""
	}
	if r.Numerator > r.Denominator {
		return "exceeds one"
	}
	return ""
}

// Apply returns floor(amount * numerator / denominator), 0 when disabled.
func (r Rate) Apply(amount uint64) uint64 {
	if !r.Enabled() || r.Numerator == 0 || amount == 0 {
		return 0
	}
	x := new(uint256.Int).SetUint64(amount)
	x.Mul(x, uint256.NewInt(uint64(r.Numerator)))
	x.Div(x, uint256.NewInt(uint64(r.Denominator)))
	// numerator <= denominator keeps the result within amount.
	return x.Uint64()
}

// ParseRate parses "num/den". A bare "0" is the disabled rate.
func ParseRate(input string) (Rate, error) {
	input = strings.TrimSpace(input)
	if input == "" || input == "0" {
		return Rate{}, nil
	}
	parts := strings.SplitN(input, "/", 2)
	if len(parts) != 2 {
		return Rate{}, fmt.Errorf("invalid rate %q: want numerator/denominator", input)
	}
	num, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 32)
	if err != nil {
		return Rate{}, fmt.Errorf("invalid rate numerator %q: %w", parts[0], err)
	}
	den, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 32)
	if err != nil {
		return Rate{}, fmt.Errorf("invalid rate denominator %q: %w", parts[1], err)
	}
	rate := Rate{Numerator: uint32(num), Denominator: uint32(den)}
	if err := rate.Validate(); err != nil {
		return Rate{}, err
	}
	return rate, nil
}

// Schedule is the set of rates charged by a pool.
type Schedule struct {
	// Trade is retained by the pool for liquidity providers.
	Trade Rate `json:"trade" yaml:"trade"`
	// OwnerTrade is paid to the pool owner on every swap, in the input token.
	OwnerTrade Rate `json:"owner_trade" yaml:"owner_trade"`
	// OwnerWithdraw is charged on withdrawn pool tokens.
	OwnerWithdraw Rate `json:"owner_withdraw" yaml:"owner_withdraw"`
	// Host is the share of the trade fee paid to the host that routed the swap.
	Host Rate `json:"host" yaml:"host"`
}

// DefaultSchedule returns trade 0/10000, owner trade 5/10000, owner withdraw
// disabled and host 20/100.
func DefaultSchedule() Schedule {
	return Schedule{
		Trade:         Rate{Numerator: 0, Denominator: 10000},
		OwnerTrade:    Rate{Numerator: 5, Denominator: 10000},
		OwnerWithdraw: Rate{},
		Host:          Rate{Numerator: 20, Denominator: 100},
	}
}

// Validate checks every rate and that trade plus owner trade does not exceed
// one, which keeps fees within the swapped amount.
func (s Schedule) Validate() error {
	named := []struct {
		name string
		rate Rate
	}{
		{"trade", s.Trade},
		{"owner trade", s.OwnerTrade},
		{"owner withdraw", s.OwnerWithdraw},
		{"host", s.Host},
	}
	for _, item := range named {
		if reason := item.rate.problem(); reason != "" {
			return amm.ErrInvalidFeeRate.Wrap("%s fee %s %s", item.name, item.rate, reason)
		}
	}

	if s.Trade.Enabled() && s.OwnerTrade.Enabled() {
		// tn/td + on/od <= 1  <=>  tn*od + on*td <= td*od
		lhs := new(uint256.Int).Mul(uint256.NewInt(uint64(s.Trade.Numerator)), uint256.NewInt(uint64(s.OwnerTrade.Denominator)))
		rhs := new(uint256.Int).Mul(uint256.NewInt(uint64(s.OwnerTrade.Numerator)), uint256.NewInt(uint64(s.Trade.Denominator)))
		lhs.Add(lhs, rhs)
		limit := new(uint256.Int).Mul(uint256.NewInt(uint64(s.Trade.Denominator)), uint256.NewInt(uint64(s.OwnerTrade.Denominator)))
		if lhs.Gt(limit) {
			return amm.ErrInvalidFeeRate.Wrap("trade %s and owner trade %s together exceed one", s.Trade, s.OwnerTrade)
		}
	}
	return nil
}

// Breakdown is the result of Compute.
type Breakdown struct {
	TradeFee uint64 `json:"trade_fee"`
	OwnerFee uint64 `json:"owner_fee"`
	// HostFee is carved out of TradeFee, not charged on top.
	HostFee uint64 `json:"host_fee"`
	Net     uint64 `json:"net_amount"`
}

// Compute splits amount into fees and the net amount that reaches the curve.
func (s Schedule) Compute(amount uint64) (Breakdown, error) {
	if err := s.Validate(); err != nil {
		return Breakdown{}, err
	}
	trade := s.Trade.Apply(amount)
	owner := s.OwnerTrade.Apply(amount)
	host := s.Host.Apply(trade)

	if trade > amount || owner > amount-trade {
		return Breakdown{}, amm.ErrArithmeticOverflow.Wrap("fees %d+%d exceed amount %d", trade, owner, amount)
	}

	return Breakdown{
		TradeFee: trade,
		OwnerFee: owner,
		HostFee:  host,
		Net:      amount - trade - owner,
	}, nil
}

// OwnerWithdrawFee returns the pool tokens withheld from a withdrawal.
func (s Schedule) OwnerWithdrawFee(poolTokens uint64) (uint64, error) {
	if err := s.OwnerWithdraw.Validate(); err != nil {
		return 0, err
	}
	return s.OwnerWithdraw.Apply(poolTokens), nil
}
