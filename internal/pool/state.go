// Package pool holds a single pool's state and its transitions. A State is not
// safe for concurrent use; the engine serializes access per pool.
package pool

import (
	"ammEngine/internal/amm"
	"ammEngine/internal/curve"
	"ammEngine/internal/fees"
)

// State is one pool. Vaults are the (mint, Authority) ledger accounts.
type State struct {
	ID        string `json:"id" yaml:"id"`
	Authority string `json:"authority" yaml:"authority"`
	MintX     string `json:"mint_x" yaml:"mint_x"`
	MintY     string `json:"mint_y" yaml:"mint_y"`
	LPMint    string `json:"lp_mint" yaml:"lp_mint"`
	// FeeOwner receives owner trade fees in the input token and owner
	// withdraw fees in LP tokens.
	FeeOwner string `json:"fee_owner" yaml:"fee_owner"`

	ReserveX    uint64        `json:"reserve_x" yaml:"reserve_x"`
	ReserveY    uint64        `json:"reserve_y" yaml:"reserve_y"`
	LPSupply    uint64        `json:"lp_supply" yaml:"lp_supply"`
	Fees        fees.Schedule `json:"fees" yaml:"fees"`
	Curve       curve.Type    `json:"curve" yaml:"curve"`
	Initialized bool          `json:"initialized" yaml:"initialized"`
}

// Clone returns an independent copy.
func (s *State) Clone() *State {
	c := *s
	return &c
}

// MintIn returns the mint a trade in direction d pays with.
func (s *State) MintIn(d amm.Direction) string {
	if d == amm.XToY {
		return s.MintX
	}
	return s.MintY
}

// MintOut returns the mint a trade in direction d receives.
func (s *State) MintOut(d amm.Direction) string {
	return s.MintIn(d.Reverse())
}

func (s *State) reserves(d amm.Direction) (in, out uint64) {
	if d == amm.XToY {
		return s.ReserveX, s.ReserveY
	}
	return s.ReserveY, s.ReserveX
}

// Initialize sets the starting reserves, fees and curve and mints the
// initial LP supply. Identities must be filled in beforehand.
func (s *State) Initialize(reserveX, reserveY uint64, schedule fees.Schedule, curveType curve.Type) error {
	if s.Initialized {
		return amm.ErrAlreadyInitialized.Wrap("pool %s", s.ID)
	}
	if s.MintX != "" && s.MintX == s.MintY {
		return amm.ErrRepeatedMint.Wrap("mint %s on both sides", s.MintX)
	}
	if err := schedule.Validate(); err != nil {
		return err
	}
	calc, err := curve.New(curveType)
	if err != nil {
		return err
	}
	if err := calc.ValidateReserves(reserveX, reserveY); err != nil {
		return err
	}

	s.ReserveX = reserveX
	s.ReserveY = reserveY
	s.Fees = schedule
	s.Curve = curveType
	s.LPSupply = calc.NewPoolSupply()
	s.Initialized = true
	return nil
}

func (s *State) calculator() (curve.Calculator, error) {
	if !s.Initialized {
		return nil, amm.ErrPoolUninitialized.Wrap("pool %s", s.ID)
	}
	return curve.New(s.Curve)
}
