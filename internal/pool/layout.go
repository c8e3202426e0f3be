package pool

import (
	"fmt"

	bin "github.com/gagliardetto/binary"

	"ammEngine/internal/curve"
	"ammEngine/internal/fees"
)

// LayoutSize is the encoded size of the numeric pool state.
const LayoutSize = 8 + 8 + 8 + feeSlots*8 + 1

const feeSlots = 6

type feeSlot struct {
	Numerator   uint32
	Denominator uint32
}

// stateLayout is the borsh (little-endian, no padding) account layout. Fee
// slots are trade, owner trade, owner withdraw, host; the last two are
// reserved and written as zero.
type stateLayout struct {
	ReserveX uint64
	ReserveY uint64
	LPSupply uint64
	Fees     [feeSlots]feeSlot
	Curve    uint8
}

// MarshalBinary encodes the numeric part of the pool. Identities are stored
// next to it by the storage layer.
func (s *State) MarshalBinary() ([]byte, error) {
	if !s.Initialized {
		return nil, fmt.Errorf("encode pool %s: not initialized", s.ID)
	}
	layout := stateLayout{
		ReserveX: s.ReserveX,
		ReserveY: s.ReserveY,
		LPSupply: s.LPSupply,
		Curve:    uint8(s.Curve),
	}
	layout.Fees[0] = feeSlot(s.Fees.Trade)
	layout.Fees[1] = feeSlot(s.Fees.OwnerTrade)
	layout.Fees[2] = feeSlot(s.Fees.OwnerWithdraw)
	layout.Fees[3] = feeSlot(s.Fees.Host)

	data, err := bin.MarshalBorsh(&layout)
	if err != nil {
		return nil, fmt.Errorf("encode pool %s: %w", s.ID, err)
	}
	if len(data) != LayoutSize {
		return nil, fmt.Errorf("encode pool %s: layout size %d, want %d", s.ID, len(data), LayoutSize)
	}
	return data, nil
}

// UnmarshalBinary decodes the numeric part of the pool and marks it
// initialized. Reserves, fees and the curve tag are validated.
func (s *State) UnmarshalBinary(data []byte) error {
	if len(data) != LayoutSize {
		return fmt.Errorf("decode pool: layout size %d, want %d", len(data), LayoutSize)
	}
	var layout stateLayout
	if err := bin.UnmarshalBorsh(&layout, data); err != nil {
		return fmt.Errorf("decode pool: %w", err)
	}

	schedule := fees.Schedule{
		Trade:         fees.Rate(layout.Fees[0]),
		OwnerTrade:    fees.Rate(layout.Fees[1]),
		OwnerWithdraw: fees.Rate(layout.Fees[2]),
		Host:          fees.Rate(layout.Fees[3]),
	}
	if err := schedule.Validate(); err != nil {
		return fmt.Errorf("decode pool: %w", err)
	}
	calc, err := curve.New(curve.Type(layout.Curve))
	if err != nil {
		return fmt.Errorf("decode pool: %w", err)
	}
	if err := calc.ValidateReserves(layout.ReserveX, layout.ReserveY); err != nil {
		return fmt.Errorf("decode pool: %w", err)
	}

	s.ReserveX = layout.ReserveX
	s.ReserveY = layout.ReserveY
	s.LPSupply = layout.LPSupply
	s.Fees = schedule
	s.Curve = curve.Type(layout.Curve)
	s.Initialized = true
	return nil
}
