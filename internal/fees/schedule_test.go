package fees

import (
	"errors"
	"testing"

	"pgregory.net/rapid"

	"ammEngine/internal/amm"
)

func TestComputeTradeFee(t *testing.T) {
	s := Schedule{Trade: Rate{Numerator: 30, Denominator: 10000}}
	got, err := s.Compute(1000)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	want := Breakdown{TradeFee: 3, Net: 997}
	if got != want {
		t.Fatalf("breakdown mismatch: %+v != %+v", got, want)
	}
}

func TestComputeHostCarvedFromTradeFee(t *testing.T) {
	s := Schedule{
		Trade:      Rate{Numerator: 1, Denominator: 100},
		OwnerTrade: Rate{Numerator: 5, Denominator: 10000},
		Host:       Rate{Numerator: 20, Denominator: 100},
	}
	got, err := s.Compute(100_000)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	want := Breakdown{TradeFee: 1000, OwnerFee: 50, HostFee: 200, Net: 98_950}
	if got != want {
		t.Fatalf("breakdown mismatch: %+v != %+v", got, want)
	}
}

func TestComputeDisabledRates(t *testing.T) {
	got, err := Schedule{}.Compute(12345)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if got != (Breakdown{Net: 12345}) {
		t.Fatalf("unexpected fees: %+v", got)
	}
}

func TestComputeFloors(t *testing.T) {
	s := Schedule{Trade: Rate{Numerator: 30, Denominator: 10000}}
	got, err := s.Compute(333)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	// 333 * 30 / 10000 = 0.999
	if got.TradeFee != 0 || got.Net != 333 {
		t.Fatalf("expected floor to zero, got %+v", got)
	}
}

func TestValidateRejectsInvalidRates(t *testing.T) {
	cases := []Schedule{
		{Trade: Rate{Numerator: 2, Denominator: 1}},
		{OwnerTrade: Rate{Numerator: 1, Denominator: 0}},
		{Host: Rate{Numerator: 101, Denominator: 100}},
		{OwnerWithdraw: Rate{Numerator: 5, Denominator: 4}},
		{Trade: Rate{Numerator: 60, Denominator: 100}, OwnerTrade: Rate{Numerator: 1, Denominator: 2}},
	}
	for i, s := range cases {
		if err := s.Validate(); !errors.Is(err, amm.ErrInvalidFeeRate) {
			t.Fatalf("case %d: expected InvalidFeeRate, got %v", i, err)
		}
		if _, err := s.Compute(1000); !errors.Is(err, amm.ErrInvalidFeeRate) {
			t.Fatalf("case %d: compute expected InvalidFeeRate, got %v", i, err)
		}
	}
}

func TestValidateDefaultSchedule(t *testing.T) {
	if err := DefaultSchedule().Validate(); err != nil {
		t.Fatalf("default schedule invalid: %v", err)
	}
}

func TestParseRate(t *testing.T) {
	r, err := ParseRate("30/10000")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r != (Rate{Numerator: 30, Denominator: 10000}) {
		t.Fatalf("rate mismatch: %+v", r)
	}
	if r, err := ParseRate("0"); err != nil || r.Enabled() {
		t.Fatalf("expected disabled rate, got %+v %v", r, err)
	}
	if r, err := ParseRate("0/0"); err != nil || r.Enabled() {
		t.Fatalf("expected disabled rate, got %+v %v", r, err)
	}
	for _, input := range []string{"30", "a/b", "5/4", "1/0", "1/99999999999"} {
		if _, err := ParseRate(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}

func TestOwnerWithdrawFee(t *testing.T) {
	s := Schedule{OwnerWithdraw: Rate{Numerator: 1, Denominator: 6}}
	fee, err := s.OwnerWithdrawFee(100)
	if err != nil {
		t.Fatalf("withdraw fee: %v", err)
	}
	if fee != 16 {
		t.Fatalf("fee mismatch: %d", fee)
	}
}

func drawRate(t *rapid.T, label string) Rate {
	den := rapid.Uint32Range(0, 1_000_000).Draw(t, label+"_den")
	if den == 0 {
		return Rate{}
	}
	num := rapid.Uint32Range(0, den).Draw(t, label+"_num")
	return Rate{Numerator: num, Denominator: den}
}

func TestComputeFeesNeverExceedAmount(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := Schedule{
			Trade:      drawRate(t, "trade"),
			OwnerTrade: drawRate(t, "owner"),
			Host:       drawRate(t, "host"),
		}
		if s.Validate() != nil {
			t.Skip("combined trade and owner rate above one")
		}
		amount := rapid.Uint64().Draw(t, "amount")

		got, err := s.Compute(amount)
		if err != nil {
			t.Fatalf("compute: %v", err)
		}
		if got.TradeFee+got.OwnerFee > amount {
			t.Fatalf("fees %d+%d exceed amount %d", got.TradeFee, got.OwnerFee, amount)
		}
		if got.HostFee > got.TradeFee {
			t.Fatalf("host fee %d above trade fee %d", got.HostFee, got.TradeFee)
		}
		if got.Net+got.TradeFee+got.OwnerFee != amount {
			t.Fatalf("net %d does not balance", got.Net)
		}
	})
}
