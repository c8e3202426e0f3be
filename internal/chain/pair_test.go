package chain

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"ammEngine/internal/amm"
)

type fakePair struct {
	token0, token1     common.Address
	reserve0, reserve1 *big.Int
	failures           int
	calls              int
}

func (f *fakePair) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("rpc unavailable")
	}
	parsed, err := PairABI()
	if err != nil {
		return nil, err
	}
	for name, method := range parsed.Methods {
		if !bytes.Equal(msg.Data[:4], method.ID) {
			continue
		}
		switch name {
		case "token0":
			return method.Outputs.Pack(f.token0)
		case "token1":
			return method.Outputs.Pack(f.token1)
		case "getReserves":
			return method.Outputs.Pack(f.reserve0, f.reserve1, uint32(1700000000))
		}
	}
	return nil, errors.New("unknown method")
}

func TestReadPair(t *testing.T) {
	fake := &fakePair{
		token0:   common.HexToAddress("0x1111111111111111111111111111111111111111"),
		token1:   common.HexToAddress("0x2222222222222222222222222222222222222222"),
		reserve0: big.NewInt(1_000_000),
		reserve1: big.NewInt(2_500_000),
	}
	reader := NewPairReader(fake, 0, time.Millisecond, nil)

	pair, err := reader.ReadPair(context.Background(), common.HexToAddress("0x3333333333333333333333333333333333333333"), 0)
	if err != nil {
		t.Fatalf("read pair: %v", err)
	}
	if pair.Token0 != fake.token0 || pair.Token1 != fake.token1 {
		t.Fatalf("tokens mismatch: %+v", pair)
	}
	if pair.Reserve0 != 1_000_000 || pair.Reserve1 != 2_500_000 || pair.BlockTimestampLast != 1700000000 {
		t.Fatalf("reserves mismatch: %+v", pair)
	}
}

func TestReadPairRetries(t *testing.T) {
	fake := &fakePair{reserve0: big.NewInt(1), reserve1: big.NewInt(1), failures: 2}
	reader := NewPairReader(fake, 2, time.Millisecond, nil)

	if _, err := reader.ReadPair(context.Background(), common.Address{}, 0); err != nil {
		t.Fatalf("read pair: %v", err)
	}
	if fake.calls != 5 {
		t.Fatalf("expected 5 calls, got %d", fake.calls)
	}

	failing := &fakePair{failures: 10}
	reader = NewPairReader(failing, 1, time.Millisecond, nil)
	if _, err := reader.ReadPair(context.Background(), common.Address{}, 0); err == nil {
		t.Fatalf("expected error after retries")
	}
	if failing.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", failing.calls)
	}
}

func TestReadPairReserveOverflow(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 100)
	fake := &fakePair{reserve0: huge, reserve1: big.NewInt(1)}
	reader := NewPairReader(fake, 0, time.Millisecond, nil)

	_, err := reader.ReadPair(context.Background(), common.Address{}, 0)
	if !errors.Is(err, amm.ErrArithmeticOverflow) {
		t.Fatalf("expected ArithmeticOverflow, got %v", err)
	}
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := withRetry(ctx, 3, time.Second, func(context.Context) error {
		return errors.New("boom")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
