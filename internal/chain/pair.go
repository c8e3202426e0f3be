package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ammEngine/internal/amm"
)

const pairABIJSON = `[
  {
    "inputs": [],
    "name": "getReserves",
    "outputs": [
      {"internalType": "uint112", "name": "_reserve0", "type": "uint112"},
      {"internalType": "uint112", "name": "_reserve1", "type": "uint112"},
      {"internalType": "uint32", "name": "_blockTimestampLast", "type": "uint32"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "token0",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "token1",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

var (
	pairABI     abi.ABI
	pairABIOnce sync.Once
	pairABIErr  error
)

// PairABI returns the parsed constant-product pair ABI.
func PairABI() (abi.ABI, error) {
	pairABIOnce.Do(func() {
		pairABI, pairABIErr = abi.JSON(strings.NewReader(pairABIJSON))
	})
	return pairABI, pairABIErr
}

// ContractCaller is the subset of the client used to read pairs.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Pair is an on-chain constant-product pair at one block.
type Pair struct {
	Address            common.Address
	Token0             common.Address
	Token1             common.Address
	Reserve0           uint64
	Reserve1           uint64
	BlockTimestampLast uint32
}

// PairReader reads pair state with retries.
type PairReader struct {
	caller       ContractCaller
	maxRetries   int
	retryBackoff time.Duration
	logger       *zap.Logger
}

func NewPairReader(caller ContractCaller, maxRetries int, retryBackoff time.Duration, logger *zap.Logger) *PairReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PairReader{
		caller:       caller,
		maxRetries:   maxRetries,
		retryBackoff: retryBackoff,
		logger:       logger,
	}
}

// ReadPair loads tokens and reserves of pair. A zero block reads latest.
// Reserves above u64 fail with ArithmeticOverflow.
func (r *PairReader) ReadPair(ctx context.Context, pair common.Address, blockNumber uint64) (Pair, error) {
	if r.caller == nil {
		return Pair{}, fmt.Errorf("chain client is nil")
	}
	parsed, err := PairABI()
	if err != nil {
		return Pair{}, fmt.Errorf("parse pair abi: %w", err)
	}

	var block *big.Int
	if blockNumber > 0 {
		block = new(big.Int).SetUint64(blockNumber)
	}

	out := Pair{Address: pair}
	values, err := r.call(ctx, parsed, pair, "token0", block)
	if err != nil {
		return Pair{}, err
	}
	if out.Token0, err = asAddress(values[0]); err != nil {
		return Pair{}, fmt.Errorf("token0: %w", err)
	}

	values, err = r.call(ctx, parsed, pair, "token1", block)
	if err != nil {
		return Pair{}, err
	}
	if out.Token1, err = asAddress(values[0]); err != nil {
		return Pair{}, fmt.Errorf("token1: %w", err)
	}

	values, err = r.call(ctx, parsed, pair, "getReserves", block)
	if err != nil {
		return Pair{}, err
	}
	if len(values) < 3 {
		return Pair{}, fmt.Errorf("getReserves: %d values", len(values))
	}
	if out.Reserve0, err = asUint64(values[0]); err != nil {
		return Pair{}, fmt.Errorf("reserve0: %w", err)
	}
	if out.Reserve1, err = asUint64(values[1]); err != nil {
		return Pair{}, fmt.Errorf("reserve1: %w", err)
	}
	ts, ok := values[2].(uint32)
	if !ok {
		return Pair{}, fmt.Errorf("blockTimestampLast: unexpected type %T", values[2])
	}
	out.BlockTimestampLast = ts

	r.logger.Debug("pair loaded",
		zap.String("pair", pair.Hex()),
		zap.String("token0", out.Token0.Hex()),
		zap.String("token1", out.Token1.Hex()),
		zap.Uint64("reserve0", out.Reserve0),
		zap.Uint64("reserve1", out.Reserve1),
	)
	return out, nil
}

func (r *PairReader) call(ctx context.Context, parsed abi.ABI, pair common.Address, method string, block *big.Int) ([]interface{}, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &pair, Data: data}

	var resp []byte
	err = withRetry(ctx, r.maxRetries, r.retryBackoff, func(ctx context.Context) error {
		var callErr error
		resp, callErr = r.caller.CallContract(ctx, msg, block)
		if callErr != nil {
			r.logger.Warn("contract call failed", zap.String("method", method), zap.Error(callErr))
		}
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: no values", method)
	}
	return values, nil
}

func asAddress(v interface{}) (common.Address, error) {
	addr, ok := v.(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected type %T", v)
	}
	return addr, nil
}

func asUint64(v interface{}) (uint64, error) {
	n, ok := v.(*big.Int)
	if !ok {
		return 0, fmt.Errorf("unexpected type %T", v)
	}
	if n.Sign() < 0 || !n.IsUint64() {
		return 0, amm.ErrArithmeticOverflow.Wrap("reserve %s does not fit u64", n)
	}
	return n.Uint64(), nil
}
