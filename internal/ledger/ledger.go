// Package ledger is an in-memory token ledger. Balances are keyed by mint and
// owner, one account per pair, the way associated token accounts work.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"ammEngine/internal/model"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBalanceOverflow   = errors.New("balance overflow")
	ErrEmptyAccount      = errors.New("mint and owner are required")
)

type accountKey struct {
	mint  string
	owner string
}

// Ledger holds token balances.
type Ledger struct {
	mu       sync.RWMutex
	balances map[accountKey]uint64
	logger   *zap.Logger
}

func New(logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		balances: make(map[accountKey]uint64),
		logger:   logger,
	}
}

// Balance returns the balance of owner's account for mint.
func (l *Ledger) Balance(mint, owner string) uint64 {
	l.mu.RLock()
	bal := l.balances[accountKey{mint: mint, owner: owner}]
	l.mu.RUnlock()
	return bal
}

// Supply returns the total of all balances of mint.
func (l *Ledger) Supply(mint string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var total uint64
	for key, bal := range l.balances {
		if key.mint == mint {
			total += bal
		}
	}
	return total
}

// Mint credits amount of mint to owner.
func (l *Ledger) Mint(_ context.Context, mint, to string, amount uint64) error {
	if mint == "" || to == "" {
		return ErrEmptyAccount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	key := accountKey{mint: mint, owner: to}
	if amount > math.MaxUint64-l.balances[key] {
		return fmt.Errorf("mint %d %s to %s: %w", amount, mint, to, ErrBalanceOverflow)
	}
	l.balances[key] += amount
	l.logger.Debug("mint", zap.String("mint", mint), zap.String("to", to), zap.Uint64("amount", amount))
	return nil
}

// Burn debits amount of mint from owner.
func (l *Ledger) Burn(_ context.Context, mint, from string, amount uint64) error {
	if mint == "" || from == "" {
		return ErrEmptyAccount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	key := accountKey{mint: mint, owner: from}
	if l.balances[key] < amount {
		return fmt.Errorf("burn %d %s from %s (balance %d): %w", amount, mint, from, l.balances[key], ErrInsufficientFunds)
	}
	l.debit(key, amount)
	l.logger.Debug("burn", zap.String("mint", mint), zap.String("from", from), zap.Uint64("amount", amount))
	return nil
}

// Transfer moves amount of mint between two owners.
func (l *Ledger) Transfer(_ context.Context, mint, from, to string, amount uint64) error {
	if mint == "" || from == "" || to == "" {
		return ErrEmptyAccount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	src := accountKey{mint: mint, owner: from}
	dst := accountKey{mint: mint, owner: to}
	if l.balances[src] < amount {
		return fmt.Errorf("transfer %d %s from %s (balance %d): %w", amount, mint, from, l.balances[src], ErrInsufficientFunds)
	}
	if src != dst && amount > math.MaxUint64-l.balances[dst] {
		return fmt.Errorf("transfer %d %s to %s: %w", amount, mint, to, ErrBalanceOverflow)
	}
	l.debit(src, amount)
	l.balances[dst] += amount
	l.logger.Debug("transfer", zap.String("mint", mint), zap.String("from", from), zap.String("to", to), zap.Uint64("amount", amount))
	return nil
}

func (l *Ledger) debit(key accountKey, amount uint64) {
	l.balances[key] -= amount
	if l.balances[key] == 0 {
		delete(l.balances, key)
	}
}

// Snapshot returns all non-zero balances sorted by mint then owner.
func (l *Ledger) Snapshot() []model.Balance {
	l.mu.RLock()
	out := make([]model.Balance, 0, len(l.balances))
	for key, bal := range l.balances {
		out = append(out, model.Balance{Mint: key.mint, Owner: key.owner, Amount: bal})
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Mint != out[j].Mint {
			return out[i].Mint < out[j].Mint
		}
		return out[i].Owner < out[j].Owner
	})
	return out
}

// Restore replaces all balances.
func (l *Ledger) Restore(balances []model.Balance) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances = make(map[accountKey]uint64, len(balances))
	for _, b := range balances {
		if b.Amount == 0 {
			continue
		}
		l.balances[accountKey{mint: b.Mint, owner: b.Owner}] = b.Amount
	}
}
