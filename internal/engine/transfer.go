package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// TokenTransfer moves tokens between ledger accounts. Accounts are
// identified by (mint, owner).
type TokenTransfer interface {
	Transfer(ctx context.Context, mint, from, to string, amount uint64) error
	Mint(ctx context.Context, mint, to string, amount uint64) error
	Burn(ctx context.Context, mint, from string, amount uint64) error
}

type stepKind uint8

const (
	stepTransfer stepKind = iota
	stepMint
	stepBurn
)

type step struct {
	kind   stepKind
	mint   string
	from   string
	to     string
	amount uint64
}

func transfer(mint, from, to string, amount uint64) step {
	return step{kind: stepTransfer, mint: mint, from: from, to: to, amount: amount}
}

func mintTo(mint, to string, amount uint64) step {
	return step{kind: stepMint, mint: mint, to: to, amount: amount}
}

func burnFrom(mint, from string, amount uint64) step {
	return step{kind: stepBurn, mint: mint, from: from, amount: amount}
}

func (s step) apply(ctx context.Context, tokens TokenTransfer) error {
	switch s.kind {
	case stepMint:
		return tokens.Mint(ctx, s.mint, s.to, s.amount)
	case stepBurn:
		return tokens.Burn(ctx, s.mint, s.from, s.amount)
	default:
		return tokens.Transfer(ctx, s.mint, s.from, s.to, s.amount)
	}
}

func (s step) inverse() step {
	switch s.kind {
	case stepMint:
		return burnFrom(s.mint, s.to, s.amount)
	case stepBurn:
		return mintTo(s.mint, s.from, s.amount)
	default:
		return transfer(s.mint, s.to, s.from, s.amount)
	}
}

func (s step) String() string {
	switch s.kind {
	case stepMint:
		return fmt.Sprintf("mint %d %s to %s", s.amount, s.mint, s.to)
	case stepBurn:
		return fmt.Sprintf("burn %d %s from %s", s.amount, s.mint, s.from)
	default:
		return fmt.Sprintf("transfer %d %s from %s to %s", s.amount, s.mint, s.from, s.to)
	}
}

// settle applies steps in order. On failure the applied prefix is undone in
// reverse order and the original error is returned.
func (e *Engine) settle(ctx context.Context, steps []step) error {
	applied := make([]step, 0, len(steps))
	for _, s := range steps {
		if s.amount == 0 {
			continue
		}
		if err := s.apply(ctx, e.tokens); err != nil {
			e.rollback(applied)
			e.metrics.TransferRolledBack()
			return fmt.Errorf("%s: %w", s, err)
		}
		applied = append(applied, s)
	}
	return nil
}

func (e *Engine) rollback(applied []step) {
	// The caller's context may already be cancelled.
	ctx := context.Background()
	for i := len(applied) - 1; i >= 0; i-- {
		inv := applied[i].inverse()
		if err := inv.apply(ctx, e.tokens); err != nil {
			e.logger.Error("rollback step failed", zap.Stringer("step", inv), zap.Error(err))
		}
	}
}
