// Package engine owns the pool registry and orchestrates swaps and liquidity
// changes against a TokenTransfer ledger. Each pool has a single writer;
// distinct pools proceed concurrently.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"ammEngine/internal/amm"
	"ammEngine/internal/curve"
	"ammEngine/internal/fees"
	"ammEngine/internal/metrics"
	"ammEngine/internal/pool"
)

// InitParams describes a new pool.
type InitParams struct {
	MintX     string
	MintY     string
	Depositor string
	// FeeOwner defaults to Depositor.
	FeeOwner string
	ReserveX uint64
	ReserveY uint64
	Fees     fees.Schedule
	Curve    curve.Type
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithAuthorizer(auth amm.Authorizer) Option {
	return func(e *Engine) {
		if auth != nil {
			e.auth = auth
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

type entry struct {
	mu    sync.Mutex
	state *pool.State
}

// Engine is safe for concurrent use.
type Engine struct {
	mu    sync.RWMutex
	pools map[string]*entry

	tokens  TokenTransfer
	auth    amm.Authorizer
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New returns an engine settling through tokens. Without WithAuthorizer the
// signer must own the accounts it moves.
func New(tokens TokenTransfer, opts ...Option) *Engine {
	e := &Engine{
		pools:  make(map[string]*entry),
		tokens: tokens,
		auth:   amm.SignerMatchesOwner{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InitializePool creates a pool, moves the initial reserves from the
// depositor into the vaults and mints the initial LP supply to the
// depositor.
func (e *Engine) InitializePool(ctx context.Context, auth amm.Authorization, params InitParams) (string, error) {
	depositor := NormalizeAccount(params.Depositor)
	if err := e.auth.Authorize(ctx, auth, amm.OpInitialize, depositor); err != nil {
		return "", err
	}
	if depositor == "" {
		return "", fmt.Errorf("initialize pool: depositor is required")
	}
	feeOwner := NormalizeAccount(params.FeeOwner)
	if feeOwner == "" {
		feeOwner = depositor
	}

	id := PoolID(params.MintX, params.MintY, params.Curve)
	state := &pool.State{
		ID:        id,
		Authority: AuthorityOf(id),
		MintX:     NormalizeAccount(params.MintX),
		MintY:     NormalizeAccount(params.MintY),
		LPMint:    LPMintOf(id),
		FeeOwner:  feeOwner,
	}
	if err := checkNotVault(state, "depositor", depositor); err != nil {
		return "", err
	}
	if err := checkNotVault(state, "fee owner", feeOwner); err != nil {
		return "", err
	}
	if err := state.Initialize(params.ReserveX, params.ReserveY, params.Fees, params.Curve); err != nil {
		return "", err
	}

	ent, err := e.reserve(id)
	if err != nil {
		return "", err
	}
	defer ent.mu.Unlock()

	steps := []step{
		transfer(state.MintX, depositor, state.Authority, state.ReserveX),
		transfer(state.MintY, depositor, state.Authority, state.ReserveY),
		mintTo(state.LPMint, depositor, state.LPSupply),
	}
	if err := e.settle(ctx, steps); err != nil {
		e.release(id, ent)
		return "", fmt.Errorf("initialize pool %s: %w", id, err)
	}
	ent.state = state

	e.metrics.SetPool(id, state.ReserveX, state.ReserveY, state.LPSupply)
	e.metrics.SetPools(e.count())
	e.logger.Info("pool initialized",
		zap.String("pool", id),
		zap.String("mint_x", state.MintX),
		zap.String("mint_y", state.MintY),
		zap.Uint64("reserve_x", state.ReserveX),
		zap.Uint64("reserve_y", state.ReserveY),
		zap.String("curve", state.Curve.String()),
	)
	return id, nil
}

// reserve inserts a locked, empty entry for id. The caller fills the state
// or calls release.
func (e *Engine) reserve(id string) (*entry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.pools[id]; ok {
		return nil, amm.ErrAlreadyInitialized.Wrap("pool %s", id)
	}
	ent := &entry{}
	ent.mu.Lock()
	e.pools[id] = ent
	return ent, nil
}

func (e *Engine) release(id string, ent *entry) {
	e.mu.Lock()
	if e.pools[id] == ent {
		delete(e.pools, id)
	}
	e.mu.Unlock()
}

func (e *Engine) count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.pools)
}

// checkNotVault rejects the pool authority as a party to an operation. Its
// transfers would move tokens from a vault into itself.
func checkNotVault(st *pool.State, role, account string) error {
	if account != "" && account == st.Authority {
		return amm.ErrInvalidInput.Wrap("%s %s owns the vaults of pool %s", role, account, st.ID)
	}
	return nil
}

// lock returns the initialized pool id with its entry locked.
func (e *Engine) lock(id string) (*entry, error) {
	e.mu.RLock()
	ent, ok := e.pools[id]
	e.mu.RUnlock()
	if !ok {
		return nil, amm.ErrPoolUninitialized.Wrap("pool %s", id)
	}
	ent.mu.Lock()
	if ent.state == nil {
		ent.mu.Unlock()
		return nil, amm.ErrPoolUninitialized.Wrap("pool %s", id)
	}
	return ent, nil
}

// Pool returns a copy of the pool's state.
func (e *Engine) Pool(id string) (pool.State, error) {
	ent, err := e.lock(id)
	if err != nil {
		return pool.State{}, err
	}
	defer ent.mu.Unlock()
	return *ent.state.Clone(), nil
}

// Pools returns copies of all pools sorted by ID.
func (e *Engine) Pools() []pool.State {
	e.mu.RLock()
	ids := make([]string, 0, len(e.pools))
	for id := range e.pools {
		ids = append(ids, id)
	}
	e.mu.RUnlock()
	sort.Strings(ids)

	out := make([]pool.State, 0, len(ids))
	for _, id := range ids {
		st, err := e.Pool(id)
		if err != nil {
			continue
		}
		out = append(out, st)
	}
	return out
}

// Restore replaces the registry with previously saved pools. Tokens are not
// touched; the ledger is restored separately.
func (e *Engine) Restore(states []pool.State) error {
	pools := make(map[string]*entry, len(states))
	for i := range states {
		st := states[i].Clone()
		if !st.Initialized {
			return amm.ErrPoolUninitialized.Wrap("restore pool %s", st.ID)
		}
		if st.ID == "" || st.Authority == "" || st.LPMint == "" {
			return fmt.Errorf("restore pool %q: missing identity", st.ID)
		}
		if err := checkNotVault(st, "fee owner", st.FeeOwner); err != nil {
			return fmt.Errorf("restore pool %s: %w", st.ID, err)
		}
		if err := st.Fees.Validate(); err != nil {
			return fmt.Errorf("restore pool %s: %w", st.ID, err)
		}
		calc, err := curve.New(st.Curve)
		if err != nil {
			return fmt.Errorf("restore pool %s: %w", st.ID, err)
		}
		if err := calc.ValidateReserves(st.ReserveX, st.ReserveY); err != nil {
			return fmt.Errorf("restore pool %s: %w", st.ID, err)
		}
		if _, dup := pools[st.ID]; dup {
			return amm.ErrAlreadyInitialized.Wrap("restore pool %s: duplicate", st.ID)
		}
		pools[st.ID] = &entry{state: st}
	}

	e.mu.Lock()
	e.pools = pools
	e.mu.Unlock()

	for _, ent := range pools {
		e.metrics.SetPool(ent.state.ID, ent.state.ReserveX, ent.state.ReserveY, ent.state.LPSupply)
	}
	e.metrics.SetPools(len(pools))
	e.logger.Info("pools restored", zap.Int("count", len(pools)))
	return nil
}
