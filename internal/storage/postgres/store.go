package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ammEngine/internal/model"
	"ammEngine/internal/pool"
	"ammEngine/internal/storage"
)

// Schema creates the tables the store uses.
const Schema = `
CREATE TABLE IF NOT EXISTS pools (
	pool_id    TEXT PRIMARY KEY,
	authority  TEXT NOT NULL,
	mint_x     TEXT NOT NULL,
	mint_y     TEXT NOT NULL,
	lp_mint    TEXT NOT NULL,
	fee_owner  TEXT NOT NULL,
	state      BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS balances (
	mint       TEXT NOT NULL,
	owner      TEXT NOT NULL,
	amount     NUMERIC(20, 0) NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (mint, owner)
);
CREATE TABLE IF NOT EXISTS swaps (
	id             UUID PRIMARY KEY,
	pool_id        TEXT NOT NULL,
	direction      TEXT NOT NULL,
	trader         TEXT NOT NULL,
	recipient      TEXT NOT NULL,
	host           TEXT NOT NULL DEFAULT '',
	amount_in      NUMERIC(20, 0) NOT NULL,
	min_amount_out NUMERIC(20, 0) NOT NULL,
	amount_out     NUMERIC(20, 0) NOT NULL,
	trade_fee      NUMERIC(20, 0) NOT NULL,
	owner_fee      NUMERIC(20, 0) NOT NULL,
	host_fee       NUMERIC(20, 0) NOT NULL,
	reserve_x      NUMERIC(20, 0) NOT NULL,
	reserve_y      NUMERIC(20, 0) NOT NULL,
	error          TEXT NOT NULL DEFAULT '',
	executed_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS swaps_pool_id_idx ON swaps (pool_id, executed_at);
`

// Store provides Postgres persistence for pools, balances and swaps.
// Pool state is stored in its binary account layout.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates missing tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Load reads all pools and balances.
func (s *Store) Load(ctx context.Context) (storage.Snapshot, error) {
	var snap storage.Snapshot

	rows, err := s.pool.Query(ctx, `
		SELECT pool_id, authority, mint_x, mint_y, lp_mint, fee_owner, state
		FROM pools ORDER BY pool_id
	`)
	if err != nil {
		return snap, fmt.Errorf("query pools: %w", err)
	}
	for rows.Next() {
		var id, authority, mintX, mintY, lpMint, feeOwner string
		var state []byte
		if err := rows.Scan(&id, &authority, &mintX, &mintY, &lpMint, &feeOwner, &state); err != nil {
			rows.Close()
			return snap, fmt.Errorf("scan pool: %w", err)
		}
		st, err := decodePool(id, authority, mintX, mintY, lpMint, feeOwner, state)
		if err != nil {
			rows.Close()
			return snap, err
		}
		snap.Pools = append(snap.Pools, st)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("read pools: %w", err)
	}

	rows, err = s.pool.Query(ctx, `SELECT mint, owner, amount::text FROM balances ORDER BY mint, owner`)
	if err != nil {
		return snap, fmt.Errorf("query balances: %w", err)
	}
	for rows.Next() {
		var b model.Balance
		var amount string
		if err := rows.Scan(&b.Mint, &b.Owner, &amount); err != nil {
			rows.Close()
			return snap, fmt.Errorf("scan balance: %w", err)
		}
		if b.Amount, err = strconv.ParseUint(amount, 10, 64); err != nil {
			rows.Close()
			return snap, fmt.Errorf("parse balance %s/%s: %w", b.Mint, b.Owner, err)
		}
		snap.Balances = append(snap.Balances, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("read balances: %w", err)
	}

	if len(snap.Pools) == 0 && len(snap.Balances) == 0 {
		return snap, storage.ErrNoSnapshot
	}
	return snap, nil
}

// Save upserts pools and replaces all balances in one transaction.
func (s *Store) Save(ctx context.Context, snap storage.Snapshot) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for i := range snap.Pools {
			st := &snap.Pools[i]
			data, err := st.MarshalBinary()
			if err != nil {
				return fmt.Errorf("encode pool %s: %w", st.ID, err)
			}
			batch.Queue(`
				INSERT INTO pools (
					pool_id, authority, mint_x, mint_y, lp_mint, fee_owner, state, created_at, updated_at
				) VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
				ON CONFLICT (pool_id)
				DO UPDATE SET
					fee_owner = EXCLUDED.fee_owner,
					state = EXCLUDED.state,
					updated_at = now()
			`,
				st.ID,
				st.Authority,
				st.MintX,
				st.MintY,
				st.LPMint,
				st.FeeOwner,
				data,
			)
		}
		batch.Queue(`DELETE FROM balances`)
		for _, b := range snap.Balances {
			batch.Queue(`
				INSERT INTO balances (mint, owner, amount, updated_at)
				VALUES ($1, $2, $3::numeric, now())
			`, b.Mint, b.Owner, strconv.FormatUint(b.Amount, 10))
		}

		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("save snapshot: %w", err)
			}
		}
		return br.Close()
	})
}

// PutSwapBatch inserts swap records. Records already stored are skipped.
func (s *Store) PutSwapBatch(ctx context.Context, records []model.SwapRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			return fmt.Errorf("swap id %q: %w", r.ID, err)
		}
		executedAt, err := time.Parse(time.RFC3339Nano, r.ExecutedAt)
		if err != nil {
			return fmt.Errorf("swap %s executed_at: %w", r.ID, err)
		}
		batch.Queue(`
			INSERT INTO swaps (
				id, pool_id, direction, trader, recipient, host,
				amount_in, min_amount_out, amount_out, trade_fee, owner_fee, host_fee,
				reserve_x, reserve_y, error, executed_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7::numeric,$8::numeric,$9::numeric,$10::numeric,$11::numeric,$12::numeric,$13::numeric,$14::numeric,$15,$16)
			ON CONFLICT (id) DO NOTHING
		`,
			[16]byte(id),
			r.PoolID,
			r.Direction,
			r.Trader,
			r.Recipient,
			r.Host,
			u64(r.AmountIn),
			u64(r.MinAmountOut),
			u64(r.AmountOut),
			u64(r.TradeFee),
			u64(r.OwnerFee),
			u64(r.HostFee),
			u64(r.ReserveX),
			u64(r.ReserveY),
			r.Error,
			executedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func u64(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func decodePool(id, authority, mintX, mintY, lpMint, feeOwner string, data []byte) (pool.State, error) {
	st := pool.State{
		ID:        id,
		Authority: authority,
		MintX:     mintX,
		MintY:     mintY,
		LPMint:    lpMint,
		FeeOwner:  feeOwner,
	}
	if err := st.UnmarshalBinary(data); err != nil {
		return pool.State{}, fmt.Errorf("decode pool %s: %w", id, err)
	}
	return st, nil
}
