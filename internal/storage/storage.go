// Package storage persists engine state and swap history.
package storage

import (
	"context"
	"errors"

	"ammEngine/internal/model"
	"ammEngine/internal/pool"
)

var ErrNoSnapshot = errors.New("no snapshot")

// Snapshot is everything needed to resume the engine: pools and ledger
// balances taken at the same point.
type Snapshot struct {
	Pools     []pool.State    `json:"pools"`
	Balances  []model.Balance `json:"balances"`
	UpdatedAt string          `json:"updated_at"`
}

// Store loads and saves snapshots. Load returns ErrNoSnapshot when nothing
// has been saved yet.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// SwapLog defines a sink for swap records.
type SwapLog interface {
	PutSwapBatch(ctx context.Context, records []model.SwapRecord) error
}
