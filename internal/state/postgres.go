package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gemrush/internal/database"
)

// stateData is the opaque blob column holding replay breadcrumbs.
type stateData struct {
	LastSpinID   *uuid.UUID `json:"last_spin_id,omitempty"`
	LastSeed     string     `json:"last_seed,omitempty"`
	LastGridHash string     `json:"last_grid_hash,omitempty"`
}

// PGStore is the durable Store over the game_states table. Writes are
// version-guarded updates; the guard is the second line of defence behind
// the controller's per-player lock.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore returns the Postgres-backed store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Get(ctx context.Context, playerID uuid.UUID) (*PlayerState, error) {
	q := database.QuerierFrom(ctx, s.pool)

	var (
		st   PlayerState
		blob []byte
	)
	err := q.QueryRow(ctx, `
		SELECT player_id, mode, free_spins_remaining, accumulated_multiplier, version, state_data
		FROM game_states WHERE player_id = $1`, playerID).
		Scan(&st.PlayerID, &st.Mode, &st.FreeSpinsRemaining, &st.AccumulatedMultiplier, &st.Version, &blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading game state: %w", err)
	}

	if len(blob) > 0 {
		var data stateData
		if err := json.Unmarshal(blob, &data); err != nil {
			return nil, fmt.Errorf("decoding state data: %w", err)
		}
		st.LastSpinID = data.LastSpinID
		st.LastSeed = data.LastSeed
		st.LastGridHash = data.LastGridHash
	}
	return &st, nil
}

func (s *PGStore) Put(ctx context.Context, st *PlayerState, expectedVersion int64) error {
	q := database.QuerierFrom(ctx, s.pool)

	blob, err := json.Marshal(stateData{
		LastSpinID:   st.LastSpinID,
		LastSeed:     st.LastSeed,
		LastGridHash: st.LastGridHash,
	})
	if err != nil {
		return fmt.Errorf("encoding state data: %w", err)
	}

	if expectedVersion == 0 {
		tag, err := q.Exec(ctx, `
			INSERT INTO game_states (player_id, mode, free_spins_remaining, accumulated_multiplier, version, state_data)
			VALUES ($1, $2, $3, $4, 1, $5)
			ON CONFLICT (player_id) DO NOTHING`,
			st.PlayerID, st.Mode, st.FreeSpinsRemaining, st.AccumulatedMultiplier, blob)
		if err != nil {
			return fmt.Errorf("inserting game state: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrConflict
		}
		st.Version = 1
		return nil
	}

	tag, err := q.Exec(ctx, `
		UPDATE game_states
		SET mode = $2, free_spins_remaining = $3, accumulated_multiplier = $4,
		    version = version + 1, state_data = $5, updated_at = now()
		WHERE player_id = $1 AND version = $6`,
		st.PlayerID, st.Mode, st.FreeSpinsRemaining, st.AccumulatedMultiplier, blob, expectedVersion)
	if err != nil {
		return fmt.Errorf("updating game state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	st.Version = expectedVersion + 1
	return nil
}

func (s *PGStore) Snapshot(ctx context.Context, playerID uuid.UUID) (*PlayerState, error) {
	return s.Get(ctx, playerID)
}
