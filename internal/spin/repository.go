package spin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gemrush/internal/database"
	"gemrush/internal/game/pipeline"
)

// ResultRepository persists immutable spin records and finds them again by
// spin ID or by the client request ID that produced them.
type ResultRepository interface {
	Save(ctx context.Context, result *pipeline.SpinResult, clientRequestID string) error
	Get(ctx context.Context, spinID uuid.UUID) (*pipeline.SpinResult, error)
	GetByRequestID(ctx context.Context, requestID string) (*pipeline.SpinResult, error)
}

// PGResultRepository stores spin records in the spin_results table. The
// queryable scalars get their own columns; the full record goes into a
// jsonb column so replays reconstruct every cascade step.
type PGResultRepository struct {
	pool *pgxpool.Pool
}

// NewPGResultRepository returns the Postgres-backed repository.
func NewPGResultRepository(pool *pgxpool.Pool) *PGResultRepository {
	return &PGResultRepository{pool: pool}
}

func (r *PGResultRepository) Save(ctx context.Context, result *pipeline.SpinResult, clientRequestID string) error {
	blob, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding spin result: %w", err)
	}

	q := database.QuerierFrom(ctx, r.pool)
	var reqID *string
	if clientRequestID != "" {
		reqID = &clientRequestID
	}
	_, err = q.Exec(ctx, `
		INSERT INTO spin_results (id, player_id, client_request_id, bet, total_win,
			multiplier_total, rng_seed, game_mode, result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		result.SpinID, result.PlayerID, reqID, result.Bet, result.TotalWin,
		result.MultiplierTotal, result.RNGSeed, result.Mode, blob, result.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting spin result: %w", err)
	}
	return nil
}

func (r *PGResultRepository) Get(ctx context.Context, spinID uuid.UUID) (*pipeline.SpinResult, error) {
	return r.getBy(ctx, `SELECT result FROM spin_results WHERE id = $1`, spinID)
}

func (r *PGResultRepository) GetByRequestID(ctx context.Context, requestID string) (*pipeline.SpinResult, error) {
	return r.getBy(ctx, `SELECT result FROM spin_results WHERE client_request_id = $1`, requestID)
}

func (r *PGResultRepository) getBy(ctx context.Context, sql string, arg any) (*pipeline.SpinResult, error) {
	q := database.QuerierFrom(ctx, r.pool)

	var blob []byte
	err := q.QueryRow(ctx, sql, arg).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSpinNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading spin result: %w", err)
	}

	var result pipeline.SpinResult
	if err := json.Unmarshal(blob, &result); err != nil {
		return nil, fmt.Errorf("decoding spin result: %w", err)
	}
	return &result, nil
}

// MemoryResultRepository is an in-process repository for development and
// tests.
type MemoryResultRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*pipeline.SpinResult
	byReqID map[string]uuid.UUID
}

// NewMemoryResultRepository returns an empty in-memory repository.
func NewMemoryResultRepository() *MemoryResultRepository {
	return &MemoryResultRepository{
		byID:    make(map[uuid.UUID]*pipeline.SpinResult),
		byReqID: make(map[string]uuid.UUID),
	}
}

func (r *MemoryResultRepository) Save(_ context.Context, result *pipeline.SpinResult, clientRequestID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *result
	r.byID[result.SpinID] = &cp
	if clientRequestID != "" {
		r.byReqID[clientRequestID] = result.SpinID
	}
	return nil
}

func (r *MemoryResultRepository) Get(_ context.Context, spinID uuid.UUID) (*pipeline.SpinResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result, ok := r.byID[spinID]
	if !ok {
		return nil, ErrSpinNotFound
	}
	cp := *result
	return &cp, nil
}

func (r *MemoryResultRepository) GetByRequestID(ctx context.Context, requestID string) (*pipeline.SpinResult, error) {
	r.mu.RLock()
	id, ok := r.byReqID[requestID]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSpinNotFound
	}
	return r.Get(ctx, id)
}
