package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"gemrush/internal/database"
)

// PGLedger is the durable Ledger over the players and transactions tables.
// Balance updates are conditional single-statement writes, so two spins
// racing on the same player cannot overdraw even outside the controller's
// lock.
type PGLedger struct {
	pool *pgxpool.Pool
}

// NewPGLedger returns the Postgres-backed ledger.
func NewPGLedger(pool *pgxpool.Pool) *PGLedger {
	return &PGLedger{pool: pool}
}

func (l *PGLedger) GetPlayer(ctx context.Context, playerID uuid.UUID) (*Player, error) {
	q := database.QuerierFrom(ctx, l.pool)

	var p Player
	err := q.QueryRow(ctx, `
		SELECT id, username, credits, active FROM players WHERE id = $1`, playerID).
		Scan(&p.ID, &p.Username, &p.Credits, &p.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading player: %w", err)
	}
	return &p, nil
}

func (l *PGLedger) Debit(ctx context.Context, playerID uuid.UUID, amount float64, referenceID string) (*Entry, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("debit amount must be positive, got %f", amount)
	}

	q := database.QuerierFrom(ctx, l.pool)

	var before, after float64
	err := q.QueryRow(ctx, `
		UPDATE players
		SET credits = credits - $2, updated_at = now()
		WHERE id = $1 AND active AND credits >= $2
		RETURNING credits + $2, credits`, playerID, amount).
		Scan(&before, &after)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, l.classifyFailedDebit(ctx, q, playerID)
	}
	if err != nil {
		return nil, fmt.Errorf("debiting player: %w", err)
	}

	return l.record(ctx, q, Entry{
		PlayerID:      playerID,
		Kind:          KindBet,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		ReferenceID:   referenceID,
	})
}

func (l *PGLedger) Credit(ctx context.Context, playerID uuid.UUID, amount float64, referenceID string) (*Entry, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("credit amount must be positive, got %f", amount)
	}

	q := database.QuerierFrom(ctx, l.pool)

	var before, after float64
	err := q.QueryRow(ctx, `
		UPDATE players
		SET credits = credits + $2, updated_at = now()
		WHERE id = $1
		RETURNING credits - $2, credits`, playerID, amount).
		Scan(&before, &after)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("crediting player: %w", err)
	}

	return l.record(ctx, q, Entry{
		PlayerID:      playerID,
		Kind:          KindWin,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		ReferenceID:   referenceID,
	})
}

func (l *PGLedger) Adjust(ctx context.Context, playerID uuid.UUID, amount float64, referenceID string) (*Entry, error) {
	q := database.QuerierFrom(ctx, l.pool)

	var before, after float64
	err := q.QueryRow(ctx, `
		UPDATE players
		SET credits = credits + $2, updated_at = now()
		WHERE id = $1 AND credits + $2 >= 0
		RETURNING credits - $2, credits`, playerID, amount).
		Scan(&before, &after)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, gerr := l.GetPlayer(ctx, playerID); gerr != nil {
			return nil, gerr
		}
		return nil, ErrInsufficientCredits
	}
	if err != nil {
		return nil, fmt.Errorf("adjusting player: %w", err)
	}

	return l.record(ctx, q, Entry{
		PlayerID:      playerID,
		Kind:          KindAdjust,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		ReferenceID:   referenceID,
	})
}

func (l *PGLedger) Entries(ctx context.Context, playerID uuid.UUID, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	q := database.QuerierFrom(ctx, l.pool)
	rows, err := q.Query(ctx, `
		SELECT id, player_id, kind, amount, balance_before, balance_after, reference_id, created_at
		FROM transactions WHERE player_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.PlayerID, &e.Kind, &e.Amount,
			&e.BalanceBefore, &e.BalanceAfter, &e.ReferenceID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (l *PGLedger) record(ctx context.Context, q database.Querier, e Entry) (*Entry, error) {
	e.ID = uuid.New()
	err := q.QueryRow(ctx, `
		INSERT INTO transactions (id, player_id, kind, amount, balance_before, balance_after, reference_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		e.ID, e.PlayerID, e.Kind, e.Amount, e.BalanceBefore, e.BalanceAfter, e.ReferenceID).
		Scan(&e.CreatedAt)
	if isUniqueViolation(err) {
		return nil, ErrDuplicateReference
	}
	if err != nil {
		return nil, fmt.Errorf("recording ledger entry: %w", err)
	}
	return &e, nil
}

func (l *PGLedger) classifyFailedDebit(ctx context.Context, q database.Querier, playerID uuid.UUID) error {
	var (
		credits float64
		active  bool
	)
	err := q.QueryRow(ctx, `SELECT credits, active FROM players WHERE id = $1`, playerID).
		Scan(&credits, &active)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrPlayerNotFound
	}
	if err != nil {
		return fmt.Errorf("classifying failed debit: %w", err)
	}
	if !active {
		return ErrPlayerInactive
	}
	return ErrInsufficientCredits
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
