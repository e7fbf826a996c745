package wallet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLedger is an in-process Ledger for development and tests. It keeps
// the same invariants as the Postgres ledger: no overdrafts, one entry per
// (reference, kind), balance_before/after pairs on every row.
type MemoryLedger struct {
	mu      sync.Mutex
	players map[uuid.UUID]*Player
	entries map[uuid.UUID][]Entry
	refs    map[string]struct{} // referenceID + "|" + kind
}

// NewMemoryLedger returns an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		players: make(map[uuid.UUID]*Player),
		entries: make(map[uuid.UUID][]Entry),
		refs:    make(map[string]struct{}),
	}
}

// AddPlayer seeds an account. Test helper.
func (l *MemoryLedger) AddPlayer(p Player) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := p
	l.players[p.ID] = &cp
}

func (l *MemoryLedger) GetPlayer(_ context.Context, playerID uuid.UUID) (*Player, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.players[playerID]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	cp := *p
	return &cp, nil
}

func (l *MemoryLedger) Debit(_ context.Context, playerID uuid.UUID, amount float64, referenceID string) (*Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount <= 0 {
		return nil, fmt.Errorf("debit amount must be positive, got %f", amount)
	}

	p, ok := l.players[playerID]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	if !p.Active {
		return nil, ErrPlayerInactive
	}
	if p.Credits < amount {
		return nil, ErrInsufficientCredits
	}
	return l.apply(p, KindBet, -amount, amount, referenceID)
}

func (l *MemoryLedger) Credit(_ context.Context, playerID uuid.UUID, amount float64, referenceID string) (*Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount <= 0 {
		return nil, fmt.Errorf("credit amount must be positive, got %f", amount)
	}

	p, ok := l.players[playerID]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	return l.apply(p, KindWin, amount, amount, referenceID)
}

func (l *MemoryLedger) Adjust(_ context.Context, playerID uuid.UUID, amount float64, referenceID string) (*Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.players[playerID]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	if p.Credits+amount < 0 {
		return nil, ErrInsufficientCredits
	}
	return l.apply(p, KindAdjust, amount, amount, referenceID)
}

func (l *MemoryLedger) Entries(_ context.Context, playerID uuid.UUID, limit int) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	all := l.entries[playerID]
	out := make([]Entry, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// apply records one movement. delta is the signed balance change; amount is
// what the entry carries, positive for bet and win, signed for adjust.
func (l *MemoryLedger) apply(p *Player, kind string, delta, amount float64, referenceID string) (*Entry, error) {
	refKey := referenceID + "|" + kind
	if _, dup := l.refs[refKey]; dup {
		return nil, ErrDuplicateReference
	}

	e := Entry{
		ID:            uuid.New(),
		PlayerID:      p.ID,
		Kind:          kind,
		Amount:        amount,
		BalanceBefore: p.Credits,
		BalanceAfter:  p.Credits + delta,
		ReferenceID:   referenceID,
		CreatedAt:     time.Now().UTC(),
	}
	p.Credits = e.BalanceAfter
	l.refs[refKey] = struct{}{}
	l.entries[p.ID] = append(l.entries[p.ID], e)
	return &e, nil
}
