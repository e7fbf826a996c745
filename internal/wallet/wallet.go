package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Entry kinds. Every credits movement is one of these.
const (
	KindBet    = "bet"
	KindWin    = "win"
	KindAdjust = "adjust"
)

var (
	// ErrInsufficientCredits means a debit would take the balance negative.
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrDuplicateReference means an entry with the same reference and kind
	// was already recorded. The caller should treat the operation as done.
	ErrDuplicateReference = errors.New("duplicate ledger reference")
	// ErrPlayerNotFound means the player row does not exist.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrPlayerInactive means the account is disabled for play.
	ErrPlayerInactive = errors.New("player inactive")
)

// Entry is one row of the credits ledger. Amount holds the positive
// magnitude of the movement and Kind carries the direction: bet entries
// subtract it, win entries add it, adjust entries keep the operator's sign.
// The BalanceBefore/BalanceAfter pair lets auditors re-walk the ledger
// without trusting the running balance.
type Entry struct {
	ID            uuid.UUID `json:"id"`
	PlayerID      uuid.UUID `json:"playerId"`
	Kind          string    `json:"kind"`
	Amount        float64   `json:"amount"`
	BalanceBefore float64   `json:"balanceBefore"`
	BalanceAfter  float64   `json:"balanceAfter"`
	ReferenceID   string    `json:"referenceId"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Player is the wallet's view of an account.
type Player struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Credits  float64   `json:"credits"`
	Active   bool      `json:"active"`
}

// Ledger moves credits. Debit and Credit are idempotent per (referenceID,
// kind); replaying a reference returns ErrDuplicateReference without moving
// money. Implementations must be safe for concurrent use.
type Ledger interface {
	GetPlayer(ctx context.Context, playerID uuid.UUID) (*Player, error)
	// Debit removes amount from the player's balance and records a bet entry.
	// Amount must be positive.
	Debit(ctx context.Context, playerID uuid.UUID, amount float64, referenceID string) (*Entry, error)
	// Credit adds amount to the player's balance and records a win entry.
	// Amount must be positive; losing spins record no win entry.
	Credit(ctx context.Context, playerID uuid.UUID, amount float64, referenceID string) (*Entry, error)
	// Adjust applies a signed operator correction.
	Adjust(ctx context.Context, playerID uuid.UUID, amount float64, referenceID string) (*Entry, error)
	// Entries returns the most recent ledger rows for the player, newest
	// first, capped at limit.
	Entries(ctx context.Context, playerID uuid.UUID, limit int) ([]Entry, error)
}
