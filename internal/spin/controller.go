// Package spin is the transactional boundary around the pure spin pipeline:
// per-player locking, idempotent request handling, wallet movements, state
// compare-and-swap and durable result records.
package spin

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"gemrush/internal/config"
	"gemrush/internal/game/pipeline"
	"gemrush/internal/game/rng"
	"gemrush/internal/state"
	"gemrush/internal/wallet"
)

// Bet bounds, in credits.
const (
	MinBet = 0.10
	MaxBet = 100.00
)

// TxRunner runs a function atomically. database.TxManager satisfies it; a
// pass-through is used when persistence is memory-backed.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// NopTxRunner invokes fn directly. Used with the memory-backed stores,
// whose operations are individually atomic.
type NopTxRunner struct{}

func (NopTxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Broadcaster receives completed spin results for fan-out to live feeds.
// May be nil.
type Broadcaster interface {
	BroadcastSpin(result *pipeline.SpinResult)
}

// Controller owns the spin lifecycle. All public methods are safe for
// concurrent use; spins for the same player are serialized.
type Controller struct {
	profile *config.Holder
	rng     *rng.Service
	states  state.Store
	ledger  wallet.Ledger
	results ResultRepository
	tx      TxRunner
	locks   *playerLocks
	idem    *idemCache
	feed    Broadcaster
}

// NewController wires the controller. rdb may be nil (single node, no
// distributed locks or shared idempotency); feed may be nil.
func NewController(
	profile *config.Holder,
	rngSvc *rng.Service,
	states state.Store,
	ledger wallet.Ledger,
	results ResultRepository,
	tx TxRunner,
	opts Options,
) (*Controller, error) {
	idem, err := newIdemCache(opts.Redis)
	if err != nil {
		return nil, fmt.Errorf("building idempotency cache: %w", err)
	}
	return &Controller{
		profile: profile,
		rng:     rngSvc,
		states:  states,
		ledger:  ledger,
		results: results,
		tx:      tx,
		locks:   newPlayerLocks(opts.Redis),
		idem:    idem,
		feed:    opts.Feed,
	}, nil
}

// Options carries the optional controller collaborators.
type Options struct {
	Redis *redis.Client
	Feed  Broadcaster
}

// Spin runs one full spin for the player. When clientRequestID is set and a
// spin with that request ID already completed, the stored result is returned
// and no new spin runs.
func (c *Controller) Spin(ctx context.Context, playerID uuid.UUID, bet float64, clientRequestID string) (*pipeline.SpinResult, error) {
	if err := validateBet(bet); err != nil {
		return nil, err
	}

	if clientRequestID != "" {
		if prior, err := c.findPrior(ctx, clientRequestID); err == nil {
			return prior, nil
		}
	}

	release, err := c.locks.acquire(ctx, playerID)
	if err != nil {
		return nil, err
	}
	defer release()

	// Re-check after taking the lock; a concurrent retry may have finished
	// while this request was queued.
	if clientRequestID != "" {
		if prior, err := c.findPrior(ctx, clientRequestID); err == nil {
			return prior, nil
		}
	}

	result, err := c.runLocked(ctx, playerID, bet, clientRequestID)
	if err != nil {
		return nil, err
	}

	if clientRequestID != "" {
		c.idem.store(ctx, clientRequestID, result.SpinID)
	}
	if c.feed != nil {
		c.feed.BroadcastSpin(result)
	}
	return result, nil
}

// runLocked executes the debit→pipeline→credit→state sequence inside one
// transaction. A lost state CAS is retried once with fresh state.
func (c *Controller) runLocked(ctx context.Context, playerID uuid.UUID, bet float64, clientRequestID string) (*pipeline.SpinResult, error) {
	var result *pipeline.SpinResult
	run := func(ctx context.Context) error {
		var err error
		result, err = c.spinTx(ctx, playerID, bet, clientRequestID)
		return err
	}

	err := c.tx.WithTransaction(ctx, run)
	if errors.Is(err, state.ErrConflict) {
		log.Warn().Str("player_id", playerID.String()).Msg("state version conflict, retrying spin once")
		err = c.tx.WithTransaction(ctx, run)
	}
	if errors.Is(err, state.ErrConflict) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Controller) spinTx(ctx context.Context, playerID uuid.UUID, bet float64, clientRequestID string) (*pipeline.SpinResult, error) {
	st, err := c.loadOrInitState(ctx, playerID)
	if err != nil {
		return nil, err
	}

	spinID := c.rng.UUID()
	isFreeSpin := st.Mode == state.ModeFreeSpins

	var debitEntry *wallet.Entry
	if !isFreeSpin {
		e, err := c.ledger.Debit(ctx, playerID, bet, spinID.String())
		if err != nil {
			return nil, translateWalletErr(err)
		}
		debitEntry = e
	}

	seed := c.rng.GenerateSeed()
	result, err := pipeline.Run(c.profile.Current(), st, bet, seed)
	if err != nil {
		return nil, err
	}
	result.SpinID = spinID
	result.CreatedAt = time.Now().UTC()

	// Losing spins leave no win entry; the ledger records movements only.
	switch {
	case result.TotalWin > 0:
		winEntry, err := c.ledger.Credit(ctx, playerID, result.TotalWin, spinID.String())
		if err != nil {
			return nil, translateWalletErr(err)
		}
		result.BalanceAfter = winEntry.BalanceAfter
	case debitEntry != nil:
		result.BalanceAfter = debitEntry.BalanceAfter
	default:
		// Zero-win free spin: the balance did not move this spin.
		player, err := c.ledger.GetPlayer(ctx, playerID)
		if err != nil {
			return nil, translateWalletErr(err)
		}
		result.BalanceAfter = player.Credits
	}

	next := result.NextState
	next.LastSpinID = &spinID
	next.LastSeed = seed
	next.LastGridHash = result.FinalGridHash
	if err := c.states.Put(ctx, &next, st.Version); err != nil {
		return nil, err
	}
	result.NextState = next

	if err := c.results.Save(ctx, result, clientRequestID); err != nil {
		return nil, err
	}

	log.Info().
		Str("spin_id", spinID.String()).
		Str("player_id", playerID.String()).
		Float64("bet", bet).
		Float64("total_win", result.TotalWin).
		Str("mode", string(result.Mode)).
		Int("cascades", len(result.CascadeSteps)).
		Msg("spin completed")
	return result, nil
}

// BuyFreeSpins debits the buy-feature cost and moves the player straight
// into free-spin mode. No pipeline run happens; the first free spin is the
// player's next spin call.
func (c *Controller) BuyFreeSpins(ctx context.Context, playerID uuid.UUID, bet float64) (*state.PlayerState, float64, error) {
	if err := validateBet(bet); err != nil {
		return nil, 0, err
	}

	release, err := c.locks.acquire(ctx, playerID)
	if err != nil {
		return nil, 0, err
	}
	defer release()

	p := c.profile.Current()
	cost := p.FreeSpins.BuyFeatureCost * bet

	var (
		next         *state.PlayerState
		balanceAfter float64
	)
	err = c.tx.WithTransaction(ctx, func(ctx context.Context) error {
		st, err := c.loadOrInitState(ctx, playerID)
		if err != nil {
			return err
		}
		if st.Mode == state.ModeFreeSpins {
			return ErrAlreadyInFreeSpins
		}

		entry, err := c.ledger.Debit(ctx, playerID, cost, "buy:"+uuid.NewString())
		if err != nil {
			return translateWalletErr(err)
		}
		balanceAfter = entry.BalanceAfter

		next = st.Clone()
		next.Mode = state.ModeFreeSpins
		next.FreeSpinsRemaining = p.FreeSpins.BuyFeatureSpins
		next.AccumulatedMultiplier = 1
		return c.states.Put(ctx, next, st.Version)
	})
	if errors.Is(err, state.ErrConflict) {
		return nil, 0, ErrConflict
	}
	if err != nil {
		return nil, 0, err
	}

	log.Info().
		Str("player_id", playerID.String()).
		Float64("cost", cost).
		Int("spins", next.FreeSpinsRemaining).
		Msg("free spins purchased")
	return next, balanceAfter, nil
}

// GetState returns the player's current game state and balance.
func (c *Controller) GetState(ctx context.Context, playerID uuid.UUID) (*state.PlayerState, *wallet.Player, error) {
	player, err := c.ledger.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, nil, translateWalletErr(err)
	}

	st, err := c.states.Get(ctx, playerID)
	if errors.Is(err, state.ErrNotFound) {
		st = state.New(playerID)
		err = nil
	}
	if err != nil {
		return nil, nil, err
	}
	return st, player, nil
}

// GetReplay fetches a stored spin and verifies it reproduces from its seed.
func (c *Controller) GetReplay(ctx context.Context, spinID uuid.UUID) (*pipeline.SpinResult, error) {
	result, err := c.results.Get(ctx, spinID)
	if err != nil {
		return nil, err
	}
	if err := pipeline.VerifyReplay(c.profile.Current(), result); err != nil {
		log.Error().Err(err).Str("spin_id", spinID.String()).Msg("replay verification failed")
		return nil, err
	}
	return result, nil
}

// GetPendingResult resolves a client request ID to its completed spin, for
// clients recovering from a dropped connection.
func (c *Controller) GetPendingResult(ctx context.Context, requestID string) (*pipeline.SpinResult, error) {
	result, err := c.findPrior(ctx, requestID)
	if errors.Is(err, ErrSpinNotFound) {
		return nil, ErrResultPending
	}
	return result, err
}

// Ledger returns the player's most recent wallet entries, newest first.
func (c *Controller) Ledger(ctx context.Context, playerID uuid.UUID, limit int) ([]wallet.Entry, error) {
	if _, err := c.ledger.GetPlayer(ctx, playerID); err != nil {
		return nil, translateWalletErr(err)
	}
	return c.ledger.Entries(ctx, playerID, limit)
}

// AdjustCredits applies a signed operator balance correction.
func (c *Controller) AdjustCredits(ctx context.Context, playerID uuid.UUID, amount float64, reason string) (*wallet.Entry, error) {
	ref := fmt.Sprintf("adjust:%s:%s", reason, uuid.NewString())
	entry, err := c.ledger.Adjust(ctx, playerID, amount, ref)
	if err != nil {
		return nil, translateWalletErr(err)
	}
	log.Info().
		Str("player_id", playerID.String()).
		Float64("amount", amount).
		Str("reason", reason).
		Msg("credits adjusted")
	return entry, nil
}

func (c *Controller) findPrior(ctx context.Context, requestID string) (*pipeline.SpinResult, error) {
	if spinID, ok := c.idem.lookup(ctx, requestID); ok {
		return c.results.Get(ctx, spinID)
	}
	// Cache miss past the TTL: the durable record is still findable.
	return c.results.GetByRequestID(ctx, requestID)
}

func (c *Controller) loadOrInitState(ctx context.Context, playerID uuid.UUID) (*state.PlayerState, error) {
	st, err := c.states.Get(ctx, playerID)
	if errors.Is(err, state.ErrNotFound) {
		return state.New(playerID), nil
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

func validateBet(bet float64) error {
	if math.IsNaN(bet) || math.IsInf(bet, 0) {
		return ErrInvalidBet
	}
	if bet < MinBet || bet > MaxBet {
		return fmt.Errorf("%w: %.2f outside [%.2f, %.2f]", ErrInvalidBet, bet, MinBet, MaxBet)
	}
	// Bets are whole cents.
	cents := bet * 100
	if math.Abs(cents-math.Round(cents)) > 1e-9 {
		return fmt.Errorf("%w: %f is not a whole-cent amount", ErrInvalidBet, bet)
	}
	return nil
}

func translateWalletErr(err error) error {
	switch {
	case errors.Is(err, wallet.ErrPlayerNotFound):
		return ErrUnknownPlayer
	case errors.Is(err, wallet.ErrPlayerInactive):
		return ErrInactiveAccount
	case errors.Is(err, wallet.ErrInsufficientCredits):
		return ErrInsufficientFunds
	default:
		return err
	}
}
