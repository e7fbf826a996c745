// Package pipeline sequences grid generation, cascades, multipliers and
// scatter resolution into one replayable SpinResult.
//
// The orchestrator performs no I/O: given the same player state, bet and
// root seed it produces identical grids, cascades, multipliers and totals.
// It is the single source of spin truth for both real play and replay
// verification.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gemrush/internal/config"
	"gemrush/internal/game/cascade"
	"gemrush/internal/game/freespins"
	"gemrush/internal/game/gen"
	"gemrush/internal/game/grid"
	"gemrush/internal/game/multiplier"
	"gemrush/internal/game/rng"
	"gemrush/internal/game/wins"
	"gemrush/internal/state"
)

// ErrValidationFailed marks an integrity fault: the produced result violates
// a hard invariant and the spin must be aborted.
var ErrValidationFailed = errors.New("spin result validation failed")

// FreeSpinInfo summarizes the free-spin bookkeeping of one spin.
type FreeSpinInfo struct {
	Trigger         freespins.Trigger `json:"trigger"`
	InitialScatters int               `json:"initial_scatters"`
	FinalScatters   int               `json:"final_scatters"`
	// AccumulatedMultiplier is the value applied to this spin's cascades.
	AccumulatedMultiplier int `json:"accumulated_multiplier"`
	RemainingAfter        int `json:"remaining_after"`
}

// SpinResult is the canonical, immutable record of one spin. SpinID,
// BalanceAfter and CreatedAt are assigned by the controller; every other
// field is a pure function of (state, bet, seed).
type SpinResult struct {
	SpinID   uuid.UUID  `json:"spin_id"`
	PlayerID uuid.UUID  `json:"player_id"`
	Bet      float64    `json:"bet"`
	Mode     state.Mode `json:"mode"`

	InitialGrid     grid.Grid `json:"initial_grid"`
	InitialGridHash string    `json:"initial_grid_hash"`
	FinalGrid       grid.Grid `json:"final_grid"`
	FinalGridHash   string    `json:"final_grid_hash"`

	CascadeSteps     []cascade.Step     `json:"cascade_steps"`
	MultiplierEvents []multiplier.Event `json:"multiplier_events"`
	MultiplierTotal  int                `json:"multiplier_total"`

	// CascadeTotal is the summed cascade win including the accumulated
	// multiplier; BaseWin is the reconstruction before any multiplier.
	CascadeTotal  float64 `json:"cascade_total"`
	BaseWin       float64 `json:"base_win"`
	ScatterPayout float64 `json:"scatter_payout"`
	TotalWin      float64 `json:"total_win"`

	RNGSeed        string      `json:"rng_seed"`
	SeedCommitment string      `json:"seed_commitment"`
	AuditLog       []rng.Event `json:"audit_log,omitempty"`

	FreeSpinInfo FreeSpinInfo      `json:"free_spin_info"`
	Features     []string          `json:"features,omitempty"`
	NextState    state.PlayerState `json:"next_state"`

	BalanceAfter float64   `json:"balance_after"`
	CreatedAt    time.Time `json:"created_at"`
}

// Run executes the full spin pipeline for the given player state, bet and
// root seed.
func Run(p *config.MathProfile, st *state.PlayerState, bet float64, rootSeed string) (*SpinResult, error) {
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("%w: bad input state: %s", ErrValidationFailed, err)
	}

	isFreeSpin := st.Mode == state.ModeFreeSpins
	accum := st.AccumulatedMultiplier
	rec := rng.NewRecorder()
	prm := gen.ParamsFor(p, isFreeSpin)

	// Step 0 of the seed schedule is the initial grid; cascades use 1..N.
	gridStream := rng.NewStream(rng.SubSeed(rootSeed, 0)).WithAudit(rec, "grid")
	initial := gen.Grid(gridStream, prm)

	casc := cascade.Run(p, initial, bet, accum, rootSeed, prm, rec)

	initialScatters := initial.CountScatters()
	finalScatters := casc.FinalGrid.CountScatters()

	var trigger freespins.Trigger
	if isFreeSpin {
		trigger = freespins.CheckRetrigger(p, finalScatters)
	} else {
		trigger = freespins.CheckBase(p, initialScatters, finalScatters)
	}

	// Scatter payout is always awarded when enough scatters are present on
	// either grid; it is added after multiplier application, unmultiplied.
	scatterCount := initialScatters
	if finalScatters > scatterCount {
		scatterCount = finalScatters
	}
	scatterPayout := wins.ForScatters(p, scatterCount, bet)

	mult := multiplier.Evaluate(p, len(casc.Steps), casc.Total, bet, rootSeed, rec)

	baseWin, finalWin := applyMultipliers(isFreeSpin, accum, casc.Total, mult.Total)
	totalWin := wins.Round2(wins.ApplyMaxWinCap(p, finalWin+scatterPayout, bet))

	next := nextState(p, st, trigger, mult.Total)
	if err := next.Validate(); err != nil {
		return nil, fmt.Errorf("%w: bad next state: %s", ErrValidationFailed, err)
	}
	if err := casc.FinalGrid.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidationFailed, err)
	}

	result := &SpinResult{
		PlayerID: st.PlayerID,
		Bet:      bet,
		Mode:     st.Mode,

		InitialGrid:     initial,
		InitialGridHash: initial.Hash(),
		FinalGrid:       casc.FinalGrid,
		FinalGridHash:   casc.FinalGrid.Hash(),

		CascadeSteps:     casc.Steps,
		MultiplierEvents: mult.Events,
		MultiplierTotal:  mult.Total,

		CascadeTotal:  casc.Total,
		BaseWin:       baseWin,
		ScatterPayout: scatterPayout,
		TotalWin:      totalWin,

		RNGSeed:        rootSeed,
		SeedCommitment: rng.HashCommitment(rootSeed),
		AuditLog:       rec.Events(),

		FreeSpinInfo: FreeSpinInfo{
			Trigger:               trigger,
			InitialScatters:       initialScatters,
			FinalScatters:         finalScatters,
			AccumulatedMultiplier: accum,
			RemainingAfter:        next.FreeSpinsRemaining,
		},
		Features:  features(trigger, mult),
		NextState: *next,
	}
	return result, nil
}

// applyMultipliers implements the additive multiplier rule.
//
// Base mode: final = base * M_total when M_total > 0, else base.
// Free spins: cascade wins already carry the previous accumulated
// multiplier, so the base is reconstructed by dividing it out and the full
// (accumulated + M_total) is applied once.
func applyMultipliers(isFreeSpin bool, accum int, cascadeTotal float64, mTotal int) (baseWin, finalWin float64) {
	if !isFreeSpin {
		baseWin = cascadeTotal
		if mTotal > 0 {
			return baseWin, baseWin * float64(mTotal)
		}
		return baseWin, baseWin
	}

	baseWin = cascadeTotal / float64(accum)
	return baseWin, baseWin * float64(accum+mTotal)
}

// nextState computes the post-spin game state per the state machine rules.
func nextState(p *config.MathProfile, st *state.PlayerState, trigger freespins.Trigger, mTotal int) *state.PlayerState {
	next := st.Clone()

	if st.Mode == state.ModeBase {
		if trigger.Triggered {
			next.Mode = state.ModeFreeSpins
			next.FreeSpinsRemaining = trigger.SpinsAwarded
			next.AccumulatedMultiplier = 1
		}
		return next
	}

	remaining := st.FreeSpinsRemaining - 1
	if remaining < 0 {
		remaining = 0
	}
	if trigger.Retriggered {
		remaining += trigger.SpinsAwarded
	}
	next.FreeSpinsRemaining = remaining
	next.AccumulatedMultiplier = st.AccumulatedMultiplier + mTotal
	if remaining == 0 {
		next.Mode = state.ModeBase
		next.AccumulatedMultiplier = 1
	}
	return next
}

func features(trigger freespins.Trigger, mult multiplier.Outcome) []string {
	var out []string
	if trigger.Triggered {
		out = append(out, "free_spins_triggered")
	}
	if trigger.Retriggered {
		out = append(out, "free_spins_retriggered")
	}
	for _, ev := range mult.Events {
		out = append(out, ev.Kind)
	}
	return out
}
