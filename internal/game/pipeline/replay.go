package pipeline

import (
	"errors"
	"fmt"

	"gemrush/internal/config"
	"gemrush/internal/state"
)

// ErrReplayMismatch signals that a stored result does not reproduce from its
// recorded seed: an integrity fault.
var ErrReplayMismatch = errors.New("replay verification mismatch")

// VerifyReplay re-runs the pipeline from a stored result's inputs and checks
// that the grids, multiplier total and win reproduce exactly. The free-spin
// counter does not influence grid math, so it is reconstructed only far
// enough to satisfy state validation.
func VerifyReplay(p *config.MathProfile, stored *SpinResult) error {
	st := state.New(stored.PlayerID)
	st.Mode = stored.Mode
	if stored.Mode == state.ModeFreeSpins {
		st.AccumulatedMultiplier = stored.FreeSpinInfo.AccumulatedMultiplier
		st.FreeSpinsRemaining = stored.FreeSpinInfo.RemainingAfter + 1
	}

	replayed, err := Run(p, st, stored.Bet, stored.RNGSeed)
	if err != nil {
		return fmt.Errorf("replaying spin %s: %w", stored.SpinID, err)
	}

	if replayed.InitialGridHash != stored.InitialGridHash {
		return fmt.Errorf("%w: initial grid hash %s != %s",
			ErrReplayMismatch, replayed.InitialGridHash, stored.InitialGridHash)
	}
	if replayed.FinalGridHash != stored.FinalGridHash {
		return fmt.Errorf("%w: final grid hash %s != %s",
			ErrReplayMismatch, replayed.FinalGridHash, stored.FinalGridHash)
	}
	if replayed.MultiplierTotal != stored.MultiplierTotal {
		return fmt.Errorf("%w: multiplier total %d != %d",
			ErrReplayMismatch, replayed.MultiplierTotal, stored.MultiplierTotal)
	}
	if replayed.TotalWin != stored.TotalWin {
		return fmt.Errorf("%w: total win %.2f != %.2f",
			ErrReplayMismatch, replayed.TotalWin, stored.TotalWin)
	}
	return nil
}
