package pipeline

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gemrush/internal/config"
	"gemrush/internal/game/freespins"
	"gemrush/internal/state"
)

// findSpin runs spins over a deterministic seed sequence until pred accepts
// one. Exploring seeds instead of mocking the generator keeps the whole
// pipeline under test.
func findSpin(t *testing.T, p *config.MathProfile, st *state.PlayerState, bet float64, label string, pred func(*SpinResult) bool) *SpinResult {
	t.Helper()
	for i := 0; i < 5000; i++ {
		result, err := Run(p, st, bet, fmt.Sprintf("%s-%04d", label, i))
		require.NoError(t, err)
		if pred(result) {
			return result
		}
	}
	t.Fatalf("no spin matching predicate within seed search limit (%s)", label)
	return nil
}

func TestRunDeterministic(t *testing.T) {
	p := config.Standard()
	st := state.New(uuid.New())

	a, err := Run(p, st, 1.00, "determinism-seed")
	require.NoError(t, err)
	b, err := Run(p, st, 1.00, "determinism-seed")
	require.NoError(t, err)

	require.Equal(t, a, b, "a spin must be a pure function of (state, bet, seed)")
}

func TestRunNoMatchSpin(t *testing.T) {
	p := config.Standard()
	st := state.New(uuid.New())

	result := findSpin(t, p, st, 1.00, "nomatch", func(r *SpinResult) bool {
		return len(r.CascadeSteps) == 0 && r.FreeSpinInfo.InitialScatters < 4
	})

	assert.Zero(t, result.TotalWin)
	assert.Zero(t, result.CascadeTotal)
	assert.Empty(t, result.MultiplierEvents)
	assert.Equal(t, result.InitialGridHash, result.FinalGridHash, "no cascades leave the grid untouched")
	assert.Equal(t, state.ModeBase, result.NextState.Mode, "state unchanged")
	assert.Zero(t, result.NextState.FreeSpinsRemaining)
}

func TestRunWinningSpinAccounting(t *testing.T) {
	p := config.Standard()
	// Disable multipliers so cascade totals flow through unchanged.
	p.RandomMultiplier.TriggerChance = 0
	p.CascadeRandomMultiplier.TriggerChance = 0
	st := state.New(uuid.New())

	result := findSpin(t, p, st, 1.00, "winning", func(r *SpinResult) bool {
		return len(r.CascadeSteps) > 0 && r.ScatterPayout == 0 && !r.FreeSpinInfo.Trigger.Triggered
	})

	assert.Positive(t, result.TotalWin)
	assert.InDelta(t, result.CascadeTotal, result.BaseWin, 1e-9)
	assert.InDelta(t, result.CascadeTotal, result.TotalWin, 0.005, "no multipliers, no scatters: total is the cascade sum")

	last := result.CascadeSteps[len(result.CascadeSteps)-1]
	assert.InDelta(t, last.RunningTotal, result.CascadeTotal, 1e-9)
	assert.Equal(t, last.GridAfterHash, result.FinalGridHash)
	assert.Equal(t, result.CascadeSteps[0].GridBeforeHash, result.InitialGridHash)
}

func TestRunScatterTriggerOnInitial(t *testing.T) {
	p := config.Standard()
	p.ScatterChance = 1 // every cell scatters: guaranteed initial trigger
	st := state.New(uuid.New())

	result, err := Run(p, st, 1.00, "all-scatter-seed")
	require.NoError(t, err)

	assert.True(t, result.FreeSpinInfo.Trigger.Triggered)
	assert.True(t, result.FreeSpinInfo.Trigger.OnInitial)
	assert.Positive(t, result.ScatterPayout)
	assert.Equal(t, state.ModeFreeSpins, result.NextState.Mode)
	assert.Equal(t, p.FreeSpins.ScatterFourPlus, result.NextState.FreeSpinsRemaining)
	assert.Equal(t, 1, result.NextState.AccumulatedMultiplier)
	assert.Contains(t, result.Features, "free_spins_triggered")
}

func TestRunScatterPayoutUnmultiplied(t *testing.T) {
	p := config.Standard()
	p.ScatterChance = 1
	// Force multipliers on: the scatter payout must still be added after
	// multiplication, unmultiplied.
	p.RandomMultiplier.TriggerChance = 1
	p.CascadeRandomMultiplier.TriggerChance = 1
	st := state.New(uuid.New())

	result, err := Run(p, st, 1.00, "scatter-mult-seed")
	require.NoError(t, err)

	// A full-scatter grid has no clusters, so cascade total is zero and the
	// win gate keeps multipliers off; total is exactly the scatter payout.
	assert.Zero(t, result.CascadeTotal)
	assert.Empty(t, result.MultiplierEvents)
	assert.InDelta(t, result.ScatterPayout, result.TotalWin, 1e-9)
}

func TestRunFreeSpinAccounting(t *testing.T) {
	p := config.Standard()
	p.ScatterChance = 0
	p.FreeSpinScatterChance = 0 // no retriggers
	p.RandomMultiplier.TriggerChance = 0
	p.CascadeRandomMultiplier.TriggerChance = 0

	st := state.New(uuid.New())
	st.Mode = state.ModeFreeSpins
	st.FreeSpinsRemaining = 3
	st.AccumulatedMultiplier = 2

	result := findSpin(t, p, st, 1.00, "freespin", func(r *SpinResult) bool {
		return len(r.CascadeSteps) > 0
	})

	// Cascade wins carry the accumulated multiplier already.
	assert.InDelta(t, result.BaseWin*2, result.CascadeTotal, 1e-9)
	assert.Equal(t, 2, result.FreeSpinInfo.AccumulatedMultiplier)
	assert.Equal(t, 2, result.NextState.FreeSpinsRemaining, "3 remaining spends one")
	assert.Equal(t, 2, result.NextState.AccumulatedMultiplier, "no multiplier events leave it unchanged")
	assert.Equal(t, state.ModeFreeSpins, result.NextState.Mode)
}

func TestRunLastFreeSpinReturnsToBase(t *testing.T) {
	p := config.Standard()
	p.ScatterChance = 0
	p.FreeSpinScatterChance = 0
	p.RandomMultiplier.TriggerChance = 0
	p.CascadeRandomMultiplier.TriggerChance = 0

	st := state.New(uuid.New())
	st.Mode = state.ModeFreeSpins
	st.FreeSpinsRemaining = 1
	st.AccumulatedMultiplier = 7

	result, err := Run(p, st, 1.00, "last-free-spin")
	require.NoError(t, err)

	assert.Equal(t, state.ModeBase, result.NextState.Mode)
	assert.Zero(t, result.NextState.FreeSpinsRemaining)
	assert.Equal(t, 1, result.NextState.AccumulatedMultiplier, "multiplier resets on exit")
}

func TestRunMaxWinCap(t *testing.T) {
	p := config.Standard()
	p.MaxWinMultiplier = 0.01 // any win hits the cap
	p.RandomMultiplier.TriggerChance = 0
	p.CascadeRandomMultiplier.TriggerChance = 0
	st := state.New(uuid.New())

	result := findSpin(t, p, st, 1.00, "capped", func(r *SpinResult) bool {
		return r.CascadeTotal > 0.01
	})

	assert.Equal(t, 0.01, result.TotalWin, "total win must truncate to bet × max multiplier")
}

func TestRunSeedCommitmentPublished(t *testing.T) {
	p := config.Standard()
	st := state.New(uuid.New())

	result, err := Run(p, st, 1.00, "commitment-seed")
	require.NoError(t, err)

	assert.Equal(t, "commitment-seed", result.RNGSeed)
	assert.Len(t, result.SeedCommitment, 64)
	assert.NotEqual(t, result.RNGSeed, result.SeedCommitment)
}

func TestRunRejectsInvalidState(t *testing.T) {
	p := config.Standard()
	st := state.New(uuid.New())
	st.Mode = state.ModeFreeSpins // remaining=0: incoherent

	_, err := Run(p, st, 1.00, "bad-state")
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestApplyMultipliers(t *testing.T) {
	tests := []struct {
		name         string
		isFreeSpin   bool
		accum        int
		cascadeTotal float64
		mTotal       int
		wantBase     float64
		wantFinal    float64
	}{
		{
			// Base win 3.00 with M_total 3 pays 9.00.
			name: "base with multiplier", accum: 1,
			cascadeTotal: 3.00, mTotal: 3, wantBase: 3.00, wantFinal: 9.00,
		},
		{
			name: "base without multiplier", accum: 1,
			cascadeTotal: 3.00, mTotal: 0, wantBase: 3.00, wantFinal: 3.00,
		},
		{
			// Free spin at accum 2 with M_total 5: base is reconstructed and
			// (2+5) applied once.
			name: "free spin retrigger math", isFreeSpin: true, accum: 2,
			cascadeTotal: 4.00, mTotal: 5, wantBase: 2.00, wantFinal: 14.00,
		},
		{
			name: "free spin no events", isFreeSpin: true, accum: 3,
			cascadeTotal: 6.00, mTotal: 0, wantBase: 2.00, wantFinal: 6.00,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, final := applyMultipliers(tt.isFreeSpin, tt.accum, tt.cascadeTotal, tt.mTotal)
			assert.InDelta(t, tt.wantBase, base, 1e-9)
			assert.InDelta(t, tt.wantFinal, final, 1e-9)
		})
	}
}

func TestNextState(t *testing.T) {
	p := config.Standard()

	t.Run("base trigger enters free spins", func(t *testing.T) {
		st := state.New(uuid.New())
		trigger := freespins.Trigger{Triggered: true, OnInitial: true, SpinsAwarded: 15}
		next := nextState(p, st, trigger, 4)

		assert.Equal(t, state.ModeFreeSpins, next.Mode)
		assert.Equal(t, 15, next.FreeSpinsRemaining)
		assert.Equal(t, 1, next.AccumulatedMultiplier, "multipliers never pre-seed the feature")
	})

	t.Run("base no trigger unchanged", func(t *testing.T) {
		st := state.New(uuid.New())
		next := nextState(p, st, freespins.Trigger{}, 0)
		assert.Equal(t, state.ModeBase, next.Mode)
	})

	t.Run("free spin retrigger extends and accumulates", func(t *testing.T) {
		st := state.New(uuid.New())
		st.Mode = state.ModeFreeSpins
		st.FreeSpinsRemaining = 3
		st.AccumulatedMultiplier = 2
		trigger := freespins.Trigger{Retriggered: true, SpinsAwarded: 5}

		next := nextState(p, st, trigger, 5)
		assert.Equal(t, 7, next.FreeSpinsRemaining, "max(0,3-1)+5")
		assert.Equal(t, 7, next.AccumulatedMultiplier, "2+5")
		assert.Equal(t, state.ModeFreeSpins, next.Mode)
	})

	t.Run("last free spin with retrigger stays in feature", func(t *testing.T) {
		st := state.New(uuid.New())
		st.Mode = state.ModeFreeSpins
		st.FreeSpinsRemaining = 1
		st.AccumulatedMultiplier = 4
		trigger := freespins.Trigger{Retriggered: true, SpinsAwarded: 5}

		next := nextState(p, st, trigger, 0)
		assert.Equal(t, state.ModeFreeSpins, next.Mode)
		assert.Equal(t, 5, next.FreeSpinsRemaining)
		assert.Equal(t, 4, next.AccumulatedMultiplier)
	})
}
