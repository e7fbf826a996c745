package multiplier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gemrush/internal/config"
	"gemrush/internal/game/grid"
	"gemrush/internal/game/rng"
)

// alwaysProfile forces both phases to trigger on every evaluation.
func alwaysProfile() *config.MathProfile {
	p := config.Standard()
	p.RandomMultiplier.TriggerChance = 1.0
	p.CascadeRandomMultiplier.TriggerChance = 1.0
	return p
}

// neverProfile disables both phases.
func neverProfile() *config.MathProfile {
	p := config.Standard()
	p.RandomMultiplier.TriggerChance = 0
	p.CascadeRandomMultiplier.TriggerChance = 0
	return p
}

func TestEvaluateDeterministic(t *testing.T) {
	p := alwaysProfile()
	a := Evaluate(p, 2, 5.00, 1.00, "mult-seed", nil)
	b := Evaluate(p, 2, 5.00, 1.00, "mult-seed", nil)
	require.Equal(t, a, b)
}

func TestEvaluateTotalIsSumOfValues(t *testing.T) {
	p := alwaysProfile()
	out := Evaluate(p, 3, 10.00, 1.00, "sum-seed", nil)

	require.NotEmpty(t, out.Events)
	sum := 0
	for _, ev := range out.Events {
		require.Equal(t, len(ev.Values), len(ev.Positions), "one position per value")
		for _, v := range ev.Values {
			assert.Positive(t, v)
			sum += v
		}
	}
	assert.Equal(t, sum, out.Total, "M_total must be the additive sum")
}

func TestEvaluateMinWinGate(t *testing.T) {
	p := alwaysProfile()

	tests := []struct {
		name     string
		totalWin float64
		bet      float64
		want     bool
	}{
		{name: "win below gate", totalWin: 0.05, bet: 1.00, want: false},
		{name: "win at gate", totalWin: p.RandomMultiplier.MinWinRequired, bet: 1.00, want: true},
		{name: "gate scales with bet", totalWin: 0.50, bet: 10.00, want: false},
		{name: "zero win", totalWin: 0, bet: 1.00, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Evaluate(p, 2, tt.totalWin, tt.bet, "gate-seed", nil)
			if tt.want {
				assert.NotEmpty(t, out.Events)
			} else {
				assert.Empty(t, out.Events)
				assert.Zero(t, out.Total)
			}
		})
	}
}

func TestEvaluateCascadePhaseNeedsCascades(t *testing.T) {
	p := alwaysProfile()
	out := Evaluate(p, 0, 5.00, 1.00, "no-cascade-seed", nil)

	for _, ev := range out.Events {
		assert.NotEqual(t, KindCascadeRandom, ev.Kind,
			"cascade phase must not fire without cascades")
	}
	// The base phase is still eligible.
	require.Len(t, out.Events, 1)
	assert.Equal(t, KindBaseRandom, out.Events[0].Kind)
}

func TestEvaluateDisabledProfileProducesNothing(t *testing.T) {
	out := Evaluate(neverProfile(), 3, 100.00, 1.00, "off-seed", nil)
	assert.Empty(t, out.Events)
	assert.Zero(t, out.Total)
}

func TestEvaluateCascadeEventValueCount(t *testing.T) {
	p := alwaysProfile()
	out := Evaluate(p, 2, 5.00, 1.00, "count-seed", nil)

	for _, ev := range out.Events {
		switch ev.Kind {
		case KindCascadeRandom:
			assert.GreaterOrEqual(t, len(ev.Values), p.CascadeRandomMultiplier.MinMultipliers)
			assert.LessOrEqual(t, len(ev.Values), p.CascadeRandomMultiplier.MaxMultipliers)
		case KindBaseRandom:
			assert.Len(t, ev.Values, 1)
		}
	}
}

func TestEvaluatePositionsAreUniqueAndOnGrid(t *testing.T) {
	p := alwaysProfile()
	p.CascadeRandomMultiplier.MinMultipliers = 4
	p.CascadeRandomMultiplier.MaxMultipliers = 4

	out := Evaluate(p, 2, 5.00, 1.00, "pos-seed", nil)
	for _, ev := range out.Events {
		seen := make(map[grid.Cell]bool)
		for _, cell := range ev.Positions {
			assert.False(t, seen[cell], "duplicate position %v", cell)
			seen[cell] = true
			assert.GreaterOrEqual(t, cell.Col, 0)
			assert.Less(t, cell.Col, grid.Cols)
			assert.GreaterOrEqual(t, cell.Row, 0)
			assert.Less(t, cell.Row, grid.Rows)
		}
	}
}

func TestEvaluateCharacterTagFromWeights(t *testing.T) {
	p := alwaysProfile()
	out := Evaluate(p, 2, 5.00, 1.00, "char-seed", nil)
	require.NotEmpty(t, out.Events)
	for _, ev := range out.Events {
		assert.Contains(t, p.RandomMultiplier.CharacterWeights, ev.CharacterTag)
	}
}

func TestEvaluateAuditEventsTagged(t *testing.T) {
	rec := rng.NewRecorder()
	Evaluate(alwaysProfile(), 2, 5.00, 1.00, "audit-seed", rec)

	events := rec.Events()
	require.NotEmpty(t, events)
	for _, ev := range events {
		assert.Equal(t, "multiplier", ev.Component)
	}
}
