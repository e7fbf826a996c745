// Package multiplier implements the random multiplier phases evaluated after
// the cascade loop. Values drawn in one spin are additive, never
// multiplicative: M_total is their plain sum.
package multiplier

import (
	"sort"

	"gemrush/internal/config"
	"gemrush/internal/game/grid"
	"gemrush/internal/game/rng"
)

// Event kinds.
const (
	KindBaseRandom    = "base_random"
	KindCascadeRandom = "cascade_random"
)

// Event records one multiplier award with its presentation metadata. The
// character tag drives client animation only and has no payout effect.
type Event struct {
	Kind         string      `json:"kind"`
	Values       []int       `json:"values"`
	Positions    []grid.Cell `json:"positions"`
	CharacterTag string      `json:"character_tag"`
}

// Outcome is the full multiplier phase result for one spin.
type Outcome struct {
	Events []Event `json:"events"`
	// Total is M_total: the sum of every value drawn this spin.
	Total int `json:"total"`
}

// Evaluate runs both phases on the completed cascade sequence. totalWin is
// the pre-multiplier win; the minimum-win gate is bet-relative. The phase
// stream derives from the root seed so replays reproduce every draw.
func Evaluate(
	p *config.MathProfile,
	cascadeCount int,
	totalWin, bet float64,
	rootSeed string,
	rec *rng.Recorder,
) Outcome {
	stream := rng.NewStream(rootSeed + "multiplier").WithAudit(rec, "multiplier")

	out := Outcome{}
	minWin := p.RandomMultiplier.MinWinRequired * bet

	// Cascade-random phase: requires at least one cascade plus the win gate.
	cm := p.CascadeRandomMultiplier
	if cascadeCount >= 1 && totalWin >= minWin && stream.Float64() < cm.TriggerChance {
		n := cm.MinMultipliers + stream.IntN(cm.MaxMultipliers-cm.MinMultipliers+1)
		ev := Event{
			Kind:         KindCascadeRandom,
			Values:       drawValues(stream, p.RandomMultiplier.Table, n),
			Positions:    drawPositions(stream, n),
			CharacterTag: drawCharacter(stream, p.RandomMultiplier.CharacterWeights),
		}
		out.Events = append(out.Events, ev)
	}

	// Base-random phase triggers independently.
	if totalWin >= minWin && stream.Float64() < p.RandomMultiplier.TriggerChance {
		ev := Event{
			Kind:         KindBaseRandom,
			Values:       drawValues(stream, p.RandomMultiplier.Table, 1),
			Positions:    drawPositions(stream, 1),
			CharacterTag: drawCharacter(stream, p.RandomMultiplier.CharacterWeights),
		}
		out.Events = append(out.Events, ev)
	}

	for _, ev := range out.Events {
		for _, v := range ev.Values {
			out.Total += v
		}
	}
	return out
}

func drawValues(stream *rng.Stream, table config.MultiplierTable, n int) []int {
	weights := make([]int, len(table))
	for i, e := range table {
		weights[i] = e.Weight
	}
	values := make([]int, n)
	for i := range values {
		values[i] = table[stream.WeightedIndex(weights)].Value
	}
	return values
}

// drawPositions places n multipliers on unique random cells.
func drawPositions(stream *rng.Stream, n int) []grid.Cell {
	used := make(map[int]bool, n)
	cells := make([]grid.Cell, 0, n)
	for len(cells) < n {
		pos := stream.IntN(grid.Cols * grid.Rows)
		if used[pos] {
			continue
		}
		used[pos] = true
		cells = append(cells, grid.Cell{Col: pos / grid.Rows, Row: pos % grid.Rows})
	}
	return cells
}

// drawCharacter picks the presenting character by weighted chance.
func drawCharacter(stream *rng.Stream, weights map[string]float64) string {
	if len(weights) == 0 {
		return ""
	}
	// Stable iteration order for determinism.
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Strings(names)

	draw := stream.Float64()
	acc := 0.0
	for _, name := range names {
		acc += weights[name]
		if draw < acc {
			return name
		}
	}
	return names[len(names)-1]
}
