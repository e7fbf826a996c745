// Package gen produces populated grids and refill symbols from a seeded
// stream. The same distribution feeds the initial grid and every cascade
// refill, so both share one Params value per spin.
package gen

import (
	"gemrush/internal/config"
	"gemrush/internal/game/grid"
	"gemrush/internal/game/rng"
	"gemrush/internal/game/symbols"
)

// Params is the symbol distribution for one game mode. Symbol order is fixed
// so weighted draws are reproducible across replays.
type Params struct {
	Symbols       []symbols.Symbol
	Weights       []int
	ScatterChance float64
}

// ParamsFor resolves the distribution for the given mode from a profile.
func ParamsFor(p *config.MathProfile, freeSpins bool) Params {
	weights := p.SymbolWeights
	chance := p.ScatterChance
	if freeSpins {
		weights = p.FreeSpinWeights
		chance = p.FreeSpinScatterChance
	}

	ordered := symbols.Ordered()
	out := Params{
		Symbols:       ordered,
		Weights:       make([]int, len(ordered)),
		ScatterChance: chance,
	}
	for i, s := range ordered {
		out.Weights[i] = weights[s]
	}
	return out
}

// Symbol draws one cell symbol: a weighted non-scatter draw, replaced by a
// scatter with the per-cell scatter chance. The scatter roll happens first so
// each cell consumes a fixed number of draws.
func Symbol(st *rng.Stream, prm Params) symbols.Symbol {
	scatter := st.Float64() < prm.ScatterChance
	idx := st.WeightedIndex(prm.Weights)
	if scatter {
		return symbols.SymbolScatter
	}
	return prm.Symbols[idx]
}

// Grid fills a complete column-major grid from the stream.
func Grid(st *rng.Stream, prm Params) grid.Grid {
	g := grid.New()
	for c := 0; c < grid.Cols; c++ {
		for r := 0; r < grid.Rows; r++ {
			g.Set(c, r, Symbol(st, prm))
		}
	}
	return g
}

// Column draws n refill symbols for one column, top to bottom.
func Column(st *rng.Stream, prm Params, n int) []symbols.Symbol {
	out := make([]symbols.Symbol, n)
	for i := range out {
		out[i] = Symbol(st, prm)
	}
	return out
}
