// Package cascade runs the remove → drop → refill loop over a grid.
//
// The processor is a pure state machine: it never triggers free spins or
// random multipliers. Those belong to the pipeline orchestrator.
package cascade

import (
	"gemrush/internal/config"
	"gemrush/internal/game/cluster"
	"gemrush/internal/game/gen"
	"gemrush/internal/game/grid"
	"gemrush/internal/game/rng"
	"gemrush/internal/game/symbols"
	"gemrush/internal/game/wins"
)

// Move records one surviving symbol dropping within its column.
type Move struct {
	Col     int `json:"col"`
	FromRow int `json:"from_row"`
	ToRow   int `json:"to_row"`
}

// Refill records one freshly drawn symbol entering the grid.
type Refill struct {
	Cell   grid.Cell      `json:"cell"`
	Symbol symbols.Symbol `json:"symbol"`
}

// Step is the immutable record of one cascade iteration. Grid snapshots are
// paired with SHA-256 hashes over their canonical serialization for audit.
type Step struct {
	Index            int               `json:"index"`
	Seed             string            `json:"seed"`
	GridBefore       grid.Grid         `json:"grid_before"`
	GridBeforeHash   string            `json:"grid_before_hash"`
	Clusters         []cluster.Cluster `json:"cluster_list"`
	Wins             []wins.ClusterWin `json:"wins"`
	GridAfterRemoval grid.Grid         `json:"grid_after_removal"`
	DropPlan         []Move            `json:"drop_plan"`
	NewSymbols       []Refill          `json:"new_symbols"`
	GridAfter        grid.Grid         `json:"grid_after"`
	GridAfterHash    string            `json:"grid_after_hash"`
	CascadeWin       float64           `json:"cascade_win"`
	RunningTotal     float64           `json:"running_total"`
}

// Result is the outcome of a full cascade sequence.
type Result struct {
	Steps     []Step
	FinalGrid grid.Grid
	// Total is the summed cascade win, already multiplied by the
	// accumulated multiplier passed to Run.
	Total float64
}

// Run executes cascades until no cluster of minMatch cells remains, with a
// hard cap of MaxCascades steps. Each step's refill symbols come from a
// stream seeded by the step sub-seed, so the whole sequence replays from the
// root seed alone. accumMultiplier scales every step win; callers pass 1
// outside free spins.
func Run(
	p *config.MathProfile,
	initial grid.Grid,
	bet float64,
	accumMultiplier int,
	rootSeed string,
	prm gen.Params,
	rec *rng.Recorder,
) Result {
	current := initial.Clone()
	steps := make([]Step, 0, 2)
	runningTotal := 0.0

	for stepNo := 1; stepNo <= p.MaxCascades; stepNo++ {
		clusters := cluster.Detect(current, p.MinMatch)
		if len(clusters) == 0 {
			break
		}

		subSeed := rng.SubSeed(rootSeed, stepNo)
		stream := rng.NewStream(subSeed).WithAudit(rec, "cascade")

		step := Step{
			Index:          stepNo,
			Seed:           subSeed,
			GridBefore:     current.Clone(),
			GridBeforeHash: current.Hash(),
			Clusters:       clusters,
		}

		details, stepWin := wins.ForClusters(p, clusters, bet)
		step.Wins = details
		step.CascadeWin = stepWin * float64(accumMultiplier)
		runningTotal += step.CascadeWin
		step.RunningTotal = runningTotal

		removeClusters(current, clusters)
		step.GridAfterRemoval = current.Clone()

		step.DropPlan = applyGravity(current)
		step.NewSymbols = refill(current, stream, prm)

		step.GridAfter = current.Clone()
		step.GridAfterHash = current.Hash()

		steps = append(steps, step)
	}

	return Result{Steps: steps, FinalGrid: current, Total: runningTotal}
}

func removeClusters(g grid.Grid, clusters []cluster.Cluster) {
	for _, cl := range clusters {
		for _, cell := range cl.Cells {
			g.Set(cell.Col, cell.Row, grid.Empty)
		}
	}
}

// applyGravity compacts each column downward, preserving survivor order, and
// returns the moves performed. Emptied cells bubble to the top rows.
func applyGravity(g grid.Grid) []Move {
	moves := make([]Move, 0, 8)
	for c := range g {
		write := len(g[c]) - 1
		for r := len(g[c]) - 1; r >= 0; r-- {
			if g[c][r] == grid.Empty {
				continue
			}
			if r != write {
				g[c][write] = g[c][r]
				g[c][r] = grid.Empty
				moves = append(moves, Move{Col: c, FromRow: r, ToRow: write})
			}
			write--
		}
	}
	return moves
}

// refill fills the emptied top rows column by column, top to bottom, drawing
// from the step stream with the same distribution as the grid generator.
func refill(g grid.Grid, stream *rng.Stream, prm gen.Params) []Refill {
	fills := make([]Refill, 0, 8)
	for c := range g {
		emptyCount := 0
		for r := range g[c] {
			if g[c][r] == grid.Empty {
				emptyCount++
			}
		}
		if emptyCount == 0 {
			continue
		}
		fresh := gen.Column(stream, prm, emptyCount)
		for i, sym := range fresh {
			g.Set(c, i, sym)
			fills = append(fills, Refill{Cell: grid.Cell{Col: c, Row: i}, Symbol: sym})
		}
	}
	return fills
}
