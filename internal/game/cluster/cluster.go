// Package cluster finds connected same-symbol groups on a grid.
package cluster

import (
	"gemrush/internal/game/grid"
	"gemrush/internal/game/symbols"
)

// Cluster is a maximal 4-connected set of equal, paying symbols.
type Cluster struct {
	Symbol symbols.Symbol `json:"symbol"`
	Cells  []grid.Cell    `json:"cells"`
}

// Size returns the number of cells in the cluster.
func (c Cluster) Size() int {
	return len(c.Cells)
}

// Detect returns every maximal 4-connected component of equal symbol with at
// least minMatch cells. Scatters and empty cells never join clusters.
// Components are discovered in column-major scan order and cells within a
// component in BFS order from the scan origin, so output order is
// deterministic for a given grid.
func Detect(g grid.Grid, minMatch int) []Cluster {
	cols := len(g)
	if cols == 0 {
		return nil
	}
	rows := len(g[0])
	n := cols * rows

	visited := make([]bool, n)
	queue := make([]int, 0, n)
	clusters := make([]Cluster, 0, 4)

	idx := func(c, r int) int { return c*rows + r }

	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			start := idx(c, r)
			if visited[start] {
				continue
			}
			sym := g.Get(c, r)
			if !symbols.IsPaying(sym) {
				continue
			}

			// BFS flood fill over 4-neighbours with the same symbol.
			queue = queue[:0]
			queue = append(queue, start)
			visited[start] = true
			cells := []grid.Cell{{Col: c, Row: r}}

			for head := 0; head < len(queue); head++ {
				cur := queue[head]
				cc, cr := cur/rows, cur%rows

				check := func(nc, nr int) {
					next := idx(nc, nr)
					if visited[next] || g.Get(nc, nr) != sym {
						return
					}
					visited[next] = true
					queue = append(queue, next)
					cells = append(cells, grid.Cell{Col: nc, Row: nr})
				}

				if cc > 0 {
					check(cc-1, cr)
				}
				if cc+1 < cols {
					check(cc+1, cr)
				}
				if cr > 0 {
					check(cc, cr-1)
				}
				if cr+1 < rows {
					check(cc, cr+1)
				}
			}

			if len(cells) >= minMatch {
				clusters = append(clusters, Cluster{Symbol: sym, Cells: cells})
			}
		}
	}

	return clusters
}
