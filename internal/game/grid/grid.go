package grid

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"gemrush/internal/game/symbols"
)

// Grid dimensions. Columns are the gravity axis; row 0 is the top.
const (
	Cols = 6
	Rows = 5
)

// Empty marks a removed cell between the removal and refill phases.
const Empty = ""

// Grid is a column-major symbol grid, indexed [col][row].
type Grid [][]string

// Cell addresses a single grid position.
type Cell struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

// New returns an empty Cols×Rows grid.
func New() Grid {
	g := make(Grid, Cols)
	for c := range g {
		g[c] = make([]string, Rows)
	}
	return g
}

// Clone returns a deep copy of the grid.
func (g Grid) Clone() Grid {
	clone := make(Grid, len(g))
	for c := range g {
		clone[c] = make([]string, len(g[c]))
		copy(clone[c], g[c])
	}
	return clone
}

// Get returns the symbol at (col, row).
func (g Grid) Get(col, row int) symbols.Symbol {
	return symbols.Symbol(g[col][row])
}

// Set writes the symbol at (col, row).
func (g Grid) Set(col, row int, s symbols.Symbol) {
	g[col][row] = string(s)
}

// CountScatters returns the number of scatter symbols on the grid.
func (g Grid) CountScatters() int {
	count := 0
	for c := range g {
		for r := range g[c] {
			if symbols.IsScatter(symbols.Symbol(g[c][r])) {
				count++
			}
		}
	}
	return count
}

// Validate checks the grid has the expected dimensions and no empty cells.
func (g Grid) Validate() error {
	if len(g) != Cols {
		return fmt.Errorf("grid has %d columns, want %d", len(g), Cols)
	}
	for c := range g {
		if len(g[c]) != Rows {
			return fmt.Errorf("column %d has %d rows, want %d", c, len(g[c]), Rows)
		}
		for r := range g[c] {
			if g[c][r] == Empty {
				return fmt.Errorf("empty cell at (%d,%d)", c, r)
			}
		}
	}
	return nil
}

// Canonical returns the canonical serialization of the grid: nested ordered
// JSON arrays [[col0_row0..col0_rowN],...] in UTF-8. This is the byte form
// that audit hashes commit to.
func (g Grid) Canonical() []byte {
	// encoding/json emits [][]string as ordered nested arrays with no
	// whitespace, which is exactly the canonical form.
	b, _ := json.Marshal([][]string(g))
	return b
}

// Hash returns the hex SHA-256 of the canonical serialization.
func (g Grid) Hash() string {
	sum := sha256.Sum256(g.Canonical())
	return hex.EncodeToString(sum[:])
}
