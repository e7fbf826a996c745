package symbols

import (
	"testing"
)

func TestTierSaturation(t *testing.T) {
	tests := []struct {
		size int
		want int
	}{
		{size: 0, want: 0},
		{size: 7, want: 0},
		{size: 8, want: 8},
		{size: 9, want: 8},
		{size: 10, want: 10},
		{size: 11, want: 10},
		{size: 12, want: 12},
		{size: 30, want: 12},
	}
	for _, tt := range tests {
		if got := Tier(tt.size); got != tt.want {
			t.Errorf("Tier(%d) = %d, want %d", tt.size, got, tt.want)
		}
	}
}

func TestScatterTierSaturation(t *testing.T) {
	tests := []struct {
		count int
		want  int
	}{
		{count: 0, want: 0},
		{count: 3, want: 0},
		{count: 4, want: 4},
		{count: 5, want: 5},
		{count: 6, want: 6},
		{count: 9, want: 6},
	}
	for _, tt := range tests {
		if got := ScatterTier(tt.count); got != tt.want {
			t.Errorf("ScatterTier(%d) = %d, want %d", tt.count, got, tt.want)
		}
	}
}

func TestOrderedIsStableAndComplete(t *testing.T) {
	a := Ordered()
	b := Ordered()

	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("order differs at %d: %s vs %s", i, a[i], b[i])
		}
	}

	for _, s := range a {
		if IsScatter(s) {
			t.Errorf("scatter %s must not be in the weighted draw set", s)
		}
		if _, ok := DefaultPaytable[s]; !ok {
			t.Errorf("symbol %s missing from paytable", s)
		}
		if DefaultWeights[s] <= 0 {
			t.Errorf("symbol %s has no base weight", s)
		}
		if DefaultFreeSpinWeights[s] <= 0 {
			t.Errorf("symbol %s has no free-spin weight", s)
		}
	}
}

func TestPaytableTiersComplete(t *testing.T) {
	for sym, tiers := range DefaultPaytable {
		for _, tier := range []int{8, 10, 12} {
			if _, ok := tiers[tier]; !ok {
				t.Errorf("symbol %s missing tier %d", sym, tier)
			}
		}
		if tiers[8] > tiers[10] || tiers[10] > tiers[12] {
			t.Errorf("symbol %s tiers not monotonic: %v", sym, tiers)
		}
	}
}

func TestIsPaying(t *testing.T) {
	if IsPaying(SymbolScatter) {
		t.Error("scatter must not be a paying symbol")
	}
	if IsPaying("") {
		t.Error("empty cell must not be a paying symbol")
	}
	if !IsPaying("ruby") {
		t.Error("ruby should pay")
	}
}
