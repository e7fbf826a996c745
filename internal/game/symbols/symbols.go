package symbols

// Symbol is an opaque tag for a grid cell.
type Symbol string

// Low-paying gem symbols.
const (
	SymbolRuby     Symbol = "ruby"
	SymbolEmerald  Symbol = "emerald"
	SymbolSapphire Symbol = "sapphire"
	SymbolTopaz    Symbol = "topaz"
	SymbolAmethyst Symbol = "amethyst"
)

// High-paying gem symbols.
const (
	SymbolMindGem  Symbol = "mind_gem"
	SymbolPowerGem Symbol = "power_gem"
	SymbolSoulGem  Symbol = "soul_gem"
	SymbolTimeGem  Symbol = "time_gem"
)

// SymbolScatter never participates in clusters; it is counted separately and
// drives the free spins feature.
const SymbolScatter Symbol = "scatter"

// Cluster payout tiers. Cluster sizes saturate at the highest tier.
const (
	TierSmall  = 8
	TierMedium = 10
	TierLarge  = 12
)

// PayoutTable maps a symbol to its credits-per-bet-unit for each cluster tier.
type PayoutTable map[Symbol]map[int]float64

// DefaultPaytable is the regulator-approved base paytable.
// Values are credits per bet unit (bet/20).
var DefaultPaytable = PayoutTable{
	SymbolRuby:     {TierSmall: 2, TierMedium: 5, TierLarge: 12},
	SymbolEmerald:  {TierSmall: 2.5, TierMedium: 6, TierLarge: 15},
	SymbolSapphire: {TierSmall: 3, TierMedium: 8, TierLarge: 20},
	SymbolTopaz:    {TierSmall: 4, TierMedium: 10, TierLarge: 24},
	SymbolAmethyst: {TierSmall: 5, TierMedium: 12, TierLarge: 30},
	SymbolMindGem:  {TierSmall: 10, TierMedium: 25, TierLarge: 50},
	SymbolPowerGem: {TierSmall: 15, TierMedium: 40, TierLarge: 100},
	SymbolSoulGem:  {TierSmall: 20, TierMedium: 50, TierLarge: 150},
	SymbolTimeGem:  {TierSmall: 25, TierMedium: 60, TierLarge: 200},
}

// DefaultScatterPaytable pays on total scatter count across the grid,
// keyed on 4, 5 and 6+ scatters. Credits per bet unit.
var DefaultScatterPaytable = map[int]float64{
	4: 60,
	5: 100,
	6: 2000,
}

// DefaultWeights is the base-game symbol distribution used by the grid
// generator and the cascade refill. Scatter is injected separately via
// the per-cell scatter chance.
var DefaultWeights = map[Symbol]int{
	SymbolRuby:     140,
	SymbolEmerald:  130,
	SymbolSapphire: 120,
	SymbolTopaz:    110,
	SymbolAmethyst: 100,
	SymbolMindGem:  60,
	SymbolPowerGem: 45,
	SymbolSoulGem:  30,
	SymbolTimeGem:  20,
}

// DefaultFreeSpinWeights shifts the distribution slightly toward high
// symbols during free spins.
var DefaultFreeSpinWeights = map[Symbol]int{
	SymbolRuby:     130,
	SymbolEmerald:  120,
	SymbolSapphire: 115,
	SymbolTopaz:    105,
	SymbolAmethyst: 100,
	SymbolMindGem:  70,
	SymbolPowerGem: 55,
	SymbolSoulGem:  40,
	SymbolTimeGem:  28,
}

// Ordered returns every paying symbol in a stable order. Weighted draws
// must iterate symbols deterministically for replay to reproduce grids.
func Ordered() []Symbol {
	return []Symbol{
		SymbolRuby, SymbolEmerald, SymbolSapphire, SymbolTopaz, SymbolAmethyst,
		SymbolMindGem, SymbolPowerGem, SymbolSoulGem, SymbolTimeGem,
	}
}

// IsScatter reports whether s is the scatter symbol.
func IsScatter(s Symbol) bool {
	return s == SymbolScatter
}

// IsPaying reports whether s participates in cluster payouts.
func IsPaying(s Symbol) bool {
	return s != SymbolScatter && s != ""
}

// Tier returns the payout tier for a cluster of the given size, or 0 when
// the cluster is below the minimum paying size.
func Tier(size int) int {
	switch {
	case size >= TierLarge:
		return TierLarge
	case size >= TierMedium:
		return TierMedium
	case size >= TierSmall:
		return TierSmall
	default:
		return 0
	}
}

// ScatterTier returns the scatter payout tier for the given scatter count,
// or 0 when below the minimum of 4.
func ScatterTier(count int) int {
	switch {
	case count >= 6:
		return 6
	case count == 5:
		return 5
	case count == 4:
		return 4
	default:
		return 0
	}
}
