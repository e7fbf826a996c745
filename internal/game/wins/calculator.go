// Package wins maps clusters and scatter counts to credit payouts.
package wins

import (
	"math"

	"gemrush/internal/config"
	"gemrush/internal/game/cluster"
	"gemrush/internal/game/symbols"
)

// BetUnits is the divisor converting a bet into the paytable's bet unit.
const BetUnits = 20

// ClusterWin is the payout detail for one cluster.
type ClusterWin struct {
	Symbol    symbols.Symbol `json:"symbol"`
	Size      int            `json:"size"`
	Tier      int            `json:"tier"`
	Payout    float64        `json:"payout"`     // paytable credits per bet unit
	WinAmount float64        `json:"win_amount"` // credits before multipliers
}

// ForCluster returns the payout for a single cluster at the given bet.
// Cluster sizes saturate: below 10 pays the 8-tier, below 12 the 10-tier,
// everything else the 12-tier.
func ForCluster(p *config.MathProfile, cl cluster.Cluster, bet float64) ClusterWin {
	tier := symbols.Tier(cl.Size())
	win := ClusterWin{Symbol: cl.Symbol, Size: cl.Size(), Tier: tier}
	if tier == 0 {
		return win
	}
	win.Payout = p.Paytable[cl.Symbol][tier]
	win.WinAmount = bet / BetUnits * win.Payout
	return win
}

// ForClusters sums payouts over a cluster list.
func ForClusters(p *config.MathProfile, clusters []cluster.Cluster, bet float64) ([]ClusterWin, float64) {
	details := make([]ClusterWin, 0, len(clusters))
	total := 0.0
	for _, cl := range clusters {
		w := ForCluster(p, cl, bet)
		details = append(details, w)
		total += w.WinAmount
	}
	return details, total
}

// ForScatters returns the scatter payout for the given scatter count, zero
// below 4 scatters.
func ForScatters(p *config.MathProfile, count int, bet float64) float64 {
	tier := symbols.ScatterTier(count)
	if tier == 0 {
		return 0
	}
	return bet / BetUnits * p.ScatterPaytable[tier]
}

// ApplyMaxWinCap truncates a total win to bet × MaxWinMultiplier.
func ApplyMaxWinCap(p *config.MathProfile, total, bet float64) float64 {
	cap := bet * p.MaxWinMultiplier
	if total > cap {
		return cap
	}
	return total
}

// Round2 rounds credits to 2 decimal places. The cap is applied before
// rounding, never after.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
