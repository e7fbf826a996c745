package config

import (
	"fmt"
	"os"
	"strconv"
	"sync/atomic"

	_ "github.com/joho/godotenv/autoload"

	"gemrush/internal/game/symbols"
)

// Profile names selectable at construction. The pipeline code is identical
// for both; only weights and chances differ.
const (
	ProfileStandard = "standard"
	ProfileBoosted  = "boosted"
)

// MathProfile bundles every tunable constant the spin pipeline reads. It is
// read-only at steady state; reloads go through Holder.Swap.
type MathProfile struct {
	Name string `yaml:"name"`

	Cols     int `yaml:"cols"`
	Rows     int `yaml:"rows"`
	MinMatch int `yaml:"min_match"`

	RTPTarget        float64 `yaml:"rtp_target"`
	MaxWinMultiplier float64 `yaml:"max_win_multiplier"`
	MaxCascades      int     `yaml:"max_cascades"`

	SymbolWeights         map[symbols.Symbol]int `yaml:"symbol_weights"`
	FreeSpinWeights       map[symbols.Symbol]int `yaml:"free_spin_weights"`
	ScatterChance         float64                `yaml:"scatter_chance"`
	FreeSpinScatterChance float64                `yaml:"free_spin_scatter_chance"`

	Paytable        symbols.PayoutTable `yaml:"paytable"`
	ScatterPaytable map[int]float64     `yaml:"scatter_paytable"`

	FreeSpins               FreeSpinConfig          `yaml:"free_spins"`
	RandomMultiplier        RandomMultiplierConfig  `yaml:"random_multiplier"`
	CascadeRandomMultiplier CascadeMultiplierConfig `yaml:"cascade_random_multiplier"`
}

// FreeSpinConfig controls the free spins feature.
type FreeSpinConfig struct {
	ScatterFourPlus int     `yaml:"scatter_4_plus"`
	RetriggerSpins  int     `yaml:"retrigger_spins"`
	BuyFeatureCost  float64 `yaml:"buy_feature_cost"` // multiplied by bet
	BuyFeatureSpins int     `yaml:"buy_feature_spins"`
}

// RandomMultiplierConfig controls the base-random multiplier phase.
type RandomMultiplierConfig struct {
	TriggerChance    float64            `yaml:"trigger_chance"`
	MinWinRequired   float64            `yaml:"min_win_required"`
	Table            MultiplierTable    `yaml:"weighted_table"`
	CharacterWeights map[string]float64 `yaml:"character_weights"`
}

// CascadeMultiplierConfig controls the cascade-random multiplier phase.
type CascadeMultiplierConfig struct {
	TriggerChance  float64 `yaml:"trigger_chance"`
	MinMultipliers int     `yaml:"min_multipliers"`
	MaxMultipliers int     `yaml:"max_multipliers"`
}

// Standard returns the production math profile.
func Standard() *MathProfile {
	return &MathProfile{
		Name:     ProfileStandard,
		Cols:     6,
		Rows:     5,
		MinMatch: 8,

		RTPTarget:        0.965,
		MaxWinMultiplier: 5000,
		MaxCascades:      20,

		SymbolWeights:         symbols.DefaultWeights,
		FreeSpinWeights:       symbols.DefaultFreeSpinWeights,
		ScatterChance:         0.025,
		FreeSpinScatterChance: 0.02,

		Paytable:        symbols.DefaultPaytable,
		ScatterPaytable: symbols.DefaultScatterPaytable,

		FreeSpins: FreeSpinConfig{
			ScatterFourPlus: 15,
			RetriggerSpins:  5,
			BuyFeatureCost:  100,
			BuyFeatureSpins: 15,
		},
		RandomMultiplier: RandomMultiplierConfig{
			TriggerChance:  0.12,
			MinWinRequired: 0.10,
			Table: MultiplierTable{
				{Value: 2, Weight: 40},
				{Value: 3, Weight: 25},
				{Value: 5, Weight: 18},
				{Value: 10, Weight: 10},
				{Value: 25, Weight: 5},
				{Value: 50, Weight: 2},
			},
			CharacterWeights: map[string]float64{"aria": 0.8, "nox": 0.2},
		},
		CascadeRandomMultiplier: CascadeMultiplierConfig{
			TriggerChance:  0.18,
			MinMultipliers: 1,
			MaxMultipliers: 4,
		},
	}
}

// Boosted returns the high-volatility promotional profile. Same algorithm,
// hotter weights and chances.
func Boosted() *MathProfile {
	p := Standard()
	p.Name = ProfileBoosted
	p.ScatterChance = 0.04
	p.FreeSpinScatterChance = 0.03
	p.RandomMultiplier.TriggerChance = 0.2
	p.CascadeRandomMultiplier.TriggerChance = 0.3
	return p
}

// ByName resolves a profile name, defaulting to standard.
func ByName(name string) (*MathProfile, error) {
	switch name {
	case "", ProfileStandard:
		return Standard(), nil
	case ProfileBoosted:
		return Boosted(), nil
	default:
		return nil, fmt.Errorf("unknown math profile %q", name)
	}
}

// Validate rejects profiles that would break pipeline invariants.
func (p *MathProfile) Validate() error {
	if p.Cols <= 0 || p.Rows <= 0 {
		return fmt.Errorf("invalid grid dimensions %dx%d", p.Cols, p.Rows)
	}
	if p.MinMatch < 2 {
		return fmt.Errorf("min_match %d too small", p.MinMatch)
	}
	if p.MaxWinMultiplier <= 0 {
		return fmt.Errorf("max_win_multiplier must be positive")
	}
	if p.MaxCascades <= 0 {
		return fmt.Errorf("max_cascades must be positive")
	}
	if p.ScatterChance < 0 || p.ScatterChance >= 1 {
		return fmt.Errorf("scatter_chance %f out of range", p.ScatterChance)
	}
	if len(p.SymbolWeights) == 0 {
		return fmt.Errorf("symbol_weights empty")
	}
	if cm := p.CascadeRandomMultiplier; cm.MinMultipliers < 1 || cm.MaxMultipliers < cm.MinMultipliers {
		return fmt.Errorf("invalid cascade multiplier bounds [%d,%d]", cm.MinMultipliers, cm.MaxMultipliers)
	}
	if len(p.RandomMultiplier.Table) == 0 {
		return fmt.Errorf("multiplier table empty")
	}
	return nil
}

// Holder publishes the active profile with atomic swap semantics so reloads
// never tear a spin in progress.
type Holder struct {
	p atomic.Pointer[MathProfile]
}

// NewHolder returns a holder seeded with the given profile.
func NewHolder(p *MathProfile) *Holder {
	h := &Holder{}
	h.p.Store(p)
	return h
}

// Current returns the active profile.
func (h *Holder) Current() *MathProfile {
	return h.p.Load()
}

// Swap atomically replaces the active profile after validating it.
func (h *Holder) Swap(p *MathProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	h.p.Store(p)
	return nil
}

// Server holds the process-level settings read from the environment.
type Server struct {
	Port            string
	Profile         string
	SkipPersistence bool // dev only: in-memory store and ledger
}

// FromEnv loads server settings, with godotenv autoload picking up .env.
func FromEnv() Server {
	return Server{
		Port:            getEnv("GEMRUSH_PORT", "8080"),
		Profile:         getEnv("GEMRUSH_PROFILE", ProfileStandard),
		SkipPersistence: getEnvAsBool("SKIP_PERSISTENCE", false),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
