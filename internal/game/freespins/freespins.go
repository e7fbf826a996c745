// Package freespins holds the scatter trigger and retrigger rules.
package freespins

import "gemrush/internal/config"

// TriggerScatters is the minimum scatter count that starts or extends the
// feature.
const TriggerScatters = 4

// Trigger is the outcome of evaluating scatters for one spin.
type Trigger struct {
	Triggered    bool `json:"triggered"`
	Retriggered  bool `json:"retriggered"`
	OnInitial    bool `json:"on_initial"`
	SpinsAwarded int  `json:"spins_awarded"`
}

// CheckBase evaluates a base-mode spin. Four or more scatters on the initial
// OR the final grid trigger free spins; initial takes precedence when both
// qualify.
func CheckBase(p *config.MathProfile, initialScatters, finalScatters int) Trigger {
	if initialScatters >= TriggerScatters {
		return Trigger{Triggered: true, OnInitial: true, SpinsAwarded: p.FreeSpins.ScatterFourPlus}
	}
	if finalScatters >= TriggerScatters {
		return Trigger{Triggered: true, SpinsAwarded: p.FreeSpins.ScatterFourPlus}
	}
	return Trigger{}
}

// CheckRetrigger evaluates a free-spin. Only the final grid counts; the
// accumulated multiplier is preserved across retriggers.
func CheckRetrigger(p *config.MathProfile, finalScatters int) Trigger {
	if finalScatters >= TriggerScatters {
		return Trigger{Retriggered: true, SpinsAwarded: p.FreeSpins.RetriggerSpins}
	}
	return Trigger{}
}
