package state

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Mode is the per-player game mode.
type Mode string

const (
	ModeBase      Mode = "base"
	ModeFreeSpins Mode = "free_spins"
)

// Store errors.
var (
	ErrNotFound = errors.New("player state not found")
	// ErrConflict signals a lost compare-and-swap on version; the caller
	// must re-read and retry or abort.
	ErrConflict = errors.New("player state version conflict")
)

// PlayerState is the per-player game-state machine. It is created on first
// spin and never deleted; transitions are monotonic with Version.
type PlayerState struct {
	PlayerID              uuid.UUID  `json:"player_id"`
	Mode                  Mode       `json:"mode"`
	FreeSpinsRemaining    int        `json:"free_spins_remaining"`
	AccumulatedMultiplier int        `json:"accumulated_multiplier"`
	LastSpinID            *uuid.UUID `json:"last_spin_id,omitempty"`
	LastSeed              string     `json:"last_seed,omitempty"`
	LastGridHash          string     `json:"last_grid_hash,omitempty"`
	Version               int64      `json:"version"`
}

// New returns the first-spin default state: base mode, no free spins,
// multiplier 1.
func New(playerID uuid.UUID) *PlayerState {
	return &PlayerState{
		PlayerID:              playerID,
		Mode:                  ModeBase,
		FreeSpinsRemaining:    0,
		AccumulatedMultiplier: 1,
		Version:               0,
	}
}

// Validate enforces the mode coherence invariants.
func (s *PlayerState) Validate() error {
	switch s.Mode {
	case ModeBase:
		if s.FreeSpinsRemaining != 0 || s.AccumulatedMultiplier != 1 {
			return fmt.Errorf("base mode with remaining=%d accumulated=%d",
				s.FreeSpinsRemaining, s.AccumulatedMultiplier)
		}
	case ModeFreeSpins:
		if s.FreeSpinsRemaining < 1 {
			return fmt.Errorf("free_spins mode with remaining=%d", s.FreeSpinsRemaining)
		}
		if s.AccumulatedMultiplier < 1 {
			return fmt.Errorf("free_spins mode with accumulated=%d", s.AccumulatedMultiplier)
		}
	default:
		return fmt.Errorf("unknown mode %q", s.Mode)
	}
	return nil
}

// Clone returns a copy safe to mutate.
func (s *PlayerState) Clone() *PlayerState {
	clone := *s
	if s.LastSpinID != nil {
		id := *s.LastSpinID
		clone.LastSpinID = &id
	}
	return &clone
}
