package spin

import "errors"

// Controller errors. Each maps to one wire-level error code; the server
// layer does the translation.
var (
	ErrInvalidBet         = errors.New("invalid bet")
	ErrUnknownPlayer      = errors.New("unknown player")
	ErrInactiveAccount    = errors.New("inactive account")
	ErrInsufficientFunds  = errors.New("insufficient credits")
	ErrConflict           = errors.New("state conflict")
	ErrLockTimeout        = errors.New("player lock timeout")
	ErrAlreadyInFreeSpins = errors.New("already in free spins")
	ErrSpinNotFound       = errors.New("spin not found")
	ErrResultPending      = errors.New("result not found for request")
)
