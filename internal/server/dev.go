package server

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"gemrush/internal/wallet"
)

// seedDevPlayers creates a couple of funded accounts for local play when
// persistence is disabled. The IDs are fixed so client tooling can hardcode
// them.
func seedDevPlayers(ledger *wallet.MemoryLedger) {
	players := []wallet.Player{
		{
			ID:       uuid.MustParse("00000000-0000-0000-0000-000000000001"),
			Username: "dev_one",
			Credits:  1000,
			Active:   true,
		},
		{
			ID:       uuid.MustParse("00000000-0000-0000-0000-000000000002"),
			Username: "dev_two",
			Credits:  1000,
			Active:   true,
		},
	}
	for _, p := range players {
		ledger.AddPlayer(p)
		log.Info().Str("player_id", p.ID.String()).Str("username", p.Username).Msg("seeded dev player")
	}
}
