package server

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func (s *FiberServer) RegisterFiberRoutes() {
	s.App.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Accept,Authorization,Content-Type",
		AllowCredentials: false, // credentials require explicit origins
		MaxAge:           300,
	}))

	s.App.Get("/health", s.healthHandler)

	api := s.App.Group("/api/v1")

	api.Post("/spin", s.spinHandler)
	api.Get("/spins/:spinId/replay", s.replayHandler)
	api.Get("/spins/pending/:requestId", s.pendingResultHandler)

	api.Get("/players/:playerId/state", s.playerStateHandler)
	api.Post("/players/:playerId/buy-free-spins", s.buyFreeSpinsHandler)
	api.Get("/players/:playerId/ledger", s.ledgerHandler)

	admin := api.Group("/admin")
	admin.Post("/players/:playerId/adjust", s.adjustCreditsHandler)
	admin.Get("/profile", s.profileHandler)

	s.App.Get("/ws", websocket.New(s.feedWebSocketHandler))
}
