package server

import (
	"errors"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"gemrush/internal/game/pipeline"
	"gemrush/internal/spin"
	"gemrush/internal/state"
)

func (s *FiberServer) healthHandler(c *fiber.Ctx) error {
	health := fiber.Map{
		"status":  "ok",
		"profile": s.profile.Current().Name,
		"feed": fiber.Map{
			"connected_clients": s.hub.GetClientCount(),
		},
	}
	if s.db != nil {
		health["database"] = s.db.Health()
	}
	if s.cache != nil {
		health["cache"] = s.cache.Health()
	}
	return c.JSON(health)
}

type spinRequest struct {
	PlayerID        string  `json:"player_id"`
	Bet             float64 `json:"bet"`
	ClientRequestID string  `json:"client_request_id"`
}

func (s *FiberServer) spinHandler(c *fiber.Ctx) error {
	var req spinRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}
	playerID, err := uuid.Parse(req.PlayerID)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "invalid player_id")
	}

	result, err := s.controller.Spin(c.Context(), playerID, req.Bet, req.ClientRequestID)
	if err != nil {
		return spinError(c, err)
	}
	return c.JSON(result)
}

type buyFreeSpinsRequest struct {
	Bet float64 `json:"bet"`
}

func (s *FiberServer) buyFreeSpinsHandler(c *fiber.Ctx) error {
	playerID, err := uuid.Parse(c.Params("playerId"))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "invalid player id")
	}
	var req buyFreeSpinsRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}

	st, balanceAfter, err := s.controller.BuyFreeSpins(c.Context(), playerID, req.Bet)
	if err != nil {
		return spinError(c, err)
	}
	return c.JSON(fiber.Map{
		"balance_after": balanceAfter,
		"state":         st,
	})
}

func (s *FiberServer) playerStateHandler(c *fiber.Ctx) error {
	playerID, err := uuid.Parse(c.Params("playerId"))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "invalid player id")
	}

	st, player, err := s.controller.GetState(c.Context(), playerID)
	if err != nil {
		return spinError(c, err)
	}
	return c.JSON(fiber.Map{
		"state":   st,
		"credits": player.Credits,
		"active":  player.Active,
	})
}

func (s *FiberServer) replayHandler(c *fiber.Ctx) error {
	spinID, err := uuid.Parse(c.Params("spinId"))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "invalid spin id")
	}

	result, err := s.controller.GetReplay(c.Context(), spinID)
	if err != nil {
		return spinError(c, err)
	}
	return c.JSON(fiber.Map{
		"verified": true,
		"result":   result,
	})
}

func (s *FiberServer) pendingResultHandler(c *fiber.Ctx) error {
	requestID := c.Params("requestId")
	if requestID == "" {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "request id required")
	}

	result, err := s.controller.GetPendingResult(c.Context(), requestID)
	if err != nil {
		return spinError(c, err)
	}
	return c.JSON(result)
}

func (s *FiberServer) ledgerHandler(c *fiber.Ctx) error {
	playerID, err := uuid.Parse(c.Params("playerId"))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "invalid player id")
	}
	limit := c.QueryInt("limit", 50)

	entries, err := s.controller.Ledger(c.Context(), playerID, limit)
	if err != nil {
		return spinError(c, err)
	}
	return c.JSON(fiber.Map{"entries": entries})
}

type adjustRequest struct {
	Amount float64 `json:"amount"`
	Reason string  `json:"reason"`
}

func (s *FiberServer) adjustCreditsHandler(c *fiber.Ctx) error {
	playerID, err := uuid.Parse(c.Params("playerId"))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "invalid player id")
	}
	var req adjustRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}
	if req.Reason == "" {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "reason required")
	}

	entry, err := s.controller.AdjustCredits(c.Context(), playerID, req.Amount, req.Reason)
	if err != nil {
		return spinError(c, err)
	}
	return c.JSON(entry)
}

func (s *FiberServer) profileHandler(c *fiber.Ctx) error {
	return c.JSON(s.profile.Current())
}

// feedWebSocketHandler subscribes a client to the live spin feed. The feed
// is read-only; the only inbound message handled is a ping.
func (s *FiberServer) feedWebSocketHandler(conn *websocket.Conn) {
	playerID := conn.Query("player_id", "anonymous")
	client := s.hub.RegisterClient(conn, playerID)

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			s.hub.UnregisterClient(client)
			return
		}
		if messageType == websocket.TextMessage && string(message) == `{"type":"ping"}` {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"pong"}`)); err != nil {
				log.Debug().Err(err).Msg("feed pong write failed")
			}
		}
	}
}

func errorJSON(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// spinError maps controller errors to wire codes and HTTP statuses.
func spinError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, spin.ErrInvalidBet):
		return errorJSON(c, fiber.StatusBadRequest, "invalid_bet", err.Error())
	case errors.Is(err, spin.ErrUnknownPlayer):
		return errorJSON(c, fiber.StatusNotFound, "unknown_player", err.Error())
	case errors.Is(err, spin.ErrInactiveAccount):
		return errorJSON(c, fiber.StatusForbidden, "inactive_account", err.Error())
	case errors.Is(err, spin.ErrInsufficientFunds):
		return errorJSON(c, fiber.StatusPaymentRequired, "insufficient_credits", err.Error())
	case errors.Is(err, spin.ErrAlreadyInFreeSpins):
		return errorJSON(c, fiber.StatusConflict, "already_in_free_spins", err.Error())
	case errors.Is(err, spin.ErrConflict), errors.Is(err, state.ErrConflict):
		return errorJSON(c, fiber.StatusConflict, "conflict", err.Error())
	case errors.Is(err, spin.ErrLockTimeout):
		return errorJSON(c, fiber.StatusRequestTimeout, "timeout", err.Error())
	case errors.Is(err, spin.ErrSpinNotFound), errors.Is(err, spin.ErrResultPending):
		return errorJSON(c, fiber.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, pipeline.ErrReplayMismatch), errors.Is(err, pipeline.ErrValidationFailed):
		log.Error().Err(err).Msg("integrity fault")
		return errorJSON(c, fiber.StatusInternalServerError, "result_validation_failed", "spin integrity check failed")
	default:
		log.Error().Err(err).Msg("unhandled spin error")
		return errorJSON(c, fiber.StatusInternalServerError, "internal_error", "internal server error")
	}
}
