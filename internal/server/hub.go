package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/rs/zerolog/log"

	"gemrush/internal/game/pipeline"
)

// Client is one websocket subscriber to the live spin feed.
type Client struct {
	conn     *websocket.Conn
	playerID string
	mu       sync.Mutex
}

// SpinEvent is the trimmed spin summary pushed to feed subscribers. Seeds
// stay server-side; only the commitment is published.
type SpinEvent struct {
	Type            string   `json:"type"`
	SpinID          string   `json:"spin_id"`
	PlayerID        string   `json:"player_id"`
	Bet             float64  `json:"bet"`
	TotalWin        float64  `json:"total_win"`
	MultiplierTotal int      `json:"multiplier_total"`
	Cascades        int      `json:"cascades"`
	Mode            string   `json:"mode"`
	Features        []string `json:"features,omitempty"`
	SeedCommitment  string   `json:"seed_commitment"`
}

// Hub fans completed spins out to connected websocket clients.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan SpinEvent
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan SpinEvent, 100),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			log.Debug().Str("player_id", client.playerID).Int("total", total).Msg("feed client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.conn.Close()
			}
			total := len(h.clients)
			h.mu.Unlock()
			log.Debug().Str("player_id", client.playerID).Int("total", total).Msg("feed client disconnected")

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				log.Error().Err(err).Msg("feed marshal error")
				continue
			}
			h.mu.RLock()
			for client := range h.clients {
				go client.send(data) // non-blocking fan-out
			}
			h.mu.RUnlock()

		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				client.conn.Close()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop shuts the hub down and closes every client connection.
func (h *Hub) Stop() {
	close(h.done)
}

// BroadcastSpin queues a completed spin for fan-out. Drops the event when
// the feed is saturated; the durable record is the source of truth.
func (h *Hub) BroadcastSpin(result *pipeline.SpinResult) {
	event := SpinEvent{
		Type:            "spin",
		SpinID:          result.SpinID.String(),
		PlayerID:        result.PlayerID.String(),
		Bet:             result.Bet,
		TotalWin:        result.TotalWin,
		MultiplierTotal: result.MultiplierTotal,
		Cascades:        len(result.CascadeSteps),
		Mode:            string(result.Mode),
		Features:        result.Features,
		SeedCommitment:  result.SeedCommitment,
	}
	select {
	case h.broadcast <- event:
	default:
		log.Warn().Msg("feed channel full, dropping spin event")
	}
}

func (h *Hub) RegisterClient(conn *websocket.Conn, playerID string) *Client {
	client := &Client{conn: conn, playerID: playerID}
	h.register <- client
	return client
}

func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (c *Client) send(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Debug().Err(err).Str("player_id", c.playerID).Msg("feed write error")
	}
}
