// Package ws pushes session events to connected clients. Clients never
// send game actions over the socket; all writes go through the REST API
// and the socket only fans results back out.
package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Event names pushed to clients.
const (
	EvtPlayerJoined     = "player_joined"
	EvtPlayerLeft       = "player_left"
	EvtStateChanged     = "state_changed"
	EvtQuestionStarted  = "question_started"
	EvtQuestionFinished = "question_finished"
	EvtSessionCancelled = "session_cancelled"
)

// Message is the websocket envelope.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Connection is one websocket client attached to a session.
type Connection struct {
	PIN      string
	PlayerID string // empty for host connections
	IsHost   bool
	Send     chan []byte
}

type broadcastMessage struct {
	pin      string
	toHost   bool
	toPlayer string // empty means all players
	message  *Message
}

// Hub tracks connections per session PIN and fans events out to them.
type Hub struct {
	mu          sync.RWMutex
	hostConns   map[string]*Connection
	playerConns map[string]map[string]*Connection

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *broadcastMessage

	logger *zap.Logger
}

// NewHub starts the hub loop.
func NewHub(logger *zap.Logger) *Hub {
	h := &Hub{
		hostConns:   make(map[string]*Connection),
		playerConns: make(map[string]map[string]*Connection),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan *broadcastMessage, 256),
		logger:      logger,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if conn.IsHost {
				// A reconnecting host replaces the previous connection.
				if existing, ok := h.hostConns[conn.PIN]; ok {
					close(existing.Send)
				}
				h.hostConns[conn.PIN] = conn
				h.logger.Debug("host connected", zap.String("pin", conn.PIN))
			} else {
				if h.playerConns[conn.PIN] == nil {
					h.playerConns[conn.PIN] = make(map[string]*Connection)
				}
				if existing, ok := h.playerConns[conn.PIN][conn.PlayerID]; ok {
					close(existing.Send)
				}
				h.playerConns[conn.PIN][conn.PlayerID] = conn
				h.logger.Debug("player connected",
					zap.String("pin", conn.PIN),
					zap.String("playerId", conn.PlayerID))
			}
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if conn.IsHost {
				if existing, ok := h.hostConns[conn.PIN]; ok && existing == conn {
					delete(h.hostConns, conn.PIN)
					close(conn.Send)
				}
			} else if players, ok := h.playerConns[conn.PIN]; ok {
				if existing, ok := players[conn.PlayerID]; ok && existing == conn {
					delete(players, conn.PlayerID)
					close(conn.Send)
					h.notifyHost(conn.PIN, EvtPlayerLeft, map[string]string{"playerId": conn.PlayerID})
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) deliver(msg *broadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(msg.message)
	if err != nil {
		h.logger.Error("event marshal failed", zap.String("type", msg.message.Type), zap.Error(err))
		return
	}

	send := func(conn *Connection) {
		select {
		case conn.Send <- data:
		default:
			// Slow consumer; drop rather than stall the hub.
		}
	}

	switch {
	case msg.toHost:
		if conn, ok := h.hostConns[msg.pin]; ok {
			send(conn)
		}
	case msg.toPlayer != "":
		if players, ok := h.playerConns[msg.pin]; ok {
			if conn, ok := players[msg.toPlayer]; ok {
				send(conn)
			}
		}
	default:
		// Session-wide: host plus every player.
		if conn, ok := h.hostConns[msg.pin]; ok {
			send(conn)
		}
		for _, conn := range h.playerConns[msg.pin] {
			send(conn)
		}
	}
}

// Register attaches a connection to the hub.
func (h *Hub) Register(conn *Connection) { h.register <- conn }

// Unregister detaches a connection.
func (h *Hub) Unregister(conn *Connection) { h.unregister <- conn }

// ToSession sends an event to the host and every player of a session.
func (h *Hub) ToSession(pin, event string, payload interface{}) {
	h.enqueue(&broadcastMessage{pin: pin, message: envelope(event, payload)})
}

// ToHost sends an event to the session host only.
func (h *Hub) ToHost(pin, event string, payload interface{}) {
	h.enqueue(&broadcastMessage{pin: pin, toHost: true, message: envelope(event, payload)})
}

// ToPlayer sends an event to one player.
func (h *Hub) ToPlayer(pin, playerID, event string, payload interface{}) {
	h.enqueue(&broadcastMessage{pin: pin, toPlayer: playerID, message: envelope(event, payload)})
}

func (h *Hub) enqueue(msg *broadcastMessage) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("broadcast queue full, dropping event",
			zap.String("pin", msg.pin),
			zap.String("type", msg.message.Type))
	}
}

// notifyHost runs under h.mu from the hub loop.
func (h *Hub) notifyHost(pin, event string, payload interface{}) {
	conn, ok := h.hostConns[pin]
	if !ok {
		return
	}
	data, err := json.Marshal(envelope(event, payload))
	if err != nil {
		return
	}
	select {
	case conn.Send <- data:
	default:
	}
}

func envelope(event string, payload interface{}) *Message {
	data, _ := json.Marshal(payload)
	return &Message{Type: event, Payload: data}
}
