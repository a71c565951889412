package sse

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mcoot/xwsync/internal/model"
	"github.com/mcoot/xwsync/internal/services/session"
)

// Event names sent to watchers
const (
	EventConnected = "connected"
	EventUpdate    = "update"
	EventGameOver  = "gameover"
)

// Hub manages SSE clients watching a single game
type Hub struct {
	gameID  model.GameID
	clients map[*Client]bool
	mu      sync.RWMutex
	logger  *slog.Logger

	// Channels for managing clients
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	closeOnce  sync.Once
}

// NewHub creates a new Hub for a game
func NewHub(gameID model.GameID, logger *slog.Logger) *Hub {
	return &Hub{
		gameID:     gameID,
		clients:    make(map[*Client]bool),
		logger:     logger.With(slog.String("game_id", string(gameID))),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	h.logger.Debug("sse hub started")
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("sse client registered",
				slog.String("remote", client.remote),
				slog.Int("total_clients", clientCount))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				clientCount := len(h.clients)
				h.mu.Unlock()
				h.logger.Info("sse client unregistered",
					slog.String("remote", client.remote),
					slog.Duration("connection_duration", time.Since(client.connectedAt)),
					slog.Int("total_clients", clientCount))
			} else {
				h.mu.Unlock()
			}

		case message := <-h.broadcast:
			h.mu.RLock()
			dropped := 0
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					dropped++
				}
			}
			h.mu.RUnlock()
			if dropped > 0 {
				h.logger.Warn("sse messages dropped, client buffers full", slog.Int("dropped", dropped))
			}

		case <-h.done:
			h.mu.Lock()
			clientCount := len(h.clients)
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Debug("sse hub stopped", slog.Int("disconnected_clients", clientCount))
			return
		}
	}
}

// Register adds a client to the hub. It returns false once the hub is closed.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast sends a message to all clients without blocking
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("sse broadcast dropped, hub buffer full")
	}
}

// BroadcastEvent sends an SSE event with a name and data
func (h *Hub) BroadcastEvent(eventName, data string) {
	h.Broadcast(formatSSEMessage(eventName, data))
}

// Close shuts down the hub
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// formatSSEMessage formats an SSE message with event name and data.
// Each line of data gets its own "data: " prefix.
func formatSSEMessage(eventName, data string) []byte {
	var b strings.Builder
	b.WriteString("event: " + eventName + "\n")
	for _, line := range splitLines(data) {
		b.WriteString("data: " + line + "\n")
	}
	b.WriteString("\n")
	return []byte(b.String())
}

// splitLines splits on \n, dropping \r and a trailing empty line
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}

// HubManager manages hubs for all watched games. It is the session
// observer: every settled change is sent to the game's hub if anyone is
// watching.
type HubManager struct {
	hubs   map[model.GameID]*Hub
	mu     sync.RWMutex
	logger *slog.Logger
}

var _ session.Observer = (*HubManager)(nil)

// NewHubManager creates a new HubManager
func NewHubManager(logger *slog.Logger) *HubManager {
	return &HubManager{
		hubs:   make(map[model.GameID]*Hub),
		logger: logger.With(slog.String("component", "sse")),
	}
}

// GetOrCreateHub returns the hub for a game, creating one if it doesn't exist
func (m *HubManager) GetOrCreateHub(gameID model.GameID) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[gameID]; ok {
		return hub
	}

	hub := NewHub(gameID, m.logger)
	m.hubs[gameID] = hub
	go hub.Run()
	return hub
}

// GetHub returns the hub for a game, or nil if it doesn't exist
func (m *HubManager) GetHub(gameID model.GameID) *Hub {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hubs[gameID]
}

// RemoveHub removes and closes a hub
func (m *HubManager) RemoveHub(gameID model.GameID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[gameID]; ok {
		hub.Close()
		delete(m.hubs, gameID)
		m.logger.Info("sse hub removed", slog.String("game_id", string(gameID)))
	}
}

// CleanupEmptyHubs removes hubs with no clients
func (m *HubManager) CleanupEmptyHubs() {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, hub := range m.hubs {
		if hub.ClientCount() == 0 {
			hub.Close()
			delete(m.hubs, id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Info("sse empty hubs cleaned up", slog.Int("removed", removed))
	}
}

// Close shuts down every hub
func (m *HubManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, hub := range m.hubs {
		hub.Close()
		delete(m.hubs, id)
	}
}

// GameChanged sends the update to the game's watchers
func (m *HubManager) GameChanged(u session.Update) {
	hub := m.GetHub(u.ID)
	if hub == nil {
		return
	}
	hub.Broadcast(UpdateMessage(u))
}

// UpdateMessage formats an update as an SSE event
func UpdateMessage(u session.Update) []byte {
	data, _ := json.Marshal(u)
	name := EventUpdate
	if u.GameOver {
		name = EventGameOver
	}
	return formatSSEMessage(name, string(data))
}
