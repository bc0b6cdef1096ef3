package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub fans progress out to the websocket clients watching a run.
type Hub struct {
	// a run may be watched from several tabs
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
	logger  *slog.Logger
}

type Client struct {
	RunID string
	Conn  *websocket.Conn
	mu    sync.Mutex
}

type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.RunID] == nil {
		h.clients[client.RunID] = make(map[*Client]struct{})
	}
	h.clients[client.RunID][client] = struct{}{}
	h.logger.Debug("websocket registered", "run_id", client.RunID, "run_conns", len(h.clients[client.RunID]))
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.clients[client.RunID]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.clients, client.RunID)
		}
	}
	h.logger.Debug("websocket unregistered", "run_id", client.RunID)
}

// SendToRun writes msg to every connection watching runID.
func (h *Hub) SendToRun(runID string, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.RLock()
	conns, ok := h.clients[runID]
	if !ok {
		h.mu.RUnlock()
		return nil
	}
	clients := make([]*Client, 0, len(conns))
	for c := range conns {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.mu.Lock()
		err := c.Conn.WriteMessage(websocket.TextMessage, data)
		c.mu.Unlock()
		if err != nil {
			h.logger.Warn("websocket write failed", "run_id", runID, "error", err)
		}
	}
	return nil
}

func (h *Hub) IsWatched(runID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns, ok := h.clients[runID]
	return ok && len(conns) > 0
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, conns := range h.clients {
		total += len(conns)
	}
	return total
}
