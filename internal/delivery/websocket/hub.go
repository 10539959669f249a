// Package websocket streams bookmark and watchlist updates to connected clients.
package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"cryptoverse/internal/bookmark"
	"cryptoverse/internal/domain"
	"cryptoverse/internal/infra"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Message types sent to clients.
const (
	TypeSnapshot  = "snapshot"
	TypeBookmark  = "bookmark"
	TypeWatchlist = "watchlist"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 16
)

// Message is the JSON frame pushed to clients.
type Message struct {
	Type      string              `json:"type"`
	Bookmark  *domain.Bookmark    `json:"bookmark,omitempty"`
	Added     *bool               `json:"added,omitempty"`
	Persisted *bool               `json:"persisted,omitempty"`
	Bookmarks []domain.Bookmark   `json:"bookmarks,omitempty"`
	Coins     []domain.MarketCoin `json:"coins,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
}

// Hub fans messages out to every connected client.
type Hub struct {
	bookmarks domain.BookmarkReader
	metrics   *infra.Metrics
	logger    *slog.Logger

	mu      sync.RWMutex
	clients map[uuid.UUID]*client
	closed  bool
}

// NewHub creates a hub. New clients receive the current bookmarks from reader.
func NewHub(reader domain.BookmarkReader, metrics *infra.Metrics, logger *slog.Logger) *Hub {
	if metrics == nil {
		metrics = &infra.Metrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		bookmarks: reader,
		metrics:   metrics,
		logger:    logger.With("module", "ws_hub"),
		clients:   make(map[uuid.UUID]*client),
	}
}

// Handle upgrades the request and serves the client until it disconnects.
func (h *Hub) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Upgrade failed", slog.Any("error", err))
		return
	}

	c := &client{
		id:   uuid.New(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	if !h.register(c) {
		conn.Close()
		return
	}
	h.logger.Info("Client connected", slog.String("client_id", c.id.String()))

	snapshot := Message{Type: TypeSnapshot, Bookmarks: []domain.Bookmark{}}
	if h.bookmarks != nil {
		snapshot.Bookmarks = h.bookmarks.List()
	}
	h.sendTo(c, snapshot)

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	h.metrics.IncrementClients()
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	close(c.send)
	h.metrics.DecrementClients()
	h.logger.Info("Client disconnected", slog.String("client_id", c.id.String()))
}

// readPump discards inbound frames; it returns once the connection fails.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Warn("Write failed", slog.String("client_id", c.id.String()), slog.Any("error", err))
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Hub) sendTo(c *client, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to encode message", slog.String("type", msg.Type), slog.Any("error", err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c.id]; ok {
		h.enqueue(c, payload)
	}
}

// enqueue must be called with mu held. Slow clients drop the message.
func (h *Hub) enqueue(c *client, payload []byte) {
	select {
	case c.send <- payload:
	default:
		h.logger.Warn("Client buffer full, dropping message", slog.String("client_id", c.id.String()))
	}
}

// Broadcast sends msg to every connected client.
func (h *Hub) Broadcast(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to encode message", slog.String("type", msg.Type), slog.Any("error", err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		h.enqueue(c, payload)
	}
}

// BookmarkChanged broadcasts a bookmark commit. It has the shape of a
// bookmark.Store subscriber.
func (h *Hub) BookmarkChanged(commit bookmark.Commit) {
	b := commit.Bookmark
	added := commit.Added
	persisted := commit.Persisted
	h.Broadcast(Message{
		Type:      TypeBookmark,
		Bookmark:  &b,
		Added:     &added,
		Persisted: &persisted,
	})
}

// WatchlistUpdated broadcasts the latest market rows of the bookmarked coins.
func (h *Hub) WatchlistUpdated(coins []domain.MarketCoin) {
	if coins == nil {
		coins = []domain.MarketCoin{}
	}
	h.Broadcast(Message{Type: TypeWatchlist, Coins: coins})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
		h.metrics.DecrementClients()
	}
}
