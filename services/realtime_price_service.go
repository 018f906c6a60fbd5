package services

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	maxWebSocketClients   = 100
	webSocketWriteTimeout = 10 * time.Second
	webSocketPongTimeout  = 60 * time.Second
	webSocketPingInterval = 30 * time.Second
)

// PriceUpdate is broadcast to every connected client after a successful
// refresh cycle.
type PriceUpdate struct {
	AssetType string      `json:"asset_type"`
	Data      interface{} `json:"data"`
	Time      time.Time   `json:"time"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// RealtimeHub fans refreshed price snapshots out to websocket clients.
// Delivery is best effort: a client that cannot keep up is dropped.
type RealtimeHub struct {
	clients    map[*wsClient]bool
	broadcast  chan PriceUpdate
	register   chan *wsClient
	unregister chan *wsClient
	shutdown   chan struct{}
	closeOnce  sync.Once
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	logger     zerolog.Logger
}

// NewRealtimeHub creates the hub. Run must be started on its own
// goroutine before clients connect.
func NewRealtimeHub(logger zerolog.Logger) *RealtimeHub {
	return &RealtimeHub{
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan PriceUpdate, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		shutdown:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.With().Str("component", "realtime_hub").Logger(),
	}
}

// Run processes register/unregister/broadcast events until Shutdown.
func (h *RealtimeHub) Run() {
	for {
		select {
		case <-h.shutdown:
			return

		case client := <-h.register:
			h.mu.Lock()
			if len(h.clients) >= maxWebSocketClients {
				h.mu.Unlock()
				client.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server at capacity"))
				client.conn.Close()
				h.logger.Warn().Int("max", maxWebSocketClients).Msg("websocket client rejected")
				continue
			}
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug().Int("clients", count).Msg("websocket client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case update := <-h.broadcast:
			data, err := json.Marshal(update)
			if err != nil {
				h.logger.Error().Err(err).Msg("marshal price update")
				continue
			}
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Shutdown closes the hub and every client connection.
func (h *RealtimeHub) Shutdown() {
	h.closeOnce.Do(func() { close(h.shutdown) })
	h.mu.Lock()
	for client := range h.clients {
		close(client.send)
		client.conn.Close()
	}
	h.clients = make(map[*wsClient]bool)
	h.mu.Unlock()
}

// Publish queues a price update for broadcast. Never blocks a refresh
// cycle: when the hub is saturated the update is dropped.
func (h *RealtimeHub) Publish(assetType string, data interface{}) {
	update := PriceUpdate{AssetType: assetType, Data: data, Time: time.Now().UTC()}
	select {
	case h.broadcast <- update:
	default:
		h.logger.Warn().Str("asset_type", assetType).Msg("broadcast buffer full, dropping update")
	}
}

// HandleWebSocket upgrades the connection and attaches it to the hub.
func (h *RealtimeHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, 64)}
	h.register <- client

	go h.writePump(client)
	go h.readPump(client)
}

func (h *RealtimeHub) writePump(client *wsClient) {
	ticker := time.NewTicker(webSocketPingInterval)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(webSocketWriteTimeout))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(webSocketWriteTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains client frames so pongs are processed, and unregisters
// on disconnect.
func (h *RealtimeHub) readPump(client *wsClient) {
	defer func() {
		h.unregister <- client
		client.conn.Close()
	}()

	client.conn.SetReadLimit(512)
	client.conn.SetReadDeadline(time.Now().Add(webSocketPongTimeout))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(webSocketPongTimeout))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}
